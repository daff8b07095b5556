package maputil

import "sync"

// Pop removes key from map under lock and returns the previous value if present.
func Pop[K comparable, V any](mu *sync.Mutex, items map[K]V, key K) (V, bool) {
	mu.Lock()
	defer mu.Unlock()

	value, ok := items[key]
	if ok {
		delete(items, key)
	}
	return value, ok
}

// Drain removes and returns every value from the map under lock.
func Drain[K comparable, V any](mu *sync.Mutex, items map[K]V) []V {
	mu.Lock()
	defer mu.Unlock()

	values := make([]V, 0, len(items))
	for key, value := range items {
		values = append(values, value)
		delete(items, key)
	}
	return values
}
