package specstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statkit/dataset-broker/internal/protocol"
)

func newSpec(id string, createdAt time.Time) protocol.ExecutionSpec {
	return protocol.ExecutionSpec{
		ExecutionID: id,
		Tool:        "query_dataset",
		Call:        protocol.RemoteCall{Method: "GET", URL: "https://api.stats.example/data"},
		CreatedAt:   createdAt,
		Status:      protocol.StatusPending,
	}
}

func TestStorePutGetAll(t *testing.T) {
	store := New()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	spec := newSpec("a", time.Now())
	store.Put(spec)

	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, spec, got)

	store.Put(newSpec("b", time.Now()))
	assert.Len(t, store.All(), 2)
	assert.Equal(t, 2, store.Len())
}

func TestStoreSetStatus(t *testing.T) {
	store := New()
	store.Put(newSpec("a", time.Now()))

	require.True(t, store.SetStatus("a", protocol.StatusExecuting))
	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, protocol.StatusExecuting, got.Status)

	// The descriptor stays untouched across status transitions.
	assert.Equal(t, "https://api.stats.example/data", got.Call.URL)

	assert.False(t, store.SetStatus("missing", protocol.StatusError))
}

func TestStoreSweepAgeThreshold(t *testing.T) {
	store := New()
	now := time.Now()
	store.now = func() time.Time { return now }

	maxAge := 10 * time.Minute
	store.Put(newSpec("fresh", now))
	store.Put(newSpec("expired", now.Add(-2*maxAge)))
	store.Put(newSpec("young", now.Add(-maxAge/2)))

	removed := store.Sweep(maxAge)
	assert.Equal(t, 1, removed)

	_, ok := store.Get("expired")
	assert.False(t, ok)
	_, ok = store.Get("fresh")
	assert.True(t, ok)
	_, ok = store.Get("young")
	assert.True(t, ok)
}

func TestStoreSweepHonorsTTLOverride(t *testing.T) {
	store := New()
	now := time.Now()
	store.now = func() time.Time { return now }

	shortLived := newSpec("short", now.Add(-5*time.Minute))
	shortLived.TTL = time.Minute
	store.Put(shortLived)
	store.Put(newSpec("default", now.Add(-5*time.Minute)))

	removed := store.Sweep(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := store.Get("short")
	assert.False(t, ok)
	_, ok = store.Get("default")
	assert.True(t, ok)
}

func TestStoreReadsDoNotExtendLife(t *testing.T) {
	store := New()
	now := time.Now()
	store.now = func() time.Time { return now }

	maxAge := time.Minute
	store.Put(newSpec("a", now.Add(-2*maxAge)))

	// Repeated reads must not refresh the entry's age.
	for i := 0; i < 5; i++ {
		_, ok := store.Get("a")
		require.True(t, ok)
	}

	assert.Equal(t, 1, store.Sweep(maxAge))
}

func TestStoreConcurrentStatusWrites(t *testing.T) {
	store := New()
	const specs = 20

	for i := 0; i < specs; i++ {
		store.Put(newSpec(fmt.Sprintf("spec-%d", i), time.Now()))
	}

	var wg sync.WaitGroup
	for i := 0; i < specs; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			store.SetStatus(id, protocol.StatusExecuting)
			store.SetStatus(id, protocol.StatusSuccess)
		}(fmt.Sprintf("spec-%d", i))
	}
	wg.Wait()

	for _, spec := range store.All() {
		assert.Equal(t, protocol.StatusSuccess, spec.Status)
	}
}
