package fetch

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CountRecords computes a shallow cardinality summary of a JSON document.
// A top-level array counts its elements. An object counts the elements of
// its first array-valued field in sorted key order, falling back to the
// number of keys when no field holds an array. The decoded document is
// dropped when this returns.
func CountRecords(data []byte) (int, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("decode json: %w", err)
	}

	switch v := doc.(type) {
	case []any:
		return len(v), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if items, ok := v[key].([]any); ok {
				return len(items), nil
			}
		}
		return len(v), nil
	case nil:
		return 0, nil
	default:
		// A bare scalar is a degenerate single-record document.
		return 1, nil
	}
}
