package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statkit/dataset-broker/internal/protocol"
	"github.com/statkit/dataset-broker/internal/sources"
	"github.com/statkit/dataset-broker/internal/specstore"
)

type fetcherFunc func(ctx context.Context, call protocol.RemoteCall) (int, error)

func (f fetcherFunc) Fetch(ctx context.Context, call protocol.RemoteCall) (int, error) {
	return f(ctx, call)
}

func testUpstream() sources.UpstreamConfig {
	return sources.UpstreamConfig{
		BaseURL:       "https://api.stats.example/rest",
		DataPath:      "/getStatsData",
		DatasetParam:  "statsDataId",
		Query:         map[string]string{"appId": "test-app"},
		AllowedParams: []string{"limit"},
	}
}

func newCoordinator(t *testing.T, fetcher fetcherFunc) (*Coordinator, *specstore.Store) {
	t.Helper()
	registry, err := DefaultRegistry(testUpstream())
	require.NoError(t, err)
	store := specstore.New()
	return New(store, fetcher, registry, nil, nil), store
}

func TestGenerateSpecReturnsPendingSpec(t *testing.T) {
	coordinator, store := newCoordinator(t, nil)

	spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": "X"})
	require.NoError(t, err)

	assert.Equal(t, protocol.StatusPending, spec.Status)
	assert.NotEmpty(t, spec.ExecutionID)
	assert.Equal(t, ToolQueryDataset, spec.Tool)
	assert.Equal(t, "GET", spec.Call.Method)
	assert.Equal(t, "https://api.stats.example/rest/getStatsData", spec.Call.URL)
	assert.Equal(t, "X", spec.Call.Query["statsDataId"])
	assert.False(t, spec.CreatedAt.IsZero())

	stored, ok := store.Get(spec.ExecutionID)
	require.True(t, ok)
	assert.Equal(t, spec, stored)
}

func TestGenerateSpecIdentifiersAreUnique(t *testing.T) {
	coordinator, _ := newCoordinator(t, nil)

	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": fmt.Sprintf("ds-%d", i)})
		require.NoError(t, err)
		_, dup := seen[spec.ExecutionID]
		require.False(t, dup, "duplicate identifier %s", spec.ExecutionID)
		seen[spec.ExecutionID] = struct{}{}
	}
}

func TestGenerateSpecValidation(t *testing.T) {
	coordinator, store := newCoordinator(t, nil)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{name: "unknown tool", tool: "export_dataset", args: map[string]any{"dataset_id": "X"}},
		{name: "missing dataset id", tool: ToolQueryDataset, args: map[string]any{}},
		{name: "empty dataset id", tool: ToolQueryDataset, args: map[string]any{"dataset_id": "  "}},
		{name: "dataset id not a string", tool: ToolQueryDataset, args: map[string]any{"dataset_id": 42.0}},
		{name: "disallowed extra param", tool: ToolQueryDataset, args: map[string]any{"dataset_id": "X", "format": "csv"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := coordinator.GenerateSpec(context.Background(), test.tool, test.args)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
	assert.Equal(t, 0, store.Len(), "failed generation must not store specs")
}

func TestExecuteSpecSuccess(t *testing.T) {
	coordinator, store := newCoordinator(t, func(_ context.Context, call protocol.RemoteCall) (int, error) {
		return 42, nil
	})

	spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": "X"})
	require.NoError(t, err)

	result, err := coordinator.ExecuteSpec(context.Background(), spec.ExecutionID)
	require.NoError(t, err)

	assert.Equal(t, protocol.StatusSuccess, result.Status)
	require.NotNil(t, result.RecordCount)
	assert.Equal(t, 42, *result.RecordCount)
	assert.NotNil(t, result.CompletedAt)
	assert.Empty(t, result.Error)

	stored, ok := store.Get(spec.ExecutionID)
	require.True(t, ok, "execution must not remove the spec")
	assert.Equal(t, protocol.StatusSuccess, stored.Status)
}

func TestExecuteSpecResultCarriesNoPayload(t *testing.T) {
	coordinator, _ := newCoordinator(t, func(_ context.Context, _ protocol.RemoteCall) (int, error) {
		return 42, nil
	})

	spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": "X"})
	require.NoError(t, err)
	result, err := coordinator.ExecuteSpec(context.Background(), spec.ExecutionID)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	allowed := map[string]struct{}{
		"execution_id": {},
		"status":       {},
		"record_count": {},
		"error":        {},
		"completed_at": {},
	}
	for key := range fields {
		_, ok := allowed[key]
		assert.True(t, ok, "unexpected result field %q", key)
	}
}

func TestExecuteSpecNotFound(t *testing.T) {
	coordinator, store := newCoordinator(t, nil)

	spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": "X"})
	require.NoError(t, err)

	_, err = coordinator.ExecuteSpec(context.Background(), "unknown-id")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	stored, ok := store.Get(spec.ExecutionID)
	require.True(t, ok)
	assert.Equal(t, protocol.StatusPending, stored.Status, "failed lookup must not mutate stored specs")
}

func TestExecuteSpecUpstreamFailureThenRerun(t *testing.T) {
	attempts := 0
	coordinator, store := newCoordinator(t, func(_ context.Context, _ protocol.RemoteCall) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("upstream status 503: overloaded")
		}
		return 7, nil
	})

	spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{"dataset_id": "X"})
	require.NoError(t, err)

	// Upstream failure is reported as data, not as a Go error.
	result, err := coordinator.ExecuteSpec(context.Background(), spec.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusError, result.Status)
	assert.Contains(t, result.Error, "503")
	assert.Nil(t, result.RecordCount)

	stored, _ := store.Get(spec.ExecutionID)
	assert.Equal(t, protocol.StatusError, stored.Status)

	// Re-running a terminal spec is allowed and attempts the call again.
	result, err = coordinator.ExecuteSpec(context.Background(), spec.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusSuccess, result.Status)
	require.NotNil(t, result.RecordCount)
	assert.Equal(t, 7, *result.RecordCount)
	assert.Equal(t, 2, attempts)

	stored, _ = store.Get(spec.ExecutionID)
	assert.Equal(t, protocol.StatusSuccess, stored.Status)
}

func TestExecuteSpecConcurrentIndependentSpecs(t *testing.T) {
	coordinator, _ := newCoordinator(t, func(_ context.Context, call protocol.RemoteCall) (int, error) {
		return len(call.Query["statsDataId"]), nil
	})

	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		spec, err := coordinator.GenerateSpec(context.Background(), ToolQueryDataset, map[string]any{
			"dataset_id": fmt.Sprintf("%0*d", i+1, 0),
		})
		require.NoError(t, err)
		ids = append(ids, spec.ExecutionID)
	}

	type outcome struct {
		count int
		err   error
	}
	results := make(chan outcome, len(ids))
	for _, id := range ids {
		go func(id string) {
			result, err := coordinator.ExecuteSpec(context.Background(), id)
			if err != nil || result.RecordCount == nil {
				results <- outcome{err: fmt.Errorf("execution failed: %v", err)}
				return
			}
			results <- outcome{count: *result.RecordCount}
		}(id)
	}

	counts := map[int]bool{}
	for range ids {
		out := <-results
		require.NoError(t, out.err)
		counts[out.count] = true
	}
	for i := 1; i <= 10; i++ {
		assert.True(t, counts[i], "missing record count %d", i)
	}
}
