package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/statkit/dataset-broker/internal/audit"
	"github.com/statkit/dataset-broker/internal/fetch"
	"github.com/statkit/dataset-broker/internal/protocol"
	"github.com/statkit/dataset-broker/internal/security"
	"github.com/statkit/dataset-broker/internal/specstore"
)

// Coordinator separates planning a remote fetch from executing it. Specs
// live in the store between the two calls; results are built fresh per
// execution and never cached.
type Coordinator struct {
	store    *specstore.Store
	fetcher  fetch.Fetcher
	registry *Registry
	logger   *slog.Logger
	audit    audit.Logger
	now      func() time.Time
	newID    func() string
}

// New creates a coordinator over the given store, fetcher, and registry.
func New(store *specstore.Store, fetcher fetch.Fetcher, registry *Registry, logger *slog.Logger, auditLog audit.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		fetcher:  fetcher,
		registry: registry,
		logger:   logger,
		audit:    auditLog,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Registry exposes the spec-generating tool definitions.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// Specs returns the stored specs, for introspection.
func (c *Coordinator) Specs() []protocol.ExecutionSpec {
	return c.store.All()
}

// Sweep removes specs older than maxAge and reports how many were removed.
func (c *Coordinator) Sweep(ctx context.Context, maxAge time.Duration) int {
	removed := c.store.Sweep(maxAge)
	if removed > 0 && c.audit != nil {
		c.audit.Record(ctx, audit.Event{Type: "spec_swept", Reason: "max age exceeded"})
	}
	return removed
}

// GenerateSpec validates the request against the tool registry, builds the
// remote-call descriptor, and stores the spec with status pending. No
// network I/O happens here; the spec is returned to the caller without any
// fetched data.
func (c *Coordinator) GenerateSpec(ctx context.Context, toolName string, args map[string]any) (protocol.ExecutionSpec, error) {
	tool, ok := c.registry.Get(toolName)
	if !ok {
		return protocol.ExecutionSpec{}, &ValidationError{Field: "tool", Reason: "unknown tool " + toolName}
	}
	if err := tool.Validate(args); err != nil {
		return protocol.ExecutionSpec{}, err
	}

	call, err := tool.BuildCall(args)
	if err != nil {
		return protocol.ExecutionSpec{}, err
	}

	spec := protocol.ExecutionSpec{
		ExecutionID: c.newID(),
		Tool:        toolName,
		Parameters:  args,
		Call:        call,
		CreatedAt:   c.now(),
		Status:      protocol.StatusPending,
	}
	c.store.Put(spec)

	if c.logger != nil {
		c.logger.Info("spec generated", "tool", toolName, "execution_id", spec.ExecutionID, "args", security.RedactArguments(args))
	}
	if c.audit != nil {
		c.audit.Record(ctx, audit.Event{Type: "spec_generated", Tool: toolName, ExecutionID: spec.ExecutionID, Status: spec.Status})
	}
	return spec, nil
}

// ExecuteSpec consumes a stored spec: exactly one remote call, a status
// transition on the stored entry, and a metadata-only result. Upstream
// failure is a reportable outcome, not an error return; re-executing a
// terminal spec is allowed and re-runs the remote call.
func (c *Coordinator) ExecuteSpec(ctx context.Context, id string) (protocol.ExecutionResult, error) {
	spec, ok := c.store.Get(id)
	if !ok {
		return protocol.ExecutionResult{}, &NotFoundError{ID: id}
	}

	c.store.SetStatus(id, protocol.StatusExecuting)

	count, err := c.fetcher.Fetch(ctx, spec.Call)
	completed := c.now()

	if err != nil {
		c.store.SetStatus(id, protocol.StatusError)
		if c.logger != nil {
			c.logger.Warn("spec execution failed", "execution_id", id, "error", err)
		}
		if c.audit != nil {
			c.audit.Record(ctx, audit.Event{Type: "spec_executed", Tool: spec.Tool, ExecutionID: id, Status: protocol.StatusError, Reason: err.Error()})
		}
		return protocol.ExecutionResult{
			ExecutionID: id,
			Status:      protocol.StatusError,
			Error:       err.Error(),
			CompletedAt: &completed,
		}, nil
	}

	c.store.SetStatus(id, protocol.StatusSuccess)
	if c.logger != nil {
		c.logger.Info("spec executed", "execution_id", id, "record_count", count)
	}
	if c.audit != nil {
		c.audit.Record(ctx, audit.Event{Type: "spec_executed", Tool: spec.Tool, ExecutionID: id, Status: protocol.StatusSuccess})
	}
	return protocol.ExecutionResult{
		ExecutionID: id,
		Status:      protocol.StatusSuccess,
		RecordCount: &count,
		CompletedAt: &completed,
	}, nil
}
