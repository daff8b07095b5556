package protocol

import "time"

// Execution spec statuses.
const (
	StatusPending   = "pending"
	StatusExecuting = "executing"
	StatusSuccess   = "success"
	StatusError     = "error"
)

// RemoteCall describes the upstream request an execution spec will perform.
// It is immutable once the spec is created.
type RemoteCall struct {
	// Method is the HTTP method, currently always GET.
	Method string `json:"method"`
	// URL is the upstream endpoint without query parameters.
	URL string `json:"url"`
	// Query holds the query parameters for the call.
	Query map[string]string `json:"query,omitempty"`
	// Headers adds HTTP headers to the call.
	Headers map[string]string `json:"headers,omitempty"`
}

// ExecutionSpec is a stored plan for a remote dataset fetch. It is returned
// to callers in full, but never carries fetched data.
type ExecutionSpec struct {
	// ExecutionID uniquely identifies the spec within the process.
	ExecutionID string `json:"execution_id"`
	// Tool is the registry name the spec was generated for.
	Tool string `json:"tool"`
	// Parameters are the validated caller arguments.
	Parameters map[string]any `json:"parameters,omitempty"`
	// Call is the immutable remote-call descriptor.
	Call RemoteCall `json:"call"`
	// CreatedAt is the creation timestamp used for sweep aging.
	CreatedAt time.Time `json:"created_at"`
	// Status is the spec lifecycle state.
	Status string `json:"status"`
	// TTL optionally overrides the store-wide maximum age.
	TTL time.Duration `json:"ttl,omitempty"`
}

// ExecutionResult summarizes one execution attempt. It carries metadata
// only; the fetched payload is structurally absent from this type.
type ExecutionResult struct {
	// ExecutionID identifies the executed spec.
	ExecutionID string `json:"execution_id"`
	// Status is success or error.
	Status string `json:"status"`
	// RecordCount is the cardinality summary of the fetched document.
	RecordCount *int `json:"record_count,omitempty"`
	// Error describes the upstream failure when status is error.
	Error string `json:"error,omitempty"`
	// CompletedAt is when the remote call finished.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
