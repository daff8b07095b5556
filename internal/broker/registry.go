package broker

import (
	"fmt"
	"strings"

	"github.com/statkit/dataset-broker/internal/protocol"
	"github.com/statkit/dataset-broker/internal/sources"
)

// Tool names exposed at the coordinator boundary.
const (
	ToolQueryDataset  = "query_dataset"
	ToolExecuteDirect = "execute_direct"
)

// Tool pairs argument validation with deterministic remote-call
// construction for one spec-generating operation. Adding an operation means
// adding a registry entry; dispatch never changes.
type Tool struct {
	// Name is the registry key.
	Name string
	// Title is the human-friendly tool title.
	Title string
	// Description explains the tool for the agent.
	Description string
	// InputSchema defines JSON Schema for tool input.
	InputSchema map[string]any
	// Validate checks caller arguments before a spec is built.
	Validate func(args map[string]any) error
	// BuildCall derives the remote-call descriptor from the arguments.
	// It must be pure: same arguments, same descriptor, no side effects.
	BuildCall func(args map[string]any) (protocol.RemoteCall, error)
}

// Registry maps tool names to their definitions, preserving registration
// order for listings.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry from the given tools.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if _, exists := r.tools[tool.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", tool.Name)
		}
		r.tools[tool.Name] = tool
		r.order = append(r.order, tool.Name)
	}
	return r, nil
}

// Get returns the tool definition for name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns the tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// DefaultRegistry builds the registry for the configured upstream. It
// currently holds the single query_dataset operation.
func DefaultRegistry(up sources.UpstreamConfig) (*Registry, error) {
	allowed := make(map[string]struct{}, len(up.AllowedParams))
	for _, param := range up.AllowedParams {
		allowed[param] = struct{}{}
	}

	queryDataset := Tool{
		Name:        ToolQueryDataset,
		Title:       "Query dataset",
		Description: "Plan a dataset fetch from the statistics API. Returns an execution spec, never the data.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"dataset_id": map[string]any{
					"type":        "string",
					"description": "Identifier of the dataset to fetch.",
				},
			},
			"required": []any{"dataset_id"},
		},
		Validate: func(args map[string]any) error {
			id, ok := args["dataset_id"].(string)
			if !ok || strings.TrimSpace(id) == "" {
				return &ValidationError{Field: "dataset_id", Reason: "must be a non-empty string"}
			}
			for key := range args {
				if key == "dataset_id" {
					continue
				}
				if _, ok := allowed[key]; !ok {
					return &ValidationError{Field: key, Reason: "parameter is not allowed"}
				}
				switch args[key].(type) {
				case string, bool, float64, int, int64:
				default:
					return &ValidationError{Field: key, Reason: "must be a scalar value"}
				}
			}
			return nil
		},
		BuildCall: func(args map[string]any) (protocol.RemoteCall, error) {
			query := make(map[string]string, len(up.Query)+len(args))
			for key, value := range up.Query {
				query[key] = value
			}
			query[up.DatasetParam] = args["dataset_id"].(string)
			for key, value := range args {
				if key == "dataset_id" {
					continue
				}
				query[key] = fmt.Sprint(value)
			}

			var headers map[string]string
			if len(up.Headers) > 0 {
				headers = make(map[string]string, len(up.Headers))
				for key, value := range up.Headers {
					headers[key] = value
				}
			}

			return protocol.RemoteCall{
				Method:  "GET",
				URL:     strings.TrimRight(up.BaseURL, "/") + up.DataPath,
				Query:   query,
				Headers: headers,
			}, nil
		},
	}

	return NewRegistry(queryDataset)
}
