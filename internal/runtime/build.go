package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/statkit/dataset-broker/internal/audit"
	"github.com/statkit/dataset-broker/internal/broker"
	"github.com/statkit/dataset-broker/internal/protocol"
	"github.com/statkit/dataset-broker/internal/security"
	"github.com/statkit/dataset-broker/internal/sources"
)

// Builder constructs an MCP server over the execution coordinator.
type Builder struct {
	// Logger is used for structured logging.
	Logger *slog.Logger
	// Audit records spec lifecycle events.
	Audit audit.Logger
	// Coordinator plans and executes dataset fetches.
	Coordinator *broker.Coordinator
}

// specSummary is the metadata shape exposed by the spec store resource.
type specSummary struct {
	ExecutionID string    `json:"execution_id"`
	Tool        string    `json:"tool"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Build creates an MCP server exposing the registry tools, the
// execute_direct operation, and a read-only spec store resource.
func (b Builder) Build(cfg *sources.Config) (*mcp.Server, error) {
	if b.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	for _, tool := range b.Coordinator.Registry().All() {
		b.addGenerateTool(server, tool)
	}
	b.addExecuteTool(server)

	server.AddResource(&mcp.Resource{
		Name:        "execution-specs",
		URI:         "specs://store",
		Description: "Stored execution specs: identifiers, statuses, and timestamps only.",
		MIMEType:    "application/json",
	}, func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		specs := b.Coordinator.Specs()
		summaries := make([]specSummary, 0, len(specs))
		for _, spec := range specs {
			summaries = append(summaries, specSummary{
				ExecutionID: spec.ExecutionID,
				Tool:        spec.Tool,
				Status:      spec.Status,
				CreatedAt:   spec.CreatedAt,
			})
		}
		data, err := json.Marshal(summaries)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{Text: string(data)},
			},
		}, nil
	})

	return server, nil
}

func (b Builder) addGenerateTool(server *mcp.Server, tool broker.Tool) {
	mcpTool := &mcp.Tool{
		Name:        tool.Name,
		Title:       tool.Title,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}

	mcp.AddTool(server, mcpTool, func(ctx context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, protocol.ExecutionSpec, error) {
		if b.Logger != nil {
			b.Logger.Info("tool call", "tool", tool.Name, "args", security.RedactArguments(input))
		}

		spec, err := b.Coordinator.GenerateSpec(ctx, tool.Name, input)
		if err != nil {
			if b.Audit != nil {
				b.Audit.Record(ctx, audit.Event{Type: "tool_error", Tool: tool.Name, Reason: err.Error()})
			}
			return nil, protocol.ExecutionSpec{}, err
		}
		return nil, spec, nil
	})
}

func (b Builder) addExecuteTool(server *mcp.Server) {
	mcpTool := &mcp.Tool{
		Name:        broker.ToolExecuteDirect,
		Title:       "Execute spec",
		Description: "Consume a previously generated execution spec and perform the remote fetch. Returns metadata only, never the payload.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"execution_id": map[string]any{
					"type":        "string",
					"description": "Identifier returned by a spec-generating tool.",
				},
			},
			"required": []any{"execution_id"},
		},
		Annotations: &mcp.ToolAnnotations{
			OpenWorldHint: boolPtr(true),
		},
	}

	mcp.AddTool(server, mcpTool, func(ctx context.Context, _ *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, protocol.ExecutionResult, error) {
		id, _ := input["execution_id"].(string)
		if strings.TrimSpace(id) == "" {
			return nil, protocol.ExecutionResult{}, fmt.Errorf("execution_id must be a non-empty string")
		}
		if b.Logger != nil {
			b.Logger.Info("tool call", "tool", broker.ToolExecuteDirect, "execution_id", id)
		}

		result, err := b.Coordinator.ExecuteSpec(ctx, id)
		if err != nil {
			if b.Audit != nil {
				b.Audit.Record(ctx, audit.Event{Type: "tool_error", Tool: broker.ToolExecuteDirect, ExecutionID: id, Reason: err.Error()})
			}
			return nil, protocol.ExecutionResult{}, err
		}
		return nil, result, nil
	})
}

func boolPtr(v bool) *bool {
	return &v
}
