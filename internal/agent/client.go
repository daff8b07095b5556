package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/statkit/dataset-broker/internal/jsonrpc"
)

// protocolVersion is the MCP protocol revision the agent speaks.
const protocolVersion = "2025-06-18"

// Client talks to an MCP server over a newline-delimited JSON-RPC channel,
// typically the stdio of a spawned server process. Correlation, timeouts,
// and frame reassembly are handled by the jsonrpc layer.
type Client struct {
	rpc    *jsonrpc.Client
	logger *slog.Logger
}

// ToolInfo is one entry of a tools/list response.
type ToolInfo struct {
	// Name is the tool name.
	Name string `json:"name"`
	// Title is the human-friendly tool title.
	Title string `json:"title,omitempty"`
	// Description explains the tool.
	Description string `json:"description,omitempty"`
}

type listToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callToolResult struct {
	Content           []contentItem   `json:"content,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// NewClient wraps an established channel. The reader is drained by a
// background loop until it is exhausted.
func NewClient(r io.Reader, w io.Writer, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		rpc:    jsonrpc.NewClient(r, w, timeout, logger),
		logger: logger,
	}
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "dataset-agent",
			"version": "0.3.0",
		},
	}
	if _, err := c.rpc.Call(ctx, "initialize", params); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if err := c.rpc.Notify("notifications/initialized", map[string]any{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	return nil
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	raw, err := c.rpc.Call(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes name with args and returns the structured result. A tool
// error is surfaced as a Go error carrying the reported text.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	raw, err := c.rpc.Call(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("tools/call %s: %w", name, err)
	}

	var result callToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result: %w", err)
	}
	if result.IsError {
		text := flattenText(result.Content)
		if text == "" {
			text = "tool call failed"
		}
		return nil, errors.New(text)
	}
	if len(result.StructuredContent) > 0 {
		return result.StructuredContent, nil
	}
	text := flattenText(result.Content)
	if text == "" {
		return nil, nil
	}
	return json.RawMessage(text), nil
}

// Close cancels pending calls.
func (c *Client) Close() {
	c.rpc.Close()
}

// Done is closed once the channel's read loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.rpc.Done()
}

func flattenText(items []contentItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type == "text" && strings.TrimSpace(item.Text) != "" {
			parts = append(parts, strings.TrimSpace(item.Text))
		}
	}
	return strings.Join(parts, "\n")
}
