package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version written on every message.
const Version = "2.0"

// Request is an outbound call or notification. Notifications carry no ID.
type Request struct {
	// JSONRPC is always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID correlates the request with its response; nil for notifications.
	ID *int64 `json:"id,omitempty"`
	// Method is the remote method name.
	Method string `json:"method"`
	// Params holds the method arguments.
	Params any `json:"params,omitempty"`
}

// Error is a structured JSON-RPC error object.
type Error struct {
	// Code is the numeric error code.
	Code int `json:"code"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Data carries optional error details.
	Data json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Response is an inbound result-or-error message.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// parseResponse decodes a frame candidate on a best-effort basis. The
// channel may interleave diagnostic text with protocol messages, so a
// candidate that is not a well-formed response is reported as not ok rather
// than as an error. Messages carrying a method (server-initiated requests
// and notifications) are not responses.
func parseResponse(candidate string) (*Response, bool) {
	var resp Response
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return nil, false
	}
	if resp.ID == nil || resp.Method != "" {
		return nil, false
	}
	return &resp, true
}
