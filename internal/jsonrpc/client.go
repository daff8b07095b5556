package jsonrpc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"
)

// Client owns one framed channel: a read loop feeding the frame reader and
// a router correlating responses. One Client per connection.
type Client struct {
	router *Router
	done   chan struct{}
	logger *slog.Logger
}

// NewClient starts the read loop over r and routes framed requests to w.
// When r is exhausted or fails, every pending call is cancelled.
func NewClient(r io.Reader, w io.Writer, timeout time.Duration, logger *slog.Logger) *Client {
	c := &Client{
		router: NewRouter(w, timeout, logger),
		done:   make(chan struct{}),
		logger: logger,
	}
	go c.readLoop(r)
	return c
}

// Call issues a request and waits for the correlated response.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.router.Call(ctx, method, params)
}

// Notify writes a notification.
func (c *Client) Notify(method string, params any) error {
	return c.router.Notify(method, params)
}

// Close cancels all pending calls. The read loop terminates when the
// underlying reader does.
func (c *Client) Close() {
	c.router.Close()
}

// Done is closed once the read loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.done)
	defer c.router.Close()

	frames := NewFrameReader()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, frame := range frames.Feed(buf[:n]) {
				c.router.OnMessage(frame)
			}
		}
		if err != nil {
			if err != io.EOF && c.logger != nil {
				c.logger.Debug("channel read ended", "error", err)
			}
			return
		}
	}
}
