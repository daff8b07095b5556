package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/statkit/dataset-broker/internal/maputil"
)

// DefaultCallTimeout bounds a call when the caller does not override it.
const DefaultCallTimeout = 30 * time.Second

var (
	// ErrTimeout reports that no matching response arrived in time.
	ErrTimeout = errors.New("call timed out")
	// ErrClosed reports that the router was closed while the call was pending.
	ErrClosed = errors.New("router closed")
)

type outcome struct {
	result json.RawMessage
	err    error
}

type pendingCall struct {
	ch    chan outcome
	timer *time.Timer
}

// Call is a single pending request. It is completed exactly once, by a
// matching response, by its timeout, or by router shutdown.
type Call struct {
	id int64
	ch <-chan outcome
}

// ID returns the correlation identifier of the call.
func (c *Call) ID() int64 {
	return c.id
}

// Wait blocks until the call completes or ctx is done.
func (c *Call) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case out := <-c.ch:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Router multiplexes concurrently outstanding calls over one framed channel.
// Correlation identifiers are strictly increasing and never reused within
// the process, so a late response can never match a newer call.
type Router struct {
	mu      sync.Mutex
	nextID  int64
	pending map[int64]*pendingCall
	closed  bool

	w   io.Writer
	wmu sync.Mutex

	timeout time.Duration
	logger  *slog.Logger
}

// NewRouter creates a router writing framed requests to w.
func NewRouter(w io.Writer, timeout time.Duration, logger *slog.Logger) *Router {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Router{
		pending: make(map[int64]*pendingCall),
		w:       w,
		timeout: timeout,
		logger:  logger,
	}
}

// Send allocates an identifier, registers the pending call, writes the
// framed request, and arms the timeout. The zero timeout uses the router
// default.
func (r *Router) Send(method string, params any, timeout time.Duration) (*Call, error) {
	if timeout <= 0 {
		timeout = r.timeout
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.nextID++
	id := r.nextID
	entry := &pendingCall{ch: make(chan outcome, 1)}
	r.pending[id] = entry
	r.mu.Unlock()

	if err := r.write(Request{JSONRPC: Version, ID: &id, Method: method, Params: params}); err != nil {
		if dropped, ok := maputil.Pop(&r.mu, r.pending, id); ok {
			close(dropped.ch)
		}
		return nil, err
	}

	// Arm the timer only while the entry is still registered; the timer
	// field is written and read under the same lock that guards removal.
	r.mu.Lock()
	if _, still := r.pending[id]; still {
		entry.timer = time.AfterFunc(timeout, func() {
			if expired, ok := maputil.Pop(&r.mu, r.pending, id); ok {
				expired.ch <- outcome{err: ErrTimeout}
				close(expired.ch)
			}
		})
	}
	r.mu.Unlock()

	return &Call{id: id, ch: entry.ch}, nil
}

// Call sends the request and waits for its completion.
func (r *Router) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	call, err := r.Send(method, params, 0)
	if err != nil {
		return nil, err
	}
	return call.Wait(ctx)
}

// Notify writes an id-less message; nothing is registered and no response
// is expected.
func (r *Router) Notify(method string, params any) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.mu.Unlock()

	return r.write(Request{JSONRPC: Version, Method: method, Params: params})
}

// OnMessage matches a frame candidate against the pending set. Malformed
// candidates and responses with no pending call are dropped without effect.
// Removal of the matched entry is atomic with respect to the timeout path,
// so a call completes exactly once.
func (r *Router) OnMessage(candidate string) {
	resp, ok := parseResponse(candidate)
	if !ok {
		return
	}

	entry, ok := maputil.Pop(&r.mu, r.pending, *resp.ID)
	if !ok {
		if r.logger != nil {
			r.logger.Debug("response without pending call", "id", *resp.ID)
		}
		return
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}

	if resp.Error != nil {
		entry.ch <- outcome{err: resp.Error}
	} else {
		entry.ch <- outcome{result: resp.Result}
	}
	close(entry.ch)
}

// Close fails every pending call with ErrClosed and rejects further sends.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	for _, entry := range maputil.Drain(&r.mu, r.pending) {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		entry.ch <- outcome{err: ErrClosed}
		close(entry.ch)
	}
}

// Pending reports how many calls are awaiting a response.
func (r *Router) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Router) write(msg Request) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')

	r.wmu.Lock()
	defer r.wmu.Unlock()
	if _, err := r.w.Write(data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}
