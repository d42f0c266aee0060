// Package remote implements the request/response client for the remote
// executor: correlation ids, per-request deadlines, push-notification
// dispatch, and cleanup on transport loss.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiftwire/swiftwire/internal/application/ports"
	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
	"github.com/swiftwire/swiftwire/internal/infrastructure/tracing"
)

// DefaultRequestTimeout is the baseline deadline for one round trip.
const DefaultRequestTimeout = 30 * time.Second

// Compile-time check that Correlator implements the Correlator port.
var _ ports.Correlator = (*Correlator)(nil)

// outcome is the resolution of one pending request.
type outcome struct {
	data json.RawMessage
	err  error
}

// pendingRequest is one in-flight request. The channel is buffered so the
// resolver never blocks on a caller that already gave up.
type pendingRequest struct {
	id      string
	msgType string
	ch      chan outcome
	sentAt  time.Time
}

// Correlator multiplexes many concurrent request/response exchanges over a
// single Transport. Each outbound request carries a correlation id unique
// among pending requests; inbound messages with an id resolve the matching
// pending request exactly once. Inbound messages without an id are routed to
// type-keyed push handlers.
type Correlator struct {
	mu        sync.Mutex
	transport ports.Transport
	pending   map[string]*pendingRequest

	pushMu sync.RWMutex
	push   map[string]ports.PushHandler

	timeout time.Duration
	logger  *logging.Logger
	tracer  *tracing.Tracer

	// onLost is invoked (outside locks) when the transport drops with
	// requests possibly in flight. Set by the session manager.
	onLost func(err error)
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithTimeout overrides the default request deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Correlator) { c.logger = logger }
}

// WithTracer sets the tracer.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(c *Correlator) { c.tracer = tracer }
}

// NewCorrelator creates a correlator with no transport attached. Requests
// fail with ErrNotConnected until Attach is called.
func NewCorrelator(opts ...Option) *Correlator {
	c := &Correlator{
		pending: make(map[string]*pendingRequest),
		push:    make(map[string]ports.PushHandler),
		timeout: DefaultRequestTimeout,
		logger:  logging.Default(),
		tracer:  tracing.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetConnectionLostHandler registers the callback fired on transport loss.
func (c *Correlator) SetConnectionLostHandler(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = fn
}

// OnPush registers a handler for a server-initiated notification type.
// Registering nil removes the handler.
func (c *Correlator) OnPush(msgType string, handler ports.PushHandler) {
	c.pushMu.Lock()
	defer c.pushMu.Unlock()
	if handler == nil {
		delete(c.push, msgType)
		return
	}
	c.push[msgType] = handler
}

// Attach binds a live transport and starts consuming its inbound messages.
// Any previously attached transport must have been detached first.
func (c *Correlator) Attach(t ports.Transport) {
	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()

	go c.readLoop(t)
}

// Detach unbinds the transport and fails every outstanding request with
// ErrConnectionClosed. Safe to call when nothing is attached.
func (c *Correlator) Detach() {
	c.mu.Lock()
	c.transport = nil
	drained := c.takeAllLocked()
	c.mu.Unlock()

	c.failAll(drained, domainErrors.ErrConnectionClosed)
}

// Request sends one correlated request and blocks until the response
// arrives, the deadline elapses, or the connection is lost. The error kind
// (NotConnected, Timeout, RemoteError, ConnectionClosed) stays
// distinguishable via errors.Is / errors.As.
func (c *Correlator) Request(ctx context.Context, msgType string, data any) (json.RawMessage, error) {
	c.mu.Lock()
	transport := c.transport
	if transport == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot send %s", domainErrors.ErrNotConnected, msgType)
	}

	id := uuid.NewString()
	pr := &pendingRequest{
		id:      id,
		msgType: msgType,
		ch:      make(chan outcome, 1),
		sentAt:  time.Now(),
	}
	c.pending[id] = pr
	c.mu.Unlock()

	ctx = logging.WithRequestID(ctx, id)
	ctx, span := c.tracer.StartRequestSpan(ctx, msgType, id)

	msg, err := protocol.NewRequest(id, msgType, data)
	if err != nil {
		c.take(id)
		span.End(err)
		return nil, err
	}
	encoded, err := msg.Encode()
	if err != nil {
		c.take(id)
		span.End(err)
		return nil, err
	}

	if err := transport.Send(ctx, encoded); err != nil {
		c.take(id)
		wrapped := fmt.Errorf("%w: send failed: %v", domainErrors.ErrConnectionClosed, err)
		span.End(wrapped)
		return nil, wrapped
	}
	logging.LogRequestSent(ctx, c.logger, msgType, id)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	// Whichever of response, timeout, or cancellation removes the id from
	// the pending set wins; the losers find the id gone and read the
	// buffered outcome instead of double-resolving.
	select {
	case out := <-pr.ch:
		return c.finish(ctx, pr, span, out)

	case <-timer.C:
		if c.take(id) != nil {
			err := fmt.Errorf("%w: %s after %s", domainErrors.ErrTimeout, msgType, c.timeout)
			span.End(err)
			return nil, err
		}
		return c.finish(ctx, pr, span, <-pr.ch)

	case <-ctx.Done():
		if c.take(id) != nil {
			err := fmt.Errorf("%w: %s cancelled: %v", domainErrors.ErrConnectionClosed, msgType, ctx.Err())
			span.End(err)
			return nil, err
		}
		return c.finish(ctx, pr, span, <-pr.ch)
	}
}

// finish logs and closes out a resolved request.
func (c *Correlator) finish(ctx context.Context, pr *pendingRequest, span *tracing.RequestSpan, out outcome) (json.RawMessage, error) {
	span.End(out.err)
	if out.err != nil {
		return nil, out.err
	}
	logging.LogResponseReceived(ctx, c.logger, pr.msgType, pr.id, time.Since(pr.sentAt))
	return out.data, nil
}

// PendingCount returns the number of in-flight requests.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// take removes and returns the pending request for id, or nil if the id is
// no longer pending. This is the exactly-once removal point.
func (c *Correlator) take(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	pr, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	return pr
}

// takeAllLocked empties the pending set. Caller holds c.mu.
func (c *Correlator) takeAllLocked() []*pendingRequest {
	drained := make([]*pendingRequest, 0, len(c.pending))
	for _, pr := range c.pending {
		drained = append(drained, pr)
	}
	c.pending = make(map[string]*pendingRequest)
	return drained
}

// failAll delivers err to every drained request.
func (c *Correlator) failAll(drained []*pendingRequest, err error) {
	for _, pr := range drained {
		pr.ch <- outcome{err: fmt.Errorf("%w: %s", err, pr.msgType)}
	}
}

// readLoop consumes inbound messages and errors from one transport until it
// is exhausted. Each Attach starts its own readLoop; the loop exits when the
// transport's channels close.
func (c *Correlator) readLoop(t ports.Transport) {
	for {
		select {
		case raw, ok := <-t.Messages():
			if !ok {
				c.connectionLost(t, domainErrors.ErrConnectionClosed)
				return
			}
			c.dispatch(raw)

		case err, ok := <-t.Errors():
			if !ok {
				c.connectionLost(t, domainErrors.ErrConnectionClosed)
				return
			}
			c.connectionLost(t, err)
			return
		}
	}
}

// dispatch routes one inbound message: correlated responses resolve pending
// requests; everything else goes to the push-handler table or is dropped.
func (c *Correlator) dispatch(raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.logger.Warn("dropping malformed message", "error", err.Error())
		return
	}

	if msg.ID != "" {
		c.resolve(msg)
		return
	}

	c.pushMu.RLock()
	handler, ok := c.push[msg.Type]
	c.pushMu.RUnlock()
	if ok {
		handler(msg.Data)
		return
	}

	if _, err := protocol.DecodePayload(msg.Type, msg.Data); domainErrors.Is(err, domainErrors.ErrUnknownMessageType) {
		c.logger.Warn("dropping message with unknown type", "type", msg.Type)
		return
	}
	c.logger.Debug("dropping unhandled notification", "type", msg.Type)
}

// resolve completes the pending request matching msg's id. Duplicate or late
// messages for an id no longer pending are logged and dropped.
func (c *Correlator) resolve(msg *protocol.Message) {
	pr := c.take(msg.ID)
	if pr == nil {
		c.logger.Debug("dropping response for unknown or completed request",
			"type", msg.Type, "request_id", msg.ID)
		return
	}

	if msg.IsError() {
		pr.ch <- outcome{err: domainErrors.NewRemoteError(msg.ErrorMessage())}
		return
	}

	if expected := pr.msgType + protocol.ResponseSuffix; msg.Type != expected {
		c.logger.Warn("response type mismatch",
			"expected", expected, "got", msg.Type, "request_id", msg.ID)
	}
	pr.ch <- outcome{data: msg.Data}
}

// connectionLost fails all pending requests and notifies the session
// manager, but only if t is still the attached transport. A readLoop from a
// previously detached transport must not disturb the current one.
func (c *Correlator) connectionLost(t ports.Transport, err error) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	drained := c.takeAllLocked()
	onLost := c.onLost
	c.mu.Unlock()

	c.failAll(drained, domainErrors.ErrConnectionClosed)

	if len(drained) > 0 {
		types := make([]string, len(drained))
		for i, pr := range drained {
			types[i] = pr.msgType
		}
		c.logger.Warn("connection lost with requests in flight",
			"count", len(drained), "types", strings.Join(types, ","))
	}

	if onLost != nil {
		onLost(err)
	}
}
