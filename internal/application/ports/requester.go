package ports

import (
	"context"
	"encoding/json"
)

// Requester performs one correlated request/response round trip with the
// remote executor. Implementations fail with the domain error taxonomy:
// ErrNotConnected, ErrTimeout, RemoteError, or ErrConnectionClosed.
type Requester interface {
	Request(ctx context.Context, msgType string, data any) (json.RawMessage, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, msgType string, data any) (json.RawMessage, error)

// Request calls f.
func (f RequesterFunc) Request(ctx context.Context, msgType string, data any) (json.RawMessage, error) {
	return f(ctx, msgType, data)
}

// PushHandler consumes one server-initiated notification payload.
type PushHandler func(data json.RawMessage)

// Correlator matches responses to in-flight requests over one Transport.
// It is the only component that touches the pending-request set.
type Correlator interface {
	Requester

	// Attach binds a live transport and starts consuming inbound messages.
	Attach(t Transport)

	// Detach unbinds the transport, failing all outstanding requests with
	// ErrConnectionClosed.
	Detach()

	// OnPush registers a handler for a server-initiated notification type.
	OnPush(msgType string, handler PushHandler)

	// SetConnectionLostHandler registers the callback fired when the
	// attached transport drops unexpectedly.
	SetConnectionLostHandler(fn func(err error))

	// PendingCount returns the number of in-flight requests.
	PendingCount() int
}
