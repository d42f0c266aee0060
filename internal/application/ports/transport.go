// Package ports defines the interfaces between application services and
// their adapters, enabling dependency inversion and testability.
package ports

import "context"

// Transport is a duplex, message-oriented byte channel to the remote host.
// It owns framing only; correlation and business logic live above it. The
// transport is message-multiplexing by design: a single instance is shared
// by all concurrently pending requests.
type Transport interface {
	// Send writes one framed message. Safe for concurrent use.
	Send(ctx context.Context, data []byte) error

	// Messages delivers inbound messages. The channel is closed when the
	// transport is lost or closed.
	Messages() <-chan []byte

	// Errors delivers transport-level failures (read errors, dropped
	// connections). A message here means the transport is no longer usable.
	Errors() <-chan error

	// Close tears the channel down. Idempotent.
	Close() error
}

// Endpoint identifies the remote host a tunnel is dialed to.
type Endpoint struct {
	Host string
	Port int
	User string
}

// Credentials carry authentication material for tunnel setup. Exactly one
// of Password or PrivateKeyPath is typically set.
type Credentials struct {
	Password       string
	PrivateKeyPath string
}

// CredentialProvider supplies credentials on demand, letting callers defer
// prompting until a connection (or reconnection) actually needs them.
type CredentialProvider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// CredentialProviderFunc adapts a function to the CredentialProvider interface.
type CredentialProviderFunc func(ctx context.Context) (Credentials, error)

// Credentials calls f.
func (f CredentialProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// TunnelDialer establishes a secure tunnel transport to an endpoint.
type TunnelDialer interface {
	Dial(ctx context.Context, endpoint Endpoint, creds Credentials) (Transport, error)
}
