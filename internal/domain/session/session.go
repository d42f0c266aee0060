// Package session defines the domain model for one authenticated connection
// to a remote build host.
package session

import "time"

// State is the connection state machine. Connected is the only state in
// which requests may be sent.
type State string

const (
	StateDisconnected      State = "disconnected"
	StateConnecting        State = "connecting"
	StateTunnelEstablished State = "tunnel_established"
	StateAuthenticating    State = "authenticating"
	StateConnected         State = "connected"
	StateReconnecting      State = "reconnecting"
)

// Session identifies one authenticated connection. It is created on
// successful authentication and destroyed on explicit disconnect or
// exhaustion of reconnect attempts.
type Session struct {
	ID                string
	Host              string
	Port              int
	Username          string
	State             State
	ReconnectAttempts int
	EstablishedAt     time.Time
}

// CanSend reports whether the session state permits sending requests.
func (s State) CanSend() bool {
	return s == StateConnected
}
