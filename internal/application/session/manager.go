// Package session manages the lifecycle of the connection to the remote
// build host: tunnel setup, authentication, and transparent reconnection
// with backoff after unexpected transport loss.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/swiftwire/swiftwire/internal/application/ports"
	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	domainSession "github.com/swiftwire/swiftwire/internal/domain/session"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
)

// Default reconnection policy: a fixed interval between attempts, capped at
// a maximum attempt count. Exhausting the cap is terminal.
const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
)

// Compile-time check that Manager implements the Requester port.
var _ ports.Requester = (*Manager)(nil)

// Config holds session manager configuration.
type Config struct {
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
}

// DefaultConfig returns the default reconnection policy.
func DefaultConfig() Config {
	return Config{
		ReconnectInterval:    DefaultReconnectInterval,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
	}
}

// Manager owns the transport and correlator lifecycle and drives the
// connection state machine. Connected is the only state in which requests
// may be sent; the IsConnected flag flips atomically with every transition
// into or out of Connected.
type Manager struct {
	dialer     ports.TunnelDialer
	correlator ports.Correlator
	config     Config
	logger     *logging.Logger

	mu              sync.Mutex
	state           domainSession.State
	sess            *domainSession.Session
	transport       ports.Transport
	endpoint        ports.Endpoint
	credentials     ports.CredentialProvider
	attempts        int
	reconnectCancel context.CancelFunc

	connected atomic.Bool

	listeners    []func(domainSession.State)
	fatalHandler func(err error)
}

// NewManager creates a session manager in the Disconnected state.
func NewManager(dialer ports.TunnelDialer, correlator ports.Correlator, cfg Config, logger *logging.Logger) *Manager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if logger == nil {
		logger = logging.Default()
	}

	m := &Manager{
		dialer:     dialer,
		correlator: correlator,
		config:     cfg,
		logger:     logger,
		state:      domainSession.StateDisconnected,
	}
	correlator.SetConnectionLostHandler(m.handleTransportLost)
	return m
}

// OnStateChange registers a listener invoked on every state transition.
// Listeners run on their own goroutine after the transition commits, so they
// may call back into the manager.
func (m *Manager) OnStateChange(fn func(domainSession.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetFatalHandler registers the callback for terminal failures
// (ReconnectExhausted). Terminal failures must be surfaced prominently.
func (m *Manager) SetFatalHandler(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fatalHandler = fn
}

// IsConnected reports whether the session is in the Connected state. The
// flag is updated atomically with the state transition.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// State returns the current connection state.
func (m *Manager) State() domainSession.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the active session, or nil when disconnected.
func (m *Manager) Session() *domainSession.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	copied := *m.sess
	copied.State = m.state
	copied.ReconnectAttempts = m.attempts
	return &copied
}

// Connect establishes the tunnel and authenticates. A failure at any
// sub-step returns to Disconnected and surfaces the error; the initial
// attempt is never retried automatically.
func (m *Manager) Connect(ctx context.Context, endpoint ports.Endpoint, creds ports.CredentialProvider) error {
	m.mu.Lock()
	if m.state != domainSession.StateDisconnected {
		current := m.state
		m.mu.Unlock()
		return domainErrors.NewError(domainErrors.CodeConnection,
			fmt.Sprintf("cannot connect while %s", current), nil)
	}
	m.endpoint = endpoint
	m.credentials = creds
	m.setStateLocked(domainSession.StateConnecting)
	m.mu.Unlock()

	if err := m.establish(ctx, true); err != nil {
		m.mu.Lock()
		m.teardownLocked()
		m.setStateLocked(domainSession.StateDisconnected)
		m.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect tears down the connection from any state: pending requests are
// cancelled, any scheduled reconnect is abandoned, and the session is
// destroyed. Idempotent.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	m.teardownLocked()
	m.sess = nil
	m.attempts = 0
	m.setStateLocked(domainSession.StateDisconnected)
	m.mu.Unlock()

	m.logger.Info("disconnected")
	return nil
}

// Request sends one correlated request. Fails immediately with
// ErrNotConnected outside the Connected state.
func (m *Manager) Request(ctx context.Context, msgType string, data any) (json.RawMessage, error) {
	if !m.connected.Load() {
		return nil, fmt.Errorf("%w: session is %s", domainErrors.ErrNotConnected, m.State())
	}
	if sess := m.Session(); sess != nil {
		ctx = logging.WithSessionID(ctx, sess.ID)
	}
	return m.correlator.Request(ctx, msgType, data)
}

// establish dials the tunnel, attaches the correlator, and authenticates.
// When intermediate is true the state machine walks through
// TunnelEstablished and Authenticating; reconnect attempts stay in
// Reconnecting until they succeed.
func (m *Manager) establish(ctx context.Context, intermediate bool) error {
	m.mu.Lock()
	endpoint := m.endpoint
	credProvider := m.credentials
	m.mu.Unlock()

	creds, err := credProvider.Credentials(ctx)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeConnection, "credential provider failed", err)
	}

	transport, err := m.dialer.Dial(ctx, endpoint, creds)
	if err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrTunnelSetupFailed, err)
	}

	m.mu.Lock()
	m.transport = transport
	if intermediate {
		m.setStateLocked(domainSession.StateTunnelEstablished)
	}
	m.mu.Unlock()

	m.correlator.Attach(transport)

	if intermediate {
		m.mu.Lock()
		m.setStateLocked(domainSession.StateAuthenticating)
		m.mu.Unlock()
	}

	if _, err := m.correlator.Request(ctx, protocol.TypeAuthenticate,
		protocol.AuthenticatePayload{Username: endpoint.User}); err != nil {
		m.correlator.Detach()
		transport.Close()
		if domainErrors.IsRemote(err) {
			return fmt.Errorf("%w: %v", domainErrors.ErrAuthenticationFailed, err)
		}
		return err
	}

	m.mu.Lock()
	m.sess = &domainSession.Session{
		ID:            uuid.NewString(),
		Host:          endpoint.Host,
		Port:          endpoint.Port,
		Username:      endpoint.User,
		EstablishedAt: time.Now(),
	}
	m.attempts = 0
	m.setStateLocked(domainSession.StateConnected)
	m.mu.Unlock()

	m.logger.Info("connected",
		"host", endpoint.Host, "port", endpoint.Port, "user", endpoint.User)
	return nil
}

// handleTransportLost is invoked by the correlator after an unexpected
// transport drop has failed all pending requests.
func (m *Manager) handleTransportLost(cause error) {
	m.mu.Lock()
	if m.state != domainSession.StateConnected {
		// Explicit disconnects and connect failures handle their own
		// teardown; only an established session reconnects.
		m.mu.Unlock()
		return
	}
	m.transport = nil
	m.setStateLocked(domainSession.StateReconnecting)

	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectCancel = cancel
	m.mu.Unlock()

	m.logger.Warn("connection lost, reconnecting", "cause", cause.Error())
	go m.reconnectLoop(ctx)
}

// reconnectLoop retries establish at a fixed interval, reusing the original
// endpoint and credentials, until it succeeds, the attempt cap is exceeded,
// or an explicit disconnect cancels it.
func (m *Manager) reconnectLoop(ctx context.Context) {
	// The first attempt is scheduled one interval after the loss, not
	// immediately.
	select {
	case <-time.After(m.config.ReconnectInterval):
	case <-ctx.Done():
		return
	}

	operation := func() (struct{}, error) {
		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		m.mu.Unlock()

		logging.LogReconnectAttempt(ctx, m.logger, attempt, m.config.MaxReconnectAttempts)
		return struct{}{}, m.establish(ctx, false)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(m.config.ReconnectInterval)),
		backoff.WithMaxTries(uint(m.config.MaxReconnectAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.logger.Warn("reconnect attempt failed",
				"error", err.Error(), "retry_in", next.String())
		}),
	)

	m.mu.Lock()
	m.reconnectCancel = nil
	m.mu.Unlock()

	if err == nil {
		m.logger.Info("reconnected")
		return
	}
	if ctx.Err() != nil {
		// Explicit disconnect already moved the state machine.
		return
	}

	m.mu.Lock()
	m.teardownLocked()
	m.sess = nil
	m.setStateLocked(domainSession.StateDisconnected)
	fatal := m.fatalHandler
	m.mu.Unlock()

	terminal := fmt.Errorf("%w: gave up after %d attempts: %v",
		domainErrors.ErrReconnectExhausted, m.config.MaxReconnectAttempts, err)
	m.logger.Error("reconnect exhausted", "error", terminal.Error())
	if fatal != nil {
		fatal(terminal)
	}
}

// teardownLocked detaches the correlator and closes the transport. Caller
// holds m.mu.
func (m *Manager) teardownLocked() {
	transport := m.transport
	m.transport = nil
	if transport != nil {
		// Detach first so the dying transport's read loop cannot be
		// mistaken for an unexpected loss.
		m.correlator.Detach()
		transport.Close()
	}
}

// setStateLocked commits a state transition and flips the connected flag in
// the same critical section, so observers never see them disagree. Caller
// holds m.mu.
func (m *Manager) setStateLocked(next domainSession.State) {
	if m.state == next {
		return
	}
	m.state = next
	m.connected.Store(next == domainSession.StateConnected)
	for _, fn := range m.listeners {
		go fn(next)
	}
}
