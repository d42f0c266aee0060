// Package sshtunnel implements the secure tunnel transport: an SSH
// connection to the remote build host carrying newline-delimited JSON
// messages over the stdio of a remotely started agent process.
package sshtunnel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/swiftwire/swiftwire/internal/application/ports"
	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
)

// DefaultRemoteCommand starts the agent on the remote host with its wire
// protocol on stdio.
const DefaultRemoteCommand = "swiftwired --stdio"

const (
	defaultConnectTimeout = 15 * time.Second
	defaultBufferSize     = 64

	// maxMessageSize bounds one wire message. File contents travel inline,
	// so this is generous.
	maxMessageSize = 8 * 1024 * 1024
)

// Compile-time interface checks.
var (
	_ ports.TunnelDialer = (*Dialer)(nil)
	_ ports.Transport    = (*Tunnel)(nil)
)

// Config holds tunnel configuration.
type Config struct {
	RemoteCommand   string        // command executed on the remote host
	ConnectTimeout  time.Duration // TCP + SSH handshake deadline
	KnownHostsFile  string        // defaults to ~/.ssh/known_hosts
	InsecureHostKey bool          // skip host key verification (development only)
	BufferSize      int           // inbound message channel capacity
}

// DefaultTunnelConfig returns sensible tunnel defaults.
func DefaultTunnelConfig() Config {
	return Config{
		RemoteCommand:  DefaultRemoteCommand,
		ConnectTimeout: defaultConnectTimeout,
		BufferSize:     defaultBufferSize,
	}
}

// Dialer establishes SSH tunnels to remote build hosts.
type Dialer struct {
	config Config
	logger *logging.Logger
}

// NewDialer creates a tunnel dialer.
func NewDialer(cfg Config, logger *logging.Logger) *Dialer {
	if cfg.RemoteCommand == "" {
		cfg.RemoteCommand = DefaultRemoteCommand
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dialer{config: cfg, logger: logger}
}

// Dial opens the SSH connection, starts the remote agent, and returns a
// Transport speaking newline-delimited messages over its stdio.
func (d *Dialer) Dial(ctx context.Context, endpoint ports.Endpoint, creds ports.Credentials) (ports.Transport, error) {
	auth, err := authMethods(creds)
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            endpoint.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.config.ConnectTimeout,
	}

	addr := net.JoinHostPort(endpoint.Host, fmt.Sprintf("%d", endpoint.Port))
	netDialer := &net.Dialer{Timeout: d.config.ConnectTimeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domainErrors.ErrTunnelSetupFailed, addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: handshake with %s: %v", domainErrors.ErrTunnelSetupFailed, addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: session: %v", domainErrors.ErrTunnelSetupFailed, err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("%w: stdin pipe: %v", domainErrors.ErrTunnelSetupFailed, err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %v", domainErrors.ErrTunnelSetupFailed, err)
	}

	if err := session.Start(d.config.RemoteCommand); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("%w: start %q: %v", domainErrors.ErrTunnelSetupFailed, d.config.RemoteCommand, err)
	}

	t := &Tunnel{
		client:   client,
		session:  session,
		stdin:    stdin,
		messages: make(chan []byte, d.config.BufferSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		logger:   d.logger,
	}
	go t.readLoop(stdout)

	d.logger.Debug("tunnel established", "addr", addr, "command", d.config.RemoteCommand)
	return t, nil
}

// hostKeyCallback builds the host key verification strategy.
func (d *Dialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.config.InsecureHostKey {
		d.logger.Warn("host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := d.config.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: resolving known_hosts: %v", domainErrors.ErrTunnelSetupFailed, err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: known_hosts %s: %v", domainErrors.ErrTunnelSetupFailed, path, err)
	}
	return callback, nil
}

// authMethods converts credentials into SSH authentication methods.
func authMethods(creds ports.Credentials) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if creds.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(creds.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reading key %s: %v", domainErrors.ErrTunnelSetupFailed, creds.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing key %s: %v", domainErrors.ErrTunnelSetupFailed, creds.PrivateKeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", domainErrors.ErrTunnelSetupFailed)
	}
	return methods, nil
}

// Tunnel is one live SSH transport. A single write mutex serializes frames;
// the transport itself is message-multiplexing, so no per-request locking
// happens above it.
type Tunnel struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	logger  *logging.Logger

	writeMu sync.Mutex

	messages chan []byte
	errs     chan error

	done      chan struct{}
	closeOnce sync.Once
}

// Send writes one framed message.
func (t *Tunnel) Send(ctx context.Context, data []byte) error {
	select {
	case <-t.done:
		return domainErrors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", domainErrors.ErrConnectionClosed, err)
	}
	return nil
}

// Messages delivers inbound messages until the tunnel drops.
func (t *Tunnel) Messages() <-chan []byte {
	return t.messages
}

// Errors delivers the terminal transport error, if any.
func (t *Tunnel) Errors() <-chan error {
	return t.errs
}

// Close tears the tunnel down. Idempotent.
func (t *Tunnel) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		t.session.Close()
		err = t.client.Close()
	})
	return err
}

// readLoop scans newline-delimited messages from the remote agent's stdout
// and forwards them. It owns closing the outbound channels.
func (t *Tunnel) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// The scanner reuses its buffer between calls.
		msg := make([]byte, len(line))
		copy(msg, line)

		select {
		case t.messages <- msg:
		case <-t.done:
			close(t.messages)
			close(t.errs)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case t.errs <- fmt.Errorf("%w: %v", domainErrors.ErrConnectionClosed, err):
		case <-t.done:
		}
	}
	close(t.messages)
	close(t.errs)
}
