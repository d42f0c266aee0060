// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swiftwire/swiftwire/internal/adapters/cache"
	"github.com/swiftwire/swiftwire/internal/adapters/remote"
	"github.com/swiftwire/swiftwire/internal/adapters/transport/sshtunnel"
	"github.com/swiftwire/swiftwire/internal/application/ports"
	appReload "github.com/swiftwire/swiftwire/internal/application/reload"
	appSession "github.com/swiftwire/swiftwire/internal/application/session"
	"github.com/swiftwire/swiftwire/internal/infrastructure/config"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
	"github.com/swiftwire/swiftwire/internal/infrastructure/storage"
	"github.com/swiftwire/swiftwire/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool

	logger *logging.Logger
	tracer *tracing.Tracer

	historyRepo *storage.HistoryRepository
	buildCache  *cache.BuildCache

	dialer         *sshtunnel.Dialer
	correlator     *remote.Correlator
	sessionManager *appSession.Manager

	orchestrator *appReload.Orchestrator
	watchService *appReload.WatchService
}

// NewContainer creates a new dependency injection container with all
// services initialized from the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initStorage(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.initRemote()

	if err := c.initReload(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize reload services: %w", err)
	}

	return c, nil
}

// initObservability initializes the logger and tracer.
func (c *Container) initObservability() error {
	logLevel := logging.LevelInfo
	if c.verbose {
		logLevel = logging.LevelDebug
	} else {
		switch c.config.Logging.Level {
		case "debug":
			logLevel = logging.LevelDebug
		case "info":
			logLevel = logging.LevelInfo
		case "warn":
			logLevel = logging.LevelWarn
		case "error":
			logLevel = logging.LevelError
		}
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
	})

	if c.config.Tracing.Enabled {
		tracer, err := tracing.New(context.Background(), tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Tracing.ExporterType),
			OTLPEndpoint: c.config.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Tracing.ServiceName,
			SampleRate:   c.config.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// initStorage opens the persistent reload-history database when enabled.
func (c *Container) initStorage() error {
	c.buildCache = cache.NewBuildCache()

	if !c.config.History.Enabled {
		return nil
	}

	dbPath := c.config.History.DBPath
	if dbPath == "" {
		loader, err := config.NewLoader("")
		if err != nil {
			return err
		}
		if err := os.MkdirAll(loader.Dir(), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(loader.Dir(), "history.db")
	}

	repo, err := storage.NewHistoryRepository(dbPath)
	if err != nil {
		return err
	}
	c.historyRepo = repo
	return nil
}

// initRemote wires the SSH dialer, the request correlator, and the session
// manager that drives them.
func (c *Container) initRemote() {
	c.dialer = sshtunnel.NewDialer(sshtunnel.Config{
		RemoteCommand:   c.config.Remote.RemoteCommand,
		ConnectTimeout:  c.config.Remote.ConnectTimeout,
		KnownHostsFile:  c.config.Remote.KnownHostsFile,
		InsecureHostKey: c.config.Remote.InsecureHostKey,
	}, c.logger)

	c.correlator = remote.NewCorrelator(
		remote.WithTimeout(c.config.Request.Timeout),
		remote.WithLogger(c.logger),
		remote.WithTracer(c.tracer),
	)

	c.sessionManager = appSession.NewManager(c.dialer, c.correlator, appSession.Config{
		ReconnectInterval:    c.config.Reconnect.Interval,
		MaxReconnectAttempts: c.config.Reconnect.MaxAttempts,
	}, c.logger)
}

// initReload wires the orchestrator and the file watch service.
func (c *Container) initReload() error {
	var store ports.HistoryStore
	if c.historyRepo != nil {
		store = c.historyRepo
	}

	c.orchestrator = appReload.NewOrchestrator(c.sessionManager, c.buildCache, store, appReload.Config{
		DebounceDelay:      c.config.Reload.Debounce,
		PreviewEnabled:     c.config.Reload.PreviewEnabled,
		IncrementalEnabled: c.config.Reload.IncrementalEnabled,
		HistoryCapacity:    c.config.Reload.HistoryLimit,
		Enabled:            c.config.Reload.Enabled,
	}, c.logger, c.tracer)

	root, err := filepath.Abs(c.config.Project.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve project root: %w", err)
	}

	watchService, err := appReload.NewWatchService(appReload.WatchServiceConfig{
		ProjectRoot:     root,
		StabilizeWindow: c.config.Watcher.StabilizeWindow,
		Extensions:      c.config.Watcher.Extensions,
	}, c.orchestrator, c.logger)
	if err != nil {
		return err
	}
	c.watchService = watchService
	return nil
}

// Connect establishes the remote session using the configured endpoint and
// credentials.
func (c *Container) Connect(ctx context.Context) error {
	endpoint := ports.Endpoint{
		Host: c.config.Remote.Host,
		Port: c.config.Remote.Port,
		User: c.config.Remote.User,
	}
	if endpoint.Host == "" {
		return fmt.Errorf("remote.host is not configured; run 'swiftwire init' or pass --host")
	}
	return c.sessionManager.Connect(ctx, endpoint, c.CredentialProvider())
}

// CredentialProvider returns credentials from the configured key file, with
// SWIFTWIRE_PASSWORD as the fallback for password authentication.
func (c *Container) CredentialProvider() ports.CredentialProvider {
	keyFile := c.config.Remote.KeyFile
	return ports.CredentialProviderFunc(func(ctx context.Context) (ports.Credentials, error) {
		creds := ports.Credentials{
			PrivateKeyPath: keyFile,
			Password:       os.Getenv("SWIFTWIRE_PASSWORD"),
		}
		if creds.PrivateKeyPath == "" && creds.Password == "" {
			return creds, fmt.Errorf("no credentials configured: set remote.key_file or SWIFTWIRE_PASSWORD")
		}
		return creds, nil
	})
}

// StartWatching starts the project file watcher. This should be called
// after the session is connected.
func (c *Container) StartWatching(ctx context.Context) error {
	return c.watchService.Start(ctx)
}

// StopWatching stops the project file watcher.
func (c *Container) StopWatching() error {
	return c.watchService.Stop()
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.watchService != nil {
		_ = c.watchService.Stop()
	}
	if c.orchestrator != nil {
		c.orchestrator.Close()
	}
	if c.sessionManager != nil {
		_ = c.sessionManager.Disconnect()
	}
	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}
	if c.historyRepo != nil {
		return c.historyRepo.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the OpenTelemetry tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// SessionManager returns the session manager.
func (c *Container) SessionManager() *appSession.Manager {
	return c.sessionManager
}

// Correlator returns the request correlator for push-handler registration.
func (c *Container) Correlator() *remote.Correlator {
	return c.correlator
}

// Orchestrator returns the reload orchestrator.
func (c *Container) Orchestrator() *appReload.Orchestrator {
	return c.orchestrator
}

// WatchService returns the file watch service.
func (c *Container) WatchService() *appReload.WatchService {
	return c.watchService
}

// BuildCache returns the remote build cache mirror.
func (c *Container) BuildCache() *cache.BuildCache {
	return c.buildCache
}

// HistoryRepository returns the persistent history store, or nil when
// history persistence is disabled.
func (c *Container) HistoryRepository() *storage.HistoryRepository {
	return c.historyRepo
}
