// Package commands implements the CLI commands for swiftwire.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/application"
	"github.com/swiftwire/swiftwire/internal/infrastructure/config"
	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// Version information - set at build time via ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GlobalFlags holds the global CLI flags.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	Verbose    bool
	Host       string
	User       string
	Project    string
}

// AppContext holds the application runtime context.
type AppContext struct {
	Config     *config.Config
	Formatter  *output.Formatter
	Flags      *GlobalFlags
	Container  *application.Container
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Context returns the application lifetime context, cancelled on shutdown.
func (a *AppContext) Context() context.Context {
	return a.ctx
}

var (
	globalFlags GlobalFlags
	appCtx      *AppContext
	appCtxMu    sync.RWMutex
)

// NewRootCmd creates the root command for the swiftwire CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "swiftwire",
		Short: "Swiftwire - hot reload for remote Swift builds",
		Long: `Swiftwire keeps a local Swift project mirrored on a remote build host
and turns file saves into the cheapest reload that is still correct.

It connects to a remote build agent over SSH, watches the project tree,
classifies each batch of edits, and picks a strategy per batch:
  • preview     - view-only edits become live SwiftUI preview updates
  • incremental - small logic edits become incremental builds
  • full        - structural or manifest edits trigger a full rebuild`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Commands that only touch local state skip the container.
			switch cmd.Name() {
			case "help", "version", "completion", "init":
				return nil
			}
			return initializeApp()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "config file path (default: ~/.swiftwire/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "text", "output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Host, "host", "", "remote build host (overrides config)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.User, "user", "", "remote user (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Project, "project", "p", "", "project root (overrides config)")

	rootCmd.AddCommand(NewVersionCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewWatchCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewReloadCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewDevicesCmd())
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewSyncCmd())
	rootCmd.AddCommand(NewConsoleCmd())

	return rootCmd
}

// initializeApp initializes the application context.
func initializeApp() error {
	format := output.FormatText
	if globalFlags.Output == "json" {
		format = output.FormatJSON
	}

	formatter := output.NewFormatter(
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON && output.IsColorSupported()),
	)

	cfg, err := loadConfig(globalFlags.ConfigFile)
	if err != nil {
		if globalFlags.Verbose {
			formatter.Warning("Could not load config: %v, using defaults", err)
		}
		cfg = config.NewDefaultConfig()
	}

	// Command-line overrides beat the config file.
	if globalFlags.Host != "" {
		cfg.Remote.Host = globalFlags.Host
	}
	if globalFlags.User != "" {
		cfg.Remote.User = globalFlags.User
	}
	if globalFlags.Project != "" {
		cfg.Project.Root = globalFlags.Project
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := application.NewContainer(cfg, globalFlags.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	appCtxMu.Lock()
	appCtx = &AppContext{
		Config:     cfg,
		Formatter:  formatter,
		Flags:      &globalFlags,
		Container:  container,
		ctx:        ctx,
		cancelFunc: cancel,
	}
	appCtxMu.Unlock()

	return nil
}

// loadConfig loads configuration from the specified file or default location.
func loadConfig(configPath string) (*config.Config, error) {
	loader, err := config.NewLoader("")
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load(configPath)
}

// GetAppContext returns the current application context.
// Returns nil if the app hasn't been initialized.
func GetAppContext() *AppContext {
	appCtxMu.RLock()
	defer appCtxMu.RUnlock()
	return appCtx
}

// GetFormatter returns the output formatter, or a default formatter when the
// app context is not initialized.
func GetFormatter() *output.Formatter {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()

	if ctx != nil {
		return ctx.Formatter
	}
	return output.NewFormatter()
}

// GetContainer returns the application container.
// Returns nil if the app hasn't been initialized.
func GetContainer() *application.Container {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()

	if ctx != nil {
		return ctx.Container
	}
	return nil
}

// Shutdown performs graceful shutdown of the application.
func Shutdown() {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()

	if appCtx != nil {
		if appCtx.cancelFunc != nil {
			appCtx.cancelFunc()
		}
		if appCtx.Container != nil {
			_ = appCtx.Container.Close()
		}
	}
}

// Execute runs the root command with graceful shutdown support.
func Execute() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		rootCmd := NewRootCmd()
		errChan <- rootCmd.Execute()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			formatter := GetFormatter()
			formatter.Error("%s", err.Error())
			Shutdown()
			os.Exit(1)
		}
	case sig := <-sigChan:
		formatter := GetFormatter()
		formatter.Warning("Received signal %v, shutting down...", sig)
		Shutdown()
		os.Exit(130)
	}

	Shutdown()
}
