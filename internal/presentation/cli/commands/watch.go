package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	domainReload "github.com/swiftwire/swiftwire/internal/domain/reload"
	domainSession "github.com/swiftwire/swiftwire/internal/domain/session"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	var skipSync bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the project and hot reload on save",
		Long: `Connect to the remote build host, sync the project, and watch the local
tree. Each batch of edits is classified and reloaded with the cheapest
strategy that is still correct. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(skipSync)
		},
	}

	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "skip the initial project sync")

	return cmd
}

func runWatch(skipSync bool) error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		formatter := app.Formatter
		container := app.Container

		fatal := make(chan error, 1)
		container.SessionManager().SetFatalHandler(func(err error) {
			select {
			case fatal <- err:
			default:
			}
		})
		container.SessionManager().OnStateChange(func(state domainSession.State) {
			switch state {
			case domainSession.StateReconnecting:
				formatter.Warning("connection lost, reconnecting...")
			case domainSession.StateConnected:
				formatter.Success("connected to %s", app.Config.Remote.Host)
			}
		})

		container.Orchestrator().OnResult(func(result domainReload.Result) {
			printReloadResult(app, result)
		})

		formatter.Success("connected to %s", app.Config.Remote.Host)

		if !skipSync {
			formatter.Info("syncing project...")
			entries, err := collectProjectFiles(app.Config.Project.Root, app.Config.Watcher.Extensions)
			if err != nil {
				return err
			}
			if _, err := container.SessionManager().Request(ctx, protocol.TypeSyncProject,
				protocol.SyncProjectPayload{Files: entries}); err != nil {
				return err
			}
			formatter.Success("synced %d files", len(entries))
		}

		if err := container.StartWatching(ctx); err != nil {
			return err
		}
		defer container.StopWatching()

		formatter.Info("watching %s (save a file to reload, Ctrl-C to quit)", app.Config.Project.Root)

		select {
		case <-ctx.Done():
			return nil
		case err := <-fatal:
			return err
		}
	})
}

// printReloadResult writes a one-cycle summary to the terminal.
func printReloadResult(app *AppContext, result domainReload.Result) {
	formatter := app.Formatter
	elapsed := result.Duration.Round(time.Millisecond)

	if result.Success {
		formatter.Success("%s reload: %d files in %s", result.Strategy, result.FileCount, elapsed)
	} else {
		formatter.Error("%s reload failed after %s: %s",
			result.Strategy, elapsed, joinLines(result.Errors))
	}
	for _, warning := range result.Warnings {
		formatter.Warning("%s", warning)
	}
}

func joinLines(lines []string) string {
	switch len(lines) {
	case 0:
		return "unknown error"
	case 1:
		return lines[0]
	}
	out := lines[0]
	for _, line := range lines[1:] {
		out += "; " + line
	}
	return out
}
