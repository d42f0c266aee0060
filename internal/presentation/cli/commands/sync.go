package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the project tree to the remote host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync()
		},
	}
}

func runSync() error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		entries, err := collectProjectFiles(app.Config.Project.Root, app.Config.Watcher.Extensions)
		if err != nil {
			return err
		}
		if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeSyncProject,
			protocol.SyncProjectPayload{Files: entries}); err != nil {
			return err
		}
		return app.Formatter.Success("synced %d files to %s", len(entries), app.Config.Remote.Host)
	})
}
