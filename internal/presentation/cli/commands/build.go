package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var sync bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project on the remote host",
		Long: `Trigger a remote build. Build output streams back to the terminal as it
is produced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(sync)
		},
	}

	cmd.Flags().BoolVar(&sync, "sync", true, "sync the project before building")

	return cmd
}

func runBuild(sync bool) error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		formatter := app.Formatter

		if sync {
			entries, err := collectProjectFiles(app.Config.Project.Root, app.Config.Watcher.Extensions)
			if err != nil {
				return err
			}
			if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeSyncProject,
				protocol.SyncProjectPayload{Files: entries}); err != nil {
				return err
			}
		}

		start := time.Now()
		if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeBuildProject, nil); err != nil {
			return err
		}
		return formatter.Success("build finished in %s", time.Since(start).Round(time.Millisecond))
	})
}
