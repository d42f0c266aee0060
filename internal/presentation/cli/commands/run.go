package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var build bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch the project on the selected device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(build)
		},
	}

	cmd.Flags().BoolVar(&build, "build", true, "build before launching")

	return cmd
}

func runRun(build bool) error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		if build {
			if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeBuildProject, nil); err != nil {
				return err
			}
		}
		if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeRunProject, nil); err != nil {
			return err
		}
		return app.Formatter.Success("app launched")
	})
}
