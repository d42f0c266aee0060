package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainReload "github.com/swiftwire/swiftwire/internal/domain/reload"
)

// NewReloadCmd creates the reload command.
func NewReloadCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Force a full rebuild and relaunch",
		Long: `Connect to the remote build host and run one full build-and-run cycle
regardless of what has changed locally.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReload(timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to wait for the cycle")

	return cmd
}

func runReload(timeout time.Duration) error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		done := make(chan domainReload.Result, 1)
		app.Container.Orchestrator().OnResult(func(result domainReload.Result) {
			select {
			case done <- result:
			default:
			}
		})

		app.Formatter.Info("forcing full reload...")
		app.Container.Orchestrator().ForceReload()

		select {
		case result := <-done:
			printReloadResult(app, result)
			if !result.Success {
				return fmt.Errorf("reload failed")
			}
			return nil
		case <-time.After(timeout):
			return fmt.Errorf("reload did not complete within %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
