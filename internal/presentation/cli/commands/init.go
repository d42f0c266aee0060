package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/infrastructure/config"
	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var (
		host    string
		user    string
		port    int
		keyFile string
		project string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write ~/.swiftwire/config.yaml with the given remote endpoint and
project root. Existing configuration is overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(host, user, port, keyFile, project)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "remote build host")
	cmd.Flags().StringVar(&user, "user", "", "remote user")
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "remote SSH port")
	cmd.Flags().StringVar(&keyFile, "key", "", "SSH private key file")
	cmd.Flags().StringVar(&project, "project", ".", "project root")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runInit(host, user string, port int, keyFile, project string) error {
	formatter := output.NewFormatter(output.WithColor(output.IsColorSupported()))

	loader, err := config.NewLoader("")
	if err != nil {
		return err
	}

	cfg := config.NewDefaultConfig()
	cfg.Remote.Host = host
	cfg.Remote.User = user
	cfg.Remote.Port = port
	cfg.Remote.KeyFile = keyFile
	if abs, err := filepath.Abs(project); err == nil {
		cfg.Project.Root = abs
	} else {
		cfg.Project.Root = project
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := loader.Save(cfg); err != nil {
		return err
	}

	formatter.Success("Wrote %s", filepath.Join(loader.Dir(), "config.yaml"))
	formatter.Info("Run 'swiftwire watch' to start the reload loop")
	return nil
}
