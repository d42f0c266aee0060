package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// StatusInfo holds session and reload status for JSON output.
type StatusInfo struct {
	Host               string `json:"host"`
	ProjectRoot        string `json:"project_root"`
	State              string `json:"state"`
	Connected          bool   `json:"connected"`
	ReloadEnabled      bool   `json:"reload_enabled"`
	PreviewEnabled     bool   `json:"preview_enabled"`
	IncrementalEnabled bool   `json:"incremental_enabled"`
	PendingChanges     int    `json:"pending_changes"`
	PendingRequests    int    `json:"pending_requests"`
	CachedFiles        int    `json:"cached_files"`
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection and reload status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	app, err := requireApp()
	if err != nil {
		return err
	}
	formatter := app.Formatter
	container := app.Container

	reloadCfg := container.Orchestrator().Configuration()
	info := StatusInfo{
		Host:               app.Config.Remote.Host,
		ProjectRoot:        app.Config.Project.Root,
		State:              string(container.SessionManager().State()),
		Connected:          container.SessionManager().IsConnected(),
		ReloadEnabled:      reloadCfg.Enabled,
		PreviewEnabled:     reloadCfg.PreviewEnabled,
		IncrementalEnabled: reloadCfg.IncrementalEnabled,
		PendingChanges:     container.Orchestrator().PendingChanges(),
		PendingRequests:    container.Correlator().PendingCount(),
		CachedFiles:        container.BuildCache().Len(),
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(info)
	}

	formatter.Header("Swiftwire Status")
	formatter.Item("Remote", info.Host)
	formatter.Item("Project", info.ProjectRoot)
	formatter.Item("State", info.State)
	formatter.Item("Reload", onOff(info.ReloadEnabled))
	formatter.Item("Preview", onOff(info.PreviewEnabled))
	formatter.Item("Incremental", onOff(info.IncrementalEnabled))
	formatter.Item("Pending changes", fmt.Sprintf("%d", info.PendingChanges))
	formatter.Item("Pending requests", fmt.Sprintf("%d", info.PendingRequests))
	formatter.Item("Cached files", fmt.Sprintf("%d", info.CachedFiles))
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
