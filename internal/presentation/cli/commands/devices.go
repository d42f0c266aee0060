package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// NewDevicesCmd creates the devices command group.
func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List and select remote simulators and devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevicesList()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "select <device-id>",
		Short: "Select the device builds run on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevicesSelect(args[0])
		},
	})

	return cmd
}

func runDevicesList() error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		formatter := app.Formatter

		raw, err := app.Container.SessionManager().Request(ctx, protocol.TypeGetDevices, nil)
		if err != nil {
			return err
		}

		var payload protocol.DeviceListPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("invalid device list response: %w", err)
		}

		if formatter.Format() == output.FormatJSON {
			return formatter.JSON(payload.Devices)
		}

		if len(payload.Devices) == 0 {
			formatter.Info("no devices available on %s", app.Config.Remote.Host)
			return nil
		}

		rows := make([][]string, 0, len(payload.Devices))
		for _, device := range payload.Devices {
			rows = append(rows, []string{device.ID, device.Name, device.OS, device.State})
		}
		return formatter.Table([]string{"ID", "NAME", "OS", "STATE"}, rows)
	})
}

func runDevicesSelect(deviceID string) error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		if _, err := app.Container.SessionManager().Request(ctx, protocol.TypeSelectDevice,
			protocol.SelectDevicePayload{Device: deviceID}); err != nil {
			return err
		}
		return app.Formatter.Success("selected device %s", deviceID)
	})
}
