package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
)

// NewConsoleCmd creates the console command.
func NewConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive console for the remote simulator",
		Long: `Open an interactive console against the remote simulator. Build and run
output stream into the console; input events are forwarded to the app.

Commands:
  tap <x> <y>     send a tap at the given coordinates
  type <text>     type text into the focused field
  key <name>      press a named key (return, escape, ...)
  reload          force a full rebuild and relaunch
  frames          show how many simulator frames have arrived
  exit            leave the console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole()
		},
	}
}

func runConsole() error {
	return withSession(func(ctx context.Context, app *AppContext) error {
		formatter := app.Formatter

		var frameCount atomic.Int64
		app.Container.Correlator().OnPush(protocol.TypeSimulatorFrame, func(data json.RawMessage) {
			frameCount.Add(1)
		})

		formatter.Header(fmt.Sprintf("Console: %s", app.Config.Remote.Host))
		formatter.Info("Type 'help' for commands, 'exit' to quit.")

		rl, err := readline.New("swiftwire> ")
		if err != nil {
			return fmt.Errorf("could not create readline: %w", err)
		}
		defer rl.Close()

		for {
			line, err := rl.Readline()
			if err == io.EOF || err == readline.ErrInterrupt {
				break
			}
			if err != nil {
				return err
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			exit, err := handleConsoleCommand(ctx, app, line, &frameCount)
			if err != nil {
				formatter.Error("%s", err.Error())
				continue
			}
			if exit {
				break
			}
		}

		formatter.Info("Console session ended.")
		return nil
	})
}

// handleConsoleCommand executes one console line. Returns (shouldExit, error).
func handleConsoleCommand(ctx context.Context, app *AppContext, line string, frameCount *atomic.Int64) (bool, error) {
	formatter := app.Formatter
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case "exit", "quit":
		return true, nil

	case "help":
		formatter.Item("tap <x> <y>", "send a tap at the given coordinates")
		formatter.Item("type <text>", "type text into the focused field")
		formatter.Item("key <name>", "press a named key")
		formatter.Item("reload", "force a full rebuild and relaunch")
		formatter.Item("frames", "show received simulator frame count")
		formatter.Item("exit", "leave the console")
		return false, nil

	case "tap":
		if len(parts) != 3 {
			return false, fmt.Errorf("usage: tap <x> <y>")
		}
		x, errX := strconv.ParseFloat(parts[1], 64)
		y, errY := strconv.ParseFloat(parts[2], 64)
		if errX != nil || errY != nil {
			return false, fmt.Errorf("tap coordinates must be numbers")
		}
		_, err := app.Container.SessionManager().Request(ctx, protocol.TypeSimulatorInput,
			protocol.SimulatorInputPayload{Kind: "tap", X: x, Y: y})
		return false, err

	case "type":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: type <text>")
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
		_, err := app.Container.SessionManager().Request(ctx, protocol.TypeSimulatorInput,
			protocol.SimulatorInputPayload{Kind: "text", Text: text})
		return false, err

	case "key":
		if len(parts) != 2 {
			return false, fmt.Errorf("usage: key <name>")
		}
		_, err := app.Container.SessionManager().Request(ctx, protocol.TypeSimulatorInput,
			protocol.SimulatorInputPayload{Kind: "key", Text: parts[1]})
		return false, err

	case "reload":
		app.Container.Orchestrator().ForceReload()
		formatter.Info("full reload triggered")
		return false, nil

	case "frames":
		formatter.Item("Frames received", fmt.Sprintf("%d", frameCount.Load()))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", command)
	}
}
