package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	"github.com/swiftwire/swiftwire/internal/infrastructure/watcher"
	"github.com/swiftwire/swiftwire/internal/presentation/cli/output"
)

// requireApp returns the initialized application context or an error for
// commands that cannot run without one.
func requireApp() (*AppContext, error) {
	app := GetAppContext()
	if app == nil || app.Container == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return app, nil
}

// withSession connects to the remote build host, runs fn, and disconnects.
// Commands that need a one-shot session share this wrapper.
func withSession(fn func(ctx context.Context, app *AppContext) error) error {
	app, err := requireApp()
	if err != nil {
		return err
	}

	ctx := app.Context()
	registerPushPrinters(app)

	if err := app.Container.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", app.Config.Remote.Host, err)
	}
	defer app.Container.SessionManager().Disconnect()

	return fn(ctx, app)
}

// registerPushPrinters routes unsolicited server messages to the terminal.
// Simulator frames are intentionally not printed; they are binary payloads
// consumed by the console command's frame counter.
func registerPushPrinters(app *AppContext) {
	formatter := app.Formatter
	correlator := app.Container.Correlator()

	correlator.OnPush(protocol.TypeBuildOutput, func(data json.RawMessage) {
		var payload protocol.BuildOutputPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		line := strings.TrimRight(payload.Line, "\n")
		if payload.Stream == "stderr" {
			formatter.Println("%s", formatter.Colorize(line, output.ColorYellow))
			return
		}
		formatter.Println("%s", line)
	})

	correlator.OnPush(protocol.TypeError, func(data json.RawMessage) {
		var payload protocol.ErrorPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		formatter.Error("remote: %s", payload.Message)
	})

	correlator.OnPush(protocol.TypeFileChanged, func(data json.RawMessage) {
		var payload protocol.FileChangedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		formatter.Info("remote file changed: %s", payload.Path)
	})

	correlator.OnPush(protocol.TypeDeviceList, func(data json.RawMessage) {
		var payload protocol.DeviceListPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		formatter.Info("device list updated (%d devices)", len(payload.Devices))
	})
}

// collectProjectFiles walks the project tree and returns every watched file
// as a sync entry, with project-relative slash-separated paths.
func collectProjectFiles(root string, extensions []string) ([]protocol.FileEntry, error) {
	if len(extensions) == 0 {
		extensions = []string{".swift"}
	}

	var entries []protocol.FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && watcher.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		matched := name == "Package.swift"
		if !matched {
			ext := strings.ToLower(filepath.Ext(name))
			for _, watched := range extensions {
				if ext == strings.ToLower(watched) {
					matched = true
					break
				}
			}
		}
		if !matched {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		entries = append(entries, protocol.FileEntry{
			Path:         filepath.ToSlash(rel),
			Content:      string(data),
			LastModified: info.ModTime().UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return entries, nil
}
