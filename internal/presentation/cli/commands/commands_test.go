package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand executes a cobra command with the given args.
func executeCommand(root *cobra.Command, args ...string) error {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	return root.Execute()
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd == nil {
		t.Fatal("NewRootCmd returned nil")
	}

	if cmd.Use != "swiftwire" {
		t.Errorf("expected Use='swiftwire', got %q", cmd.Use)
	}

	wantSubcmds := []string{
		"init", "watch", "status", "reload", "history",
		"devices", "build", "run", "sync", "console", "version",
	}
	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}

	for _, want := range wantSubcmds {
		if !subcmds[want] {
			t.Errorf("missing subcommand: %s", want)
		}
	}

	wantFlags := []string{"config", "output", "verbose", "host", "user", "project"}
	for _, flag := range wantFlags {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: %s", flag)
		}
	}
}

func TestVersionCmd_NoError(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"basic", []string{"version"}},
		{"short", []string{"version", "--short"}},
		{"json", []string{"version", "-o", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			if err := executeCommand(cmd, tt.args...); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewVersionCmd_Structure(t *testing.T) {
	cmd := NewVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("expected Use='version', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("short") == nil {
		t.Error("missing --short flag")
	}
}

func TestNewInitCmd_Structure(t *testing.T) {
	cmd := NewInitCmd()

	if cmd.Use != "init" {
		t.Errorf("expected Use='init', got %q", cmd.Use)
	}
	for _, flag := range []string{"host", "user", "port", "key", "project"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestInitCmd_RequiresHostAndUser(t *testing.T) {
	cmd := NewRootCmd()
	if err := executeCommand(cmd, "init"); err == nil {
		t.Error("expected error when host and user are missing")
	}
}

func TestNewWatchCmd_Structure(t *testing.T) {
	cmd := NewWatchCmd()

	if cmd.Use != "watch" {
		t.Errorf("expected Use='watch', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("skip-sync") == nil {
		t.Error("missing --skip-sync flag")
	}
}

func TestNewReloadCmd_Structure(t *testing.T) {
	cmd := NewReloadCmd()

	if cmd.Use != "reload" {
		t.Errorf("expected Use='reload', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("timeout") == nil {
		t.Error("missing --timeout flag")
	}
}

func TestNewHistoryCmd_Structure(t *testing.T) {
	cmd := NewHistoryCmd()

	if cmd.Use != "history" {
		t.Errorf("expected Use='history', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("limit") == nil {
		t.Error("missing --limit flag")
	}
}

func TestNewDevicesCmd_Structure(t *testing.T) {
	cmd := NewDevicesCmd()

	if cmd.Use != "devices" {
		t.Errorf("expected Use='devices', got %q", cmd.Use)
	}

	found := false
	for _, sub := range cmd.Commands() {
		if sub.Name() == "select" {
			found = true
			break
		}
	}
	if !found {
		t.Error("missing 'select' subcommand")
	}
}

func TestNewBuildCmd_Structure(t *testing.T) {
	cmd := NewBuildCmd()

	if cmd.Use != "build" {
		t.Errorf("expected Use='build', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("sync") == nil {
		t.Error("missing --sync flag")
	}
}

func TestNewRunCmd_Structure(t *testing.T) {
	cmd := NewRunCmd()

	if cmd.Use != "run" {
		t.Errorf("expected Use='run', got %q", cmd.Use)
	}
	if cmd.Flags().Lookup("build") == nil {
		t.Error("missing --build flag")
	}
}

func TestOnOff(t *testing.T) {
	if onOff(true) != "on" || onOff(false) != "off" {
		t.Error("unexpected onOff output")
	}
}

func TestJoinLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{name: "empty", lines: nil, want: "unknown error"},
		{name: "single", lines: []string{"a"}, want: "a"},
		{name: "multiple", lines: []string{"a", "b"}, want: "a; b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinLines(tt.lines); got != tt.want {
				t.Errorf("joinLines(%v) = %q, want %q", tt.lines, got, tt.want)
			}
		})
	}
}

func TestCollectProjectFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	mustWrite("Package.swift", "// swift-tools-version:5.9")
	mustWrite("Sources/App/Main.swift", "@main struct App {}")
	mustWrite("Sources/App/README.md", "docs")
	mustWrite(".build/cache/Generated.swift", "let x = 1")

	entries, err := collectProjectFiles(root, []string{".swift"})
	if err != nil {
		t.Fatalf("collectProjectFiles failed: %v", err)
	}

	paths := make(map[string]bool)
	for _, entry := range entries {
		paths[entry.Path] = true
		if entry.Content == "" {
			t.Errorf("entry %s has empty content", entry.Path)
		}
		if entry.LastModified == 0 {
			t.Errorf("entry %s has zero modification time", entry.Path)
		}
	}

	if !paths["Package.swift"] {
		t.Error("manifest must always be collected")
	}
	if !paths["Sources/App/Main.swift"] {
		t.Error("expected source file to be collected")
	}
	if paths["Sources/App/README.md"] {
		t.Error("non-source file must be excluded")
	}
	if paths[".build/cache/Generated.swift"] {
		t.Error("build artifacts must be excluded")
	}
}
