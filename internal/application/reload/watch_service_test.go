package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	domainReload "github.com/swiftwire/swiftwire/internal/domain/reload"
)

func newWatchHarness(t *testing.T) (*testHarness, *WatchService, string) {
	t.Helper()

	h := newTestHarness(t, 50*time.Millisecond)
	root := t.TempDir()

	service, err := NewWatchService(WatchServiceConfig{
		ProjectRoot:     root,
		StabilizeWindow: 30 * time.Millisecond,
	}, h.orchestrator, nil)
	if err != nil {
		t.Fatalf("NewWatchService failed: %v", err)
	}

	if err := service.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { service.Stop() })

	return h, service, root
}

func TestWatchServiceTriggersReloadCycle(t *testing.T) {
	h, _, root := newWatchHarness(t)

	path := filepath.Join(root, "Calculator.swift")
	if err := os.WriteFile(path, []byte(testLogicContent), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	result := h.waitResult(t)
	if !result.Success {
		t.Errorf("expected successful cycle, got errors %v", result.Errors)
	}
	if result.FileCount != 1 {
		t.Errorf("expected 1 file in cycle, got %d", result.FileCount)
	}
}

func TestWatchServiceUsesRelativePaths(t *testing.T) {
	h, _, root := newWatchHarness(t)

	dir := filepath.Join(root, "Sources", "App")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	// Give the watcher a moment to register the new directories.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "Model.swift"), []byte(testLogicContent), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	h.waitResult(t)

	var payload *protocol.IncrementalBuildPayload
	h.requester.mu.Lock()
	for _, call := range h.requester.calls {
		if call.msgType == protocol.TypeIncrementalBuild {
			if p, ok := call.data.(protocol.IncrementalBuildPayload); ok {
				payload = &p
			}
		}
	}
	h.requester.mu.Unlock()

	if payload == nil {
		t.Fatal("expected an incremental_build request")
	}
	found := false
	for _, file := range payload.ChangedFiles {
		if filepath.IsAbs(file.Path) {
			t.Errorf("expected project-relative path, got %q", file.Path)
		}
		if file.Path == "Sources/App/Model.swift" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Sources/App/Model.swift in changed files, got %+v", payload.ChangedFiles)
	}
}

func TestWatchServiceManifestEditForcesFullCycle(t *testing.T) {
	h, _, root := newWatchHarness(t)

	manifest := filepath.Join(root, "Package.swift")
	if err := os.WriteFile(manifest, []byte("// swift-tools-version:5.9"), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	result := h.waitResult(t)
	if result.Strategy != domainReload.StrategyFull {
		t.Errorf("expected full strategy for manifest edit, got %s", result.Strategy)
	}
	if h.requester.countOf("build_project") != 1 {
		t.Errorf("expected one build_project request, got %d", h.requester.countOf("build_project"))
	}
}

func TestWatchServiceStartStopIdempotent(t *testing.T) {
	_, service, _ := newWatchHarness(t)

	if err := service.Start(context.Background()); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if err := service.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := service.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestNewWatchServiceValidation(t *testing.T) {
	h := newTestHarness(t, 50*time.Millisecond)

	if _, err := NewWatchService(WatchServiceConfig{}, h.orchestrator, nil); err == nil {
		t.Error("expected error for missing project root")
	}
	if _, err := NewWatchService(WatchServiceConfig{ProjectRoot: "/tmp"}, nil, nil); err == nil {
		t.Error("expected error for missing orchestrator")
	}
}
