package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsAreDistinguishable(t *testing.T) {
	wrapped := fmt.Errorf("%w: build_project after 30s", ErrTimeout)

	if !errors.Is(wrapped, ErrTimeout) {
		t.Error("wrapped timeout must match ErrTimeout")
	}
	if errors.Is(wrapped, ErrNotConnected) {
		t.Error("timeout must not match ErrNotConnected")
	}
}

func TestRemoteError(t *testing.T) {
	err := NewRemoteError("compile error in main.swift")

	if !IsRemote(err) {
		t.Error("IsRemote must recognize a RemoteError")
	}
	if IsRemote(ErrTimeout) {
		t.Error("IsRemote must reject non-remote errors")
	}

	wrapped := fmt.Errorf("request failed: %w", err)
	var remote *RemoteError
	if !errors.As(wrapped, &remote) {
		t.Fatal("errors.As must unwrap to RemoteError")
	}
	if remote.Message != "compile error in main.swift" {
		t.Errorf("unexpected message %q", remote.Message)
	}
}

func TestSwiftwireErrorUnwrap(t *testing.T) {
	cause := ErrConnectionClosed
	err := NewError(CodeConnection, "send failed", cause)

	if !errors.Is(err, ErrConnectionClosed) {
		t.Error("SwiftwireError must unwrap to its cause")
	}
	if got := err.Error(); got == "" {
		t.Error("expected formatted error string")
	}
}

func TestWithContext(t *testing.T) {
	err := NewError(CodeReload, "cycle failed", nil)
	WithContext(err, "cycle_id", "abc")
	WithContext(err, "strategy", "full")

	if err.Context["cycle_id"] != "abc" || err.Context["strategy"] != "full" {
		t.Errorf("context not recorded: %v", err.Context)
	}
}
