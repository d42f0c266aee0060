package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg, err := NewRequest("req-1", TypeSyncFile, SyncFilePayload{
		Path:         "Sources/App/main.swift",
		Content:      "print(\"hi\")",
		LastModified: 1700000000000,
	})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}

	raw, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Type != TypeSyncFile {
		t.Errorf("expected type %q, got %q", TypeSyncFile, decoded.Type)
	}
	if decoded.ID != "req-1" {
		t.Errorf("expected id req-1, got %q", decoded.ID)
	}

	var payload SyncFilePayload
	if err := json.Unmarshal(decoded.Data, &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if payload.Path != "Sources/App/main.swift" {
		t.Errorf("unexpected path %q", payload.Path)
	}
}

func TestNotificationHasNoID(t *testing.T) {
	msg, err := NewNotification(TypeBuildOutput, BuildOutputPayload{Stream: "stdout", Line: "Compiling..."})
	if err != nil {
		t.Fatalf("NewNotification failed: %v", err)
	}

	raw, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(raw) == "" {
		t.Fatal("empty encoding")
	}

	decoded, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.ID != "" {
		t.Errorf("notification should carry no id, got %q", decoded.ID)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "malformed json", raw: `{"type": "sync_file"`},
		{name: "missing type", raw: `{"data": {}, "id": "x"}`},
		{name: "empty type", raw: `{"type": "", "id": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.raw)); err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}

func TestIsResponse(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{name: "response with id", msg: Message{Type: "build_project_response", ID: "1"}, want: true},
		{name: "response without id", msg: Message{Type: "build_project_response"}, want: false},
		{name: "error with id", msg: Message{Type: TypeError, ID: "1"}, want: true},
		{name: "error without id", msg: Message{Type: TypeError}, want: false},
		{name: "request", msg: Message{Type: TypeBuildProject, ID: "1"}, want: false},
		{name: "push", msg: Message{Type: TypeBuildOutput}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.IsResponse(); got != tt.want {
				t.Errorf("IsResponse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	msg := Message{Type: TypeError, Data: json.RawMessage(`{"message": "build failed"}`)}
	if got := msg.ErrorMessage(); got != "build failed" {
		t.Errorf("unexpected error message %q", got)
	}

	garbled := Message{Type: TypeError, Data: json.RawMessage(`not json`)}
	if got := garbled.ErrorMessage(); got == "" {
		t.Error("expected fallback description for unparseable payload")
	}
}

func TestDecodePayloadKnownTypes(t *testing.T) {
	raw := json.RawMessage(`{"devices": [{"id": "sim-1", "name": "iPhone 16", "os": "iOS 18.0", "state": "booted"}]}`)
	payload, err := DecodePayload(TypeDeviceList, raw)
	if err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}

	devices, ok := payload.(*DeviceListPayload)
	if !ok {
		t.Fatalf("expected *DeviceListPayload, got %T", payload)
	}
	if len(devices.Devices) != 1 || devices.Devices[0].ID != "sim-1" {
		t.Errorf("unexpected devices %+v", devices.Devices)
	}
}

func TestDecodePayloadUnknownType(t *testing.T) {
	_, err := DecodePayload("future_feature", json.RawMessage(`{}`))
	if !errors.Is(err, domainErrors.ErrUnknownMessageType) {
		t.Errorf("expected ErrUnknownMessageType, got %v", err)
	}
}
