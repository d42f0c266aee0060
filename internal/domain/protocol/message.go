// Package protocol defines the wire protocol spoken between swiftwire and
// the remote executor. Every message, in both directions, is a single JSON
// envelope: a string type tag, a type-shaped data payload, and an optional
// correlation id. The id is present exactly when the message is a request
// awaiting a correlated response.
package protocol

import (
	"encoding/json"
	"fmt"

	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
)

// Request types sent to the remote executor.
const (
	TypeAuthenticate     = "authenticate"
	TypeSyncFile         = "sync_file"
	TypeSyncProject      = "sync_project"
	TypeDeleteFile       = "delete_file"
	TypeGetDevices       = "get_devices"
	TypeSelectDevice     = "select_device"
	TypeBuildProject     = "build_project"
	TypeRunProject       = "run_project"
	TypeSimulatorInput   = "simulator_input"
	TypePreviewUpdate    = "swiftui_preview_update"
	TypeIncrementalBuild = "incremental_build"
	TypeApplyIncremental = "apply_incremental_update"
)

// Push notification types initiated by the remote executor.
const (
	TypeSimulatorFrame = "simulator_frame"
	TypeBuildOutput    = "build_output"
	TypeDeviceList     = "device_list"
	TypeFileChanged    = "file_changed"
	TypeError          = "error"
)

// ResponseSuffix is appended to a request type to form its response type.
// A request of type "build_project" is answered with "build_project_response"
// carrying the same id.
const ResponseSuffix = "_response"

// Message is the wire envelope for both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	ID   string          `json:"id,omitempty"`
}

// NewRequest builds a request envelope with the given correlation id.
func NewRequest(id, msgType string, data any) (*Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Data: raw, ID: id}, nil
}

// NewNotification builds an uncorrelated envelope.
func NewNotification(msgType string, data any) (*Message, error) {
	raw, err := marshalData(data)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Data: raw}, nil
}

func marshalData(data any) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeProtocol, "failed to marshal message data", err)
	}
	return raw, nil
}

// Encode serializes the envelope to a single JSON line (without the trailing
// newline; the transport owns framing).
func (m *Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeProtocol, "failed to encode message", err)
	}
	return data, nil
}

// Decode parses a wire envelope. Malformed JSON and missing type tags are
// protocol errors; an unknown type tag is not detected here, only when the
// payload is decoded.
func Decode(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeProtocol, "malformed message", err)
	}
	if m.Type == "" {
		return nil, domainErrors.NewError(domainErrors.CodeProtocol, "message missing type tag", nil)
	}
	return &m, nil
}

// IsResponse reports whether the message type is a response to a request.
func (m *Message) IsResponse() bool {
	if m.Type == TypeError && m.ID != "" {
		return true
	}
	return m.ID != "" && len(m.Type) > len(ResponseSuffix) &&
		m.Type[len(m.Type)-len(ResponseSuffix):] == ResponseSuffix
}

// IsError reports whether the message carries an explicit error payload.
func (m *Message) IsError() bool {
	return m.Type == TypeError
}

// ErrorMessage extracts the message text from an error payload. Returns a
// generic description when the payload does not decode.
func (m *Message) ErrorMessage() string {
	var p ErrorPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.Message == "" {
		return fmt.Sprintf("unparseable error payload for message type %q", m.Type)
	}
	return p.Message
}
