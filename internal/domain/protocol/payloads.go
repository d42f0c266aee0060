package protocol

import (
	"encoding/json"
	"fmt"

	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
)

// AuthenticatePayload opens a session for a user.
type AuthenticatePayload struct {
	Username string `json:"username"`
}

// FileEntry is one file in a sync or incremental-build request.
type FileEntry struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	LastModified int64  `json:"lastModified"` // unix milliseconds
}

// SyncFilePayload pushes a single file to the remote project tree.
type SyncFilePayload struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	LastModified int64  `json:"lastModified"`
}

// SyncProjectPayload pushes a set of files in one request.
type SyncProjectPayload struct {
	Files []FileEntry `json:"files"`
}

// DeleteFilePayload removes a file from the remote project tree.
type DeleteFilePayload struct {
	Path string `json:"path"`
}

// SelectDevicePayload picks the simulator/device builds run on.
type SelectDevicePayload struct {
	Device string `json:"device"`
}

// SimulatorInputPayload forwards an input event to the running simulator.
type SimulatorInputPayload struct {
	Kind string  `json:"kind"` // tap, text, key
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	Text string  `json:"text,omitempty"`
}

// PreviewUpdatePayload pushes a view-only change as a lightweight preview
// update, bypassing the compiler.
type PreviewUpdatePayload struct {
	Path       string   `json:"path"`
	Content    string   `json:"content"`
	Components []string `json:"components"`
}

// IncrementalBuildPayload ships the changed-file set plus the fingerprints
// swiftwire has cached for those paths, letting the remote executor skip
// files it already has.
type IncrementalBuildPayload struct {
	ChangedFiles []FileEntry       `json:"changedFiles"`
	BuildCache   map[string]string `json:"buildCache"` // path -> fingerprint
}

// IncrementalBuildResult is the response to an incremental_build request.
// The patch is opaque to swiftwire; it is handed back verbatim via
// apply_incremental_update.
type IncrementalBuildResult struct {
	Patch json.RawMessage `json:"patch"`
}

// ApplyIncrementalPayload applies a previously returned incremental patch.
type ApplyIncrementalPayload struct {
	Patch json.RawMessage `json:"patch"`
}

// Device describes one simulator or device known to the remote executor.
type Device struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	OS    string `json:"os"`
	State string `json:"state"`
}

// DeviceListPayload is both the get_devices response and the unsolicited
// device_list push.
type DeviceListPayload struct {
	Devices []Device `json:"devices"`
}

// BuildOutputPayload streams a line of build or run output.
type BuildOutputPayload struct {
	Stream string `json:"stream"` // stdout, stderr
	Line   string `json:"line"`
}

// SimulatorFramePayload carries one rendered simulator frame.
type SimulatorFramePayload struct {
	Data   string `json:"data"` // base64-encoded image
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// FileChangedPayload reports a file modified on the remote side.
type FileChangedPayload struct {
	Path string `json:"path"`
}

// ErrorPayload is the data shape of an "error" message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodePayload decodes a message's data into its typed payload. The type
// tag set is closed: an unrecognized tag yields ErrUnknownMessageType, which
// callers treat as a recoverable condition rather than a crash.
func DecodePayload(msgType string, data json.RawMessage) (any, error) {
	var payload any
	switch msgType {
	case TypeAuthenticate:
		payload = &AuthenticatePayload{}
	case TypeSyncFile:
		payload = &SyncFilePayload{}
	case TypeSyncProject:
		payload = &SyncProjectPayload{}
	case TypeDeleteFile:
		payload = &DeleteFilePayload{}
	case TypeSelectDevice:
		payload = &SelectDevicePayload{}
	case TypeSimulatorInput:
		payload = &SimulatorInputPayload{}
	case TypePreviewUpdate:
		payload = &PreviewUpdatePayload{}
	case TypeIncrementalBuild:
		payload = &IncrementalBuildPayload{}
	case TypeApplyIncremental:
		payload = &ApplyIncrementalPayload{}
	case TypeDeviceList:
		payload = &DeviceListPayload{}
	case TypeBuildOutput:
		payload = &BuildOutputPayload{}
	case TypeSimulatorFrame:
		payload = &SimulatorFramePayload{}
	case TypeFileChanged:
		payload = &FileChangedPayload{}
	case TypeError:
		payload = &ErrorPayload{}
	case TypeGetDevices, TypeBuildProject, TypeRunProject:
		// No data shape.
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrUnknownMessageType, msgType)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, payload); err != nil {
			return nil, domainErrors.NewError(domainErrors.CodeProtocol,
				fmt.Sprintf("invalid payload for message type %q", msgType), err)
		}
	}
	return payload, nil
}
