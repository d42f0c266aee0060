// Package change defines file-edit records and the pure classification logic
// that decides how expensive it is to re-materialize a batch of edits on the
// remote build host.
package change

import "time"

// Kind is the kind of edit captured for a path.
type Kind string

const (
	KindModified Kind = "modified"
	KindCreated  Kind = "created"
	KindDeleted  Kind = "deleted"
)

// Record is one queued file edit. Records for the same path coalesce
// last-write-wins before a reload cycle consumes them.
type Record struct {
	Path       string
	Kind       Kind
	Content    string // empty for deletions
	CapturedAt time.Time
}

// NewRecord captures an edit at the current time.
func NewRecord(path string, kind Kind, content string) Record {
	return Record{
		Path:       path,
		Kind:       kind,
		Content:    content,
		CapturedAt: time.Now(),
	}
}
