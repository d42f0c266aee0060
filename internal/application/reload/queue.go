// Package reload contains the change-driven reload pipeline: the queue that
// coalesces raw file-edit events and the orchestrator that turns batches of
// edits into remote reload cycles.
package reload

import (
	"sort"
	"sync"

	"github.com/swiftwire/swiftwire/internal/domain/change"
)

// Queue accumulates file-edit events keyed by path. Repeated edits to the
// same path coalesce last-write-wins; the map never holds more than one
// record per path. Safe for concurrent use: file-system event delivery may
// record new edits while a reload cycle drains the queue.
type Queue struct {
	mu      sync.Mutex
	records map[string]change.Record
}

// NewQueue creates an empty change queue.
func NewQueue() *Queue {
	return &Queue{records: make(map[string]change.Record)}
}

// Record upserts the change record for a path, overwriting any pending
// record for the same path.
func (q *Queue) Record(path string, kind change.Kind, content string) {
	q.Put(change.NewRecord(path, kind, content))
}

// Put upserts a pre-built record.
func (q *Queue) Put(rec change.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.records[rec.Path] = rec
}

// DrainAll atomically empties the queue and returns its contents ordered by
// capture time (path as tie-break, for determinism).
func (q *Queue) DrainAll() []change.Record {
	q.mu.Lock()
	drained := make([]change.Record, 0, len(q.records))
	for _, rec := range q.records {
		drained = append(drained, rec)
	}
	q.records = make(map[string]change.Record)
	q.mu.Unlock()

	sort.Slice(drained, func(i, j int) bool {
		if drained[i].CapturedAt.Equal(drained[j].CapturedAt) {
			return drained[i].Path < drained[j].Path
		}
		return drained[i].CapturedAt.Before(drained[j].CapturedAt)
	})
	return drained
}

// Len returns the number of pending records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}
