// Package reload defines the outcome model for reload cycles: the strategy
// chosen for a batch of edits, the per-cycle result, and a bounded history
// of past results.
package reload

import (
	"sync"
	"time"

	"github.com/swiftwire/swiftwire/internal/domain/change"
)

// Strategy is the cost/correctness tradeoff chosen for one cycle.
type Strategy string

const (
	StrategyPreview     Strategy = "preview"
	StrategyIncremental Strategy = "incremental"
	StrategyFull        Strategy = "full"
)

// Result is the outcome of one orchestration cycle.
type Result struct {
	CycleID        string
	Success        bool
	Strategy       Strategy
	Classification change.Classification
	FileCount      int
	Duration       time.Duration
	StartedAt      time.Time
	Errors         []string
	Warnings       []string
}

// DefaultHistoryCapacity bounds the retained reload history.
const DefaultHistoryCapacity = 50

// History is a bounded, thread-safe log of reload results. Oldest entries
// are evicted once capacity is exceeded.
type History struct {
	mu       sync.Mutex
	capacity int
	results  []Result
}

// NewHistory creates a history with the given capacity. Non-positive
// capacities fall back to the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Append records a result, evicting the oldest entry when full.
func (h *History) Append(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append(h.results, r)
	if len(h.results) > h.capacity {
		h.results = h.results[len(h.results)-h.capacity:]
	}
}

// All returns a copy of the retained results, oldest first.
func (h *History) All() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Result, len(h.results))
	copy(out, h.results)
	return out
}

// Len returns the number of retained results.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}
