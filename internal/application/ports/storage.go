package ports

import (
	"context"

	"github.com/swiftwire/swiftwire/internal/domain/reload"
)

// HistoryStore persists reload results beyond process lifetime. Persistence
// is best effort: the in-memory bounded history is the source of truth and
// storage failures are logged, never fatal to a cycle.
type HistoryStore interface {
	Save(ctx context.Context, result reload.Result) error
	Recent(ctx context.Context, limit int) ([]reload.Result, error)
	Close() error
}
