package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/swiftwire/swiftwire/internal/domain/change"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
	"github.com/swiftwire/swiftwire/internal/infrastructure/watcher"
)

// WatchServiceConfig holds configuration for the WatchService.
type WatchServiceConfig struct {
	// ProjectRoot is the local project tree being mirrored remotely.
	ProjectRoot string
	// StabilizeWindow is the watcher-level coalescing window for editors
	// that write files in multiple steps.
	StabilizeWindow time.Duration
	// Extensions are the file suffixes watched.
	Extensions []string
}

// WatchService couples the file watcher to the reload orchestrator: it
// reads changed file content, converts watch events into change records,
// and routes manifest edits onto the forced-rebuild path.
type WatchService struct {
	orchestrator *Orchestrator
	watcher      *watcher.Watcher
	logger       *logging.Logger
	config       WatchServiceConfig

	running bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatchService creates a WatchService over the given project root.
func NewWatchService(cfg WatchServiceConfig, orchestrator *Orchestrator, logger *logging.Logger) (*WatchService, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}

	if logger == nil {
		logger = logging.Default()
	}

	w, err := watcher.NewWatcher(watcher.Config{
		StabilizeWindow: cfg.StabilizeWindow,
		Extensions:      cfg.Extensions,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &WatchService{
		orchestrator: orchestrator,
		watcher:      w,
		logger:       logger,
		config:       cfg,
	}, nil
}

// Start begins watching the project root. Idempotent.
func (s *WatchService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if err := s.watcher.Watch(ctx, s.config.ProjectRoot); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.config.ProjectRoot, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.eventLoop()

	s.logger.Info("watching project", "root", s.config.ProjectRoot)
	return nil
}

// Stop stops watching. Idempotent.
func (s *WatchService) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

// eventLoop forwards stabilized watch events into the orchestrator.
func (s *WatchService) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case event, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors():
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err.Error())
		}
	}
}

// handleEvent converts one watch event into an orchestrator call. Paths are
// made project-relative so the remote tree mirrors the local layout.
func (s *WatchService) handleEvent(event watcher.Event) {
	relPath, err := filepath.Rel(s.config.ProjectRoot, event.Path)
	if err != nil {
		relPath = event.Path
	}
	relPath = filepath.ToSlash(relPath)

	kind := change.KindModified
	content := ""
	switch event.Type {
	case watcher.EventCreate:
		kind = change.KindCreated
	case watcher.EventRemove, watcher.EventRename:
		kind = change.KindDeleted
	}

	if kind != change.KindDeleted {
		data, err := os.ReadFile(event.Path)
		if err != nil {
			// The file may have been deleted between the event and the
			// read; treat it as a deletion.
			if os.IsNotExist(err) {
				kind = change.KindDeleted
			} else {
				s.logger.Warn("failed to read changed file",
					"path", event.Path, "error", err.Error())
				return
			}
		} else {
			content = string(data)
		}
	}

	if filepath.Base(relPath) == change.ManifestFile {
		s.orchestrator.OnConfigFileChange(relPath, content)
		return
	}
	s.orchestrator.OnChange(relPath, kind, content)
}
