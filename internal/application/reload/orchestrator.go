package reload

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/swiftwire/swiftwire/internal/application/ports"
	"github.com/swiftwire/swiftwire/internal/domain/change"
	"github.com/swiftwire/swiftwire/internal/domain/protocol"
	domainReload "github.com/swiftwire/swiftwire/internal/domain/reload"
	"github.com/swiftwire/swiftwire/internal/infrastructure/fingerprint"
	"github.com/swiftwire/swiftwire/internal/infrastructure/logging"
	"github.com/swiftwire/swiftwire/internal/infrastructure/tracing"
)

// Batch-size ceilings for the cheap strategies.
const (
	DefaultDebounceDelay    = 1000 * time.Millisecond
	MaxPreviewBatchSize     = 3
	MaxIncrementalBatchSize = 10
)

// Config holds orchestrator configuration.
type Config struct {
	DebounceDelay      time.Duration
	PreviewEnabled     bool
	IncrementalEnabled bool
	HistoryCapacity    int
	Enabled            bool
}

// DefaultOrchestratorConfig returns the default reload configuration.
func DefaultOrchestratorConfig() Config {
	return Config{
		DebounceDelay:      DefaultDebounceDelay,
		PreviewEnabled:     true,
		IncrementalEnabled: true,
		HistoryCapacity:    domainReload.DefaultHistoryCapacity,
		Enabled:            true,
	}
}

// Orchestrator debounces file-edit events, classifies each drained batch,
// selects the cheapest correct reload strategy, and executes it against the
// remote executor. At most one cycle runs at a time: a trigger that arrives
// while a cycle is executing is skipped, and the edits it represents are
// picked up by the next debounce firing.
type Orchestrator struct {
	queue     *Queue
	requester ports.Requester
	cache     ports.BuildCache
	history   *domainReload.History
	store     ports.HistoryStore // optional, best-effort persistence
	logger    *logging.Logger
	tracer    *tracing.Tracer

	mu      sync.Mutex // guards timer, enabled, and config mutation
	timer   *time.Timer
	enabled bool
	config  Config

	// cycleActive is the sole mutual-exclusion mechanism between cycles.
	// It is set before the queue is drained and cleared only after cache
	// update and history append, covering the entire cycle body.
	cycleActive atomic.Bool

	onResult func(domainReload.Result)

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewOrchestrator creates a reload orchestrator. The store may be nil, in
// which case history is kept in memory only.
func NewOrchestrator(requester ports.Requester, cache ports.BuildCache, store ports.HistoryStore, cfg Config, logger *logging.Logger, tracer *tracing.Tracer) *Orchestrator {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		queue:     NewQueue(),
		requester: requester,
		cache:     cache,
		history:   domainReload.NewHistory(cfg.HistoryCapacity),
		store:     store,
		logger:    logger,
		tracer:    tracer,
		enabled:   cfg.Enabled,
		config:    cfg,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// OnResult registers a callback invoked with every cycle result. Used by
// the CLI to surface failures as low-severity notifications.
func (o *Orchestrator) OnResult(fn func(domainReload.Result)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResult = fn
}

// OnChange records a file edit and re-arms the debounce timer. Bursts of
// edits collapse into one cycle fired DebounceDelay after the last edit.
// While reloading is disabled the edit is still queued but no cycle is
// scheduled; queued edits ride along with the first cycle after reloading
// resumes.
func (o *Orchestrator) OnChange(path string, kind change.Kind, content string) {
	o.queue.Record(path, kind, content)

	o.mu.Lock()
	enabled := o.enabled
	o.mu.Unlock()
	if !enabled {
		return
	}
	o.armDebounce()
}

// OnConfigFileChange handles a project-manifest edit: it bypasses the
// debounce, clears the build cache entirely, and immediately forces a
// full-rebuild cycle. Manifest changes invalidate all cached assumptions.
func (o *Orchestrator) OnConfigFileChange(path, content string) {
	o.mu.Lock()
	enabled := o.enabled
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	if !enabled {
		return
	}

	o.cache.Clear()
	o.queue.Record(path, change.KindModified, content)
	o.logger.Info("manifest changed, forcing full rebuild", "path", path)
	go o.runCycle(true)
}

// ForceReload triggers an immediate full-rebuild cycle with whatever edits
// are queued (build and run are issued even when the queue is empty).
func (o *Orchestrator) ForceReload() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	go o.runCycle(true)
}

// Toggle flips the enabled flag and returns the new value. Disabling stops
// the armed debounce timer; queued edits are kept for when reloading is
// re-enabled.
func (o *Orchestrator) Toggle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = !o.enabled
	if !o.enabled && o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	return o.enabled
}

// Enabled reports whether change-driven reloading is active.
func (o *Orchestrator) Enabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enabled
}

// History returns the retained reload results, oldest first.
func (o *Orchestrator) History() []domainReload.Result {
	return o.history.All()
}

// PendingChanges returns the number of queued, not-yet-drained edits.
func (o *Orchestrator) PendingChanges() int {
	return o.queue.Len()
}

// Configuration returns a copy of the current configuration.
func (o *Orchestrator) Configuration() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	cfg := o.config
	cfg.Enabled = o.enabled
	return cfg
}

// UpdateConfiguration applies a partial configuration update.
func (o *Orchestrator) UpdateConfiguration(update func(*Config)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	update(&o.config)
	if o.config.DebounceDelay <= 0 {
		o.config.DebounceDelay = DefaultDebounceDelay
	}
	o.enabled = o.config.Enabled
}

// Close cancels any armed timer and the base context of future cycles.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.mu.Unlock()
	o.cancel()
}

// armDebounce (re)arms the debounce timer, cancelling any previously armed
// one so the cycle fires DebounceDelay after the last edit, not the first.
func (o *Orchestrator) armDebounce() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timer = time.AfterFunc(o.config.DebounceDelay, func() {
		o.runCycle(false)
	})
}

// runCycle executes one orchestration cycle: drain, classify, select a
// strategy, execute it, then update the cache and history. The guard covers
// the whole body; a concurrent trigger is skipped, never queued.
func (o *Orchestrator) runCycle(forceFull bool) {
	if !o.cycleActive.CompareAndSwap(false, true) {
		o.logger.Debug("skipping reload cycle, one already in progress")
		return
	}
	defer o.cycleActive.Store(false)

	batch := o.queue.DrainAll()
	if len(batch) == 0 && !forceFull {
		return
	}

	cycleID := uuid.NewString()
	ctx := logging.WithCycleID(o.baseCtx, cycleID)
	ctx, span := o.tracer.StartCycleSpan(ctx, cycleID, len(batch))
	started := time.Now()
	logging.LogCycleStart(ctx, o.logger, cycleID, len(batch))

	analysis := change.Classify(batch)
	strategy := o.selectStrategy(analysis, len(batch), forceFull)
	span.SetClassification(string(analysis.Classification), string(strategy), analysis.ForcesFullRebuild || forceFull)

	result := domainReload.Result{
		CycleID:        cycleID,
		Strategy:       strategy,
		Classification: analysis.Classification,
		FileCount:      len(batch),
		StartedAt:      started,
	}

	var execErr error
	switch strategy {
	case domainReload.StrategyPreview:
		execErr = o.executePreview(ctx, batch, &result)
	case domainReload.StrategyIncremental:
		execErr = o.executeIncremental(ctx, batch, &result)
	default:
		execErr = o.executeFull(ctx, batch, &result)
	}

	result.Duration = time.Since(started)
	result.Success = execErr == nil
	if execErr != nil {
		result.Errors = append(result.Errors, execErr.Error())
	}

	// Cache and history are updated on success and failure alike; the
	// guard is cleared by the deferred store above only after this runs.
	o.updateCache(batch)
	span.SetCacheSize(o.cache.Len())
	o.recordResult(ctx, result)

	if execErr != nil {
		logging.LogCycleFailed(ctx, o.logger, cycleID, string(strategy), execErr, result.Duration)
		span.EndWithError(execErr)
		return
	}
	logging.LogCycleComplete(ctx, o.logger, cycleID, string(strategy), result.Duration)
	span.End()
}

// selectStrategy picks the cheapest correct strategy; first matching rule
// wins.
func (o *Orchestrator) selectStrategy(analysis change.Analysis, batchSize int, forceFull bool) domainReload.Strategy {
	o.mu.Lock()
	cfg := o.config
	o.mu.Unlock()

	forced := forceFull || analysis.ForcesFullRebuild
	switch {
	case !forced && analysis.Classification == change.ClassInterfaceOnly &&
		cfg.PreviewEnabled && batchSize > 0 && batchSize <= MaxPreviewBatchSize:
		return domainReload.StrategyPreview
	case !forced && cfg.IncrementalEnabled && batchSize > 0 && batchSize <= MaxIncrementalBatchSize:
		return domainReload.StrategyIncremental
	default:
		return domainReload.StrategyFull
	}
}

// viewComponentPattern extracts SwiftUI component names for preview updates.
var viewComponentPattern = regexp.MustCompile(`(?m)\bstruct\s+(\w+)\s*:\s*(?:\w+\s*,\s*)*View\b`)

// executePreview pushes each changed view's content as a lightweight
// preview update. No compile happens on the remote side.
func (o *Orchestrator) executePreview(ctx context.Context, batch []change.Record, result *domainReload.Result) error {
	for _, rec := range batch {
		if rec.Kind == change.KindDeleted {
			if _, err := o.requester.Request(ctx, protocol.TypeDeleteFile,
				protocol.DeleteFilePayload{Path: rec.Path}); err != nil {
				return err
			}
			continue
		}

		components := extractComponents(rec.Content)
		if len(components) == 0 {
			result.Warnings = append(result.Warnings, "no view components found in "+rec.Path)
		}
		if _, err := o.requester.Request(ctx, protocol.TypePreviewUpdate, protocol.PreviewUpdatePayload{
			Path:       rec.Path,
			Content:    rec.Content,
			Components: components,
		}); err != nil {
			return err
		}
	}
	return nil
}

// executeIncremental ships the changed-file set plus cached fingerprints,
// then applies the returned patch.
func (o *Orchestrator) executeIncremental(ctx context.Context, batch []change.Record, result *domainReload.Result) error {
	files := make([]protocol.FileEntry, 0, len(batch))
	paths := make([]string, 0, len(batch))
	for _, rec := range batch {
		if rec.Kind == change.KindDeleted {
			if _, err := o.requester.Request(ctx, protocol.TypeDeleteFile,
				protocol.DeleteFilePayload{Path: rec.Path}); err != nil {
				return err
			}
			continue
		}
		files = append(files, protocol.FileEntry{
			Path:         rec.Path,
			Content:      rec.Content,
			LastModified: rec.CapturedAt.UnixMilli(),
		})
		paths = append(paths, rec.Path)
	}

	raw, err := o.requester.Request(ctx, protocol.TypeIncrementalBuild, protocol.IncrementalBuildPayload{
		ChangedFiles: files,
		BuildCache:   o.cache.Fingerprints(paths),
	})
	if err != nil {
		return err
	}

	var buildResult protocol.IncrementalBuildResult
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &buildResult); err != nil {
			result.Warnings = append(result.Warnings, "unparseable incremental build result, applying empty patch")
		}
	}

	_, err = o.requester.Request(ctx, protocol.TypeApplyIncremental,
		protocol.ApplyIncrementalPayload{Patch: buildResult.Patch})
	return err
}

// executeFull syncs every changed file to the remote project tree, then
// issues build and run requests in sequence.
func (o *Orchestrator) executeFull(ctx context.Context, batch []change.Record, result *domainReload.Result) error {
	for _, rec := range batch {
		if rec.Kind == change.KindDeleted {
			if _, err := o.requester.Request(ctx, protocol.TypeDeleteFile,
				protocol.DeleteFilePayload{Path: rec.Path}); err != nil {
				return err
			}
			continue
		}
		if _, err := o.requester.Request(ctx, protocol.TypeSyncFile, protocol.SyncFilePayload{
			Path:         rec.Path,
			Content:      rec.Content,
			LastModified: rec.CapturedAt.UnixMilli(),
		}); err != nil {
			return err
		}
	}

	if _, err := o.requester.Request(ctx, protocol.TypeBuildProject, nil); err != nil {
		return err
	}
	_, err := o.requester.Request(ctx, protocol.TypeRunProject, nil)
	return err
}

// updateCache records content, fingerprint, and timestamp for every path
// touched in the batch.
func (o *Orchestrator) updateCache(batch []change.Record) {
	now := time.Now()
	for _, rec := range batch {
		if rec.Kind == change.KindDeleted {
			continue
		}
		o.cache.Put(ports.BuildCacheEntry{
			Path:        rec.Path,
			Content:     rec.Content,
			Fingerprint: fingerprint.Hash(rec.Content),
			SyncedAt:    now,
		})
	}
}

// recordResult appends to the bounded history, persists best-effort, and
// notifies the result listener.
func (o *Orchestrator) recordResult(ctx context.Context, result domainReload.Result) {
	o.history.Append(result)

	if o.store != nil {
		if err := o.store.Save(ctx, result); err != nil {
			o.logger.WarnContext(ctx, "failed to persist reload result", "error", err.Error())
		}
	}

	o.mu.Lock()
	onResult := o.onResult
	o.mu.Unlock()
	if onResult != nil {
		onResult(result)
	}
}

// extractComponents pulls SwiftUI view type names out of file content.
func extractComponents(content string) []string {
	matches := viewComponentPattern.FindAllStringSubmatch(content, -1)
	components := make([]string, 0, len(matches))
	for _, m := range matches {
		components = append(components, m[1])
	}
	return components
}
