package ports

import "time"

// BuildCacheEntry records the last content synced to the remote host for one
// path. The fingerprint is a fast non-cryptographic digest used only for
// change detection; it never backs a correctness-critical decision.
type BuildCacheEntry struct {
	Path        string
	Content     string
	Fingerprint string
	SyncedAt    time.Time
}

// BuildCache is per-path bookkeeping that lets the remote executor skip
// redundant work. Entries are only invalidated by an explicit Clear on
// manifest change; there is no size or age eviction.
type BuildCache interface {
	Get(path string) (BuildCacheEntry, bool)
	Put(entry BuildCacheEntry)
	Clear()
	Len() int
	// Fingerprints returns the cached fingerprints for the given paths,
	// omitting paths with no entry.
	Fingerprints(paths []string) map[string]string
}
