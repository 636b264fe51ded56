package domain

import "context"

// SnapshotStore persists the most recently committed market collection so a
// restarted process can serve the last known view before its first refresh
// cycle completes. It holds exactly one generation of markets, not history.
type SnapshotStore interface {
	// ReplaceAll atomically replaces the persisted collection.
	ReplaceAll(ctx context.Context, markets []Market) error
	// LoadAll returns the persisted collection ordered by trailing 24h
	// volume descending. An empty result is not an error.
	LoadAll(ctx context.Context) ([]Market, error)
}
