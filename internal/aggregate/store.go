package aggregate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// defaultRefreshInterval is the periodic trigger cadence.
const defaultRefreshInterval = 60 * time.Second

// persistTimeout bounds the background snapshot write after a commit.
const persistTimeout = 15 * time.Second

// Snapshot is the externally visible state of the store. Consumers can
// distinguish "loading", "live with data", and "stale data with a visible
// warning": a non-empty LastError together with markets from an earlier
// UpdatedAt means every venue failed and the collection is stale.
type Snapshot struct {
	Markets   []domain.Market `json:"markets"`
	Loading   bool            `json:"loading"`
	LastError string          `json:"lastError,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store owns the live market collection and its refresh lifecycle: the
// periodic trigger, cancellation of superseded in-flight cycles, and atomic
// snapshot replacement. State is rebuilt off the hot path and swapped in
// whole; readers never observe a half-updated collection.
type Store struct {
	cycler   Cycler
	persist  domain.SnapshotStore // optional, nil disables persistence
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	snap        Snapshot
	venueErrs   []VenueError
	runCtx      context.Context
	cancelCycle context.CancelFunc
	cycleID     string
	subs        map[uint64]chan Snapshot
	nextSub     uint64
}

// NewStore creates a Store refreshing via the given cycler. persist may be
// nil. interval falls back to the 60-second default when non-positive.
func NewStore(cycler Cycler, persist domain.SnapshotStore, interval time.Duration, logger *slog.Logger) *Store {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Store{
		cycler:   cycler,
		persist:  persist,
		interval: interval,
		logger:   logger.With(slog.String("component", "aggregate_store")),
		subs:     make(map[uint64]chan Snapshot),
	}
}

// Seed pre-populates the collection, typically from the snapshot store on
// startup, so consumers see the last known view before the first cycle
// lands. It is a no-op once any markets are present.
func (s *Store) Seed(markets []domain.Market, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snap.Markets) > 0 || len(markets) == 0 {
		return
	}
	s.snap.Markets = markets
	s.snap.UpdatedAt = at
}

// Run triggers an immediate refresh and then re-triggers on the configured
// interval until ctx is cancelled. Teardown cancels any in-flight cycle.
func (s *Store) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.logger.Info("aggregate store starting", slog.Duration("interval", s.interval))
	s.Trigger()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.cancelCycle != nil {
				s.cancelCycle()
			}
			s.mu.Unlock()
			s.logger.Info("aggregate store stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Trigger()
		}
	}
}

// Trigger starts a refresh cycle. Any still-in-flight previous cycle is
// cancelled first so a newer trigger always wins over a slower, older cycle;
// the superseded cycle's result is additionally discarded at the commit
// boundary in case its fetches complete anyway.
func (s *Store) Trigger() {
	s.mu.Lock()
	base := s.runCtx
	if base == nil {
		base = context.Background()
	}
	if s.cancelCycle != nil {
		s.cancelCycle()
	}
	cycleCtx, cancel := context.WithCancel(base)
	s.cancelCycle = cancel
	id := uuid.NewString()
	s.cycleID = id
	s.snap.Loading = true
	// A fresh cycle clears the previous failure; it is re-reported if the
	// new cycle fails too.
	s.snap.LastError = ""
	snap := s.snap
	s.mu.Unlock()

	s.notify(snap)
	s.logger.Debug("refresh cycle started", slog.String("cycle_id", id))

	go func() {
		start := time.Now()
		markets, venueErrs, err := s.cycler.RunCycle(cycleCtx)
		s.commit(cycleCtx, id, markets, venueErrs, err, time.Since(start))
	}()
}

// Current returns the current snapshot. The markets slice is shared and must
// be treated as read-only; the store never mutates a committed collection.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// LastVenueErrors returns the per-venue failures of the most recently
// committed cycle. Partial failures live here without surfacing in Snapshot.
func (s *Store) LastVenueErrors() []VenueError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VenueError, len(s.venueErrs))
	copy(out, s.venueErrs)
	return out
}

// Subscribe registers for a snapshot push on every state transition. The
// returned cancel function must be called to release the subscription. Slow
// subscribers miss intermediate snapshots rather than blocking commits.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// commit applies one cycle's outcome. A superseded or torn-down cycle is
// discarded here with no error and no state change; this check, not fetch
// cancellation, is what guarantees out-of-order completions never clobber a
// newer result.
func (s *Store) commit(cycleCtx context.Context, id string, markets []domain.Market, venueErrs []VenueError, err error, took time.Duration) {
	s.mu.Lock()
	if id != s.cycleID || cycleCtx.Err() != nil {
		s.mu.Unlock()
		s.logger.Debug("discarding cycle result",
			slog.String("cycle_id", id),
			slog.String("reason", domain.ErrCycleSuperseded.Error()),
		)
		return
	}

	s.venueErrs = venueErrs
	s.snap.Loading = false

	var committed []domain.Market
	if err != nil {
		// Total failure: keep whatever collection we had. Stale beats empty.
		s.snap.LastError = err.Error()
	} else {
		committed = Normalize(markets)
		s.snap.Markets = committed
		s.snap.LastError = ""
		s.snap.UpdatedAt = time.Now().UTC()
	}
	snap := s.snap
	s.mu.Unlock()

	s.notify(snap)

	if err != nil {
		s.logger.Error("refresh cycle failed",
			slog.String("cycle_id", id),
			slog.Duration("took", took),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("refresh cycle committed",
		slog.String("cycle_id", id),
		slog.Duration("took", took),
		slog.Int("fetched", len(markets)),
		slog.Int("kept", len(committed)),
		slog.Int("venue_errors", len(venueErrs)),
	)

	if s.persist != nil {
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), persistTimeout)
			defer pcancel()
			if perr := s.persist.ReplaceAll(pctx, committed); perr != nil {
				s.logger.Warn("snapshot persist failed", slog.String("error", perr.Error()))
			}
		}()
	}
}

// notify pushes a snapshot to every subscriber without blocking.
func (s *Store) notify(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
