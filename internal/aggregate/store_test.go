package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// scriptedCycler dispatches each RunCycle call, in order, to fn with the
// zero-based call number.
type scriptedCycler struct {
	fn func(call int, ctx context.Context) ([]domain.Market, []VenueError, error)

	mu    sync.Mutex
	calls int
}

func (c *scriptedCycler) RunCycle(ctx context.Context) ([]domain.Market, []VenueError, error) {
	c.mu.Lock()
	n := c.calls
	c.calls++
	c.mu.Unlock()
	return c.fn(n, ctx)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestStoreCommitsSuccessfulCycle(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(_ int, _ context.Context) ([]domain.Market, []VenueError, error) {
			return []domain.Market{
				mk("m1", domain.PlatformPolymarket, domain.MarketStatusActive, 0.6, 100),
				mk("m2", domain.PlatformKalshi, domain.MarketStatusActive, 0.4, 500),
			}, nil, nil
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())
	s.Trigger()

	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && len(snap.Markets) == 2
	})

	snap := s.Current()
	assert.Empty(t, snap.LastError)
	assert.False(t, snap.UpdatedAt.IsZero())
	assert.Equal(t, "m2", snap.Markets[0].ID)
	assert.Equal(t, "m1", snap.Markets[1].ID)
}

func TestStoreDiscardsSupersededCycle(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	cycler := &scriptedCycler{
		fn: func(call int, _ context.Context) ([]domain.Market, []VenueError, error) {
			if call == 0 {
				close(started)
				<-release
				return []domain.Market{
					mk("old", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 10),
				}, nil, nil
			}
			return []domain.Market{
				mk("new", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 10),
			}, nil, nil
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())
	s.Trigger()
	<-started
	s.Trigger()

	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && len(snap.Markets) == 1 && snap.Markets[0].ID == "new"
	})

	// Let the superseded first cycle finish; its result must be dropped.
	close(release)
	assert.Never(t, func() bool {
		snap := s.Current()
		return len(snap.Markets) != 1 || snap.Markets[0].ID != "new"
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestStoreTotalFailureKeepsStaleMarkets(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(call int, _ context.Context) ([]domain.Market, []VenueError, error) {
			switch call {
			case 0:
				return []domain.Market{
					mk("keep", domain.PlatformOpinion, domain.MarketStatusActive, 0.5, 10),
				}, nil, nil
			case 1:
				venueErrs := []VenueError{
					{Platform: domain.PlatformPolymarket, Message: "down"},
					{Platform: domain.PlatformKalshi, Message: "down"},
					{Platform: domain.PlatformOpinion, Message: "down"},
				}
				return nil, venueErrs, errors.New("all venues failed: everything down")
			default:
				return []domain.Market{
					mk("fresh", domain.PlatformOpinion, domain.MarketStatusActive, 0.5, 10),
				}, nil, nil
			}
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())

	s.Trigger()
	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && len(snap.Markets) == 1
	})
	firstUpdate := s.Current().UpdatedAt

	s.Trigger()
	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && snap.LastError != ""
	})

	snap := s.Current()
	require.Len(t, snap.Markets, 1)
	assert.Equal(t, "keep", snap.Markets[0].ID)
	assert.Equal(t, firstUpdate, snap.UpdatedAt)
	assert.Len(t, s.LastVenueErrors(), 3)

	s.Trigger()
	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && snap.LastError == "" && len(snap.Markets) == 1 && snap.Markets[0].ID == "fresh"
	})
	assert.Empty(t, s.LastVenueErrors())
}

func TestStoreTriggerClearsLastError(t *testing.T) {
	release := make(chan struct{})
	cycler := &scriptedCycler{
		fn: func(call int, _ context.Context) ([]domain.Market, []VenueError, error) {
			if call == 0 {
				return nil, nil, errors.New("all venues failed: everything down")
			}
			<-release
			return []domain.Market{
				mk("fresh", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 10),
			}, nil, nil
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())

	s.Trigger()
	waitFor(t, func() bool {
		snap := s.Current()
		return !snap.Loading && snap.LastError != ""
	})

	// Starting a new cycle drops the stale failure while it runs.
	s.Trigger()
	snap := s.Current()
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.LastError)

	close(release)
	waitFor(t, func() bool { return !s.Current().Loading })
	assert.Empty(t, s.Current().LastError)
}

func TestStorePartialFailureNotSurfaced(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(_ int, _ context.Context) ([]domain.Market, []VenueError, error) {
			markets := []domain.Market{
				mk("ok", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 10),
			}
			return markets, []VenueError{{Platform: domain.PlatformKalshi, Message: "timeout"}}, nil
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())
	s.Trigger()

	waitFor(t, func() bool { return !s.Current().Loading })

	snap := s.Current()
	assert.Empty(t, snap.LastError)
	assert.Len(t, snap.Markets, 1)
	require.Len(t, s.LastVenueErrors(), 1)
	assert.Equal(t, domain.PlatformKalshi, s.LastVenueErrors()[0].Platform)
}

func TestStoreSeed(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(_ int, _ context.Context) ([]domain.Market, []VenueError, error) {
			return nil, nil, nil
		},
	}
	s := NewStore(cycler, nil, time.Hour, testLogger())

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.Seed([]domain.Market{
		mk("seeded", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 10),
	}, at)

	snap := s.Current()
	require.Len(t, snap.Markets, 1)
	assert.Equal(t, "seeded", snap.Markets[0].ID)
	assert.Equal(t, at, snap.UpdatedAt)

	// Already populated, second seed is ignored.
	s.Seed([]domain.Market{
		mk("other", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 10),
	}, at.Add(time.Hour))
	assert.Equal(t, "seeded", s.Current().Markets[0].ID)
	assert.Equal(t, at, s.Current().UpdatedAt)
}

func TestStoreSubscribe(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(_ int, _ context.Context) ([]domain.Market, []VenueError, error) {
			return []domain.Market{
				mk("m", domain.PlatformOpinion, domain.MarketStatusActive, 0.5, 10),
			}, nil, nil
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Trigger()

	recv := func() Snapshot {
		select {
		case snap := <-ch:
			return snap
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
			return Snapshot{}
		}
	}

	first := recv()
	assert.True(t, first.Loading)

	second := recv()
	assert.False(t, second.Loading)
	require.Len(t, second.Markets, 1)
	assert.Equal(t, "m", second.Markets[0].ID)
}

func TestStoreRunStopsOnContextCancel(t *testing.T) {
	cycler := &scriptedCycler{
		fn: func(_ int, ctx context.Context) ([]domain.Market, []VenueError, error) {
			return nil, nil, ctx.Err()
		},
	}

	s := NewStore(cycler, nil, time.Hour, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
