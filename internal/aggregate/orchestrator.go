// Package aggregate implements the refresh pipeline that turns the venue
// adapters' paginated fetches into one normalized, ranked market collection,
// and the store that keeps that collection live.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanyoungcy/constellate/internal/domain"
	"github.com/alanyoungcy/constellate/internal/venue"
)

// VenueError records one venue's failure within a cycle. Partial failures
// stay internal to the cycle; they are logged and retained for diagnostics
// but only surfaced to consumers when every venue failed.
type VenueError struct {
	Platform domain.Platform
	Message  string
}

// Cycler runs one full fetch cycle across all venues.
type Cycler interface {
	RunCycle(ctx context.Context) ([]domain.Market, []VenueError, error)
}

// Orchestrator fans one refresh cycle out across all venue adapters
// concurrently. Each venue's paginated fetch sequence runs independently; a
// venue failure never cancels or blocks the others.
type Orchestrator struct {
	adapters []venue.Adapter
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given adapters.
func NewOrchestrator(adapters []venue.Adapter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		adapters: adapters,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// RunCycle fetches every venue's page budget concurrently and reduces the
// results to one combined list. It waits for every venue to settle before
// reducing; completion order never affects the output because ordering is
// owned entirely by Normalize. When every venue fails the returned error
// wraps domain.ErrAllVenuesFailed with all messages joined.
func (o *Orchestrator) RunCycle(ctx context.Context) ([]domain.Market, []VenueError, error) {
	results := make([][]domain.Market, len(o.adapters))
	errs := make([]error, len(o.adapters))

	var wg sync.WaitGroup
	for i, a := range o.adapters {
		wg.Add(1)
		go func(i int, a venue.Adapter) {
			defer wg.Done()
			results[i], errs[i] = o.fetchVenue(ctx, a)
		}(i, a)
	}
	wg.Wait()

	var combined []domain.Market
	var venueErrs []VenueError
	for i, a := range o.adapters {
		if errs[i] != nil {
			venueErrs = append(venueErrs, VenueError{
				Platform: a.Platform(),
				Message:  errs[i].Error(),
			})
			o.logger.Warn("venue fetch failed",
				slog.String("platform", string(a.Platform())),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		combined = append(combined, results[i]...)
	}

	if len(venueErrs) == len(o.adapters) && len(o.adapters) > 0 {
		msgs := make([]string, 0, len(venueErrs))
		for _, ve := range venueErrs {
			msgs = append(msgs, fmt.Sprintf("%s: %s", ve.Platform, ve.Message))
		}
		return nil, venueErrs, fmt.Errorf("%w: %s", domain.ErrAllVenuesFailed, strings.Join(msgs, "; "))
	}

	return combined, venueErrs, nil
}

// fetchVenue runs one venue's sequential page walk up to its fixed budget,
// stopping early at end of pagination. Any page error fails the whole venue
// for this cycle.
func (o *Orchestrator) fetchVenue(ctx context.Context, a venue.Adapter) ([]domain.Market, error) {
	var markets []domain.Market
	var token *venue.PageToken

	for i := 0; i < a.PageBudget(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := a.FetchPage(ctx, token)
		if err != nil {
			return nil, err
		}
		markets = append(markets, page.Markets...)

		if page.Next == nil {
			break
		}
		token = page.Next
	}

	o.logger.Debug("venue fetch complete",
		slog.String("platform", string(a.Platform())),
		slog.Int("markets", len(markets)),
	)
	return markets, nil
}
