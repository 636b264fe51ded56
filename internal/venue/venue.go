// Package venue defines the adapter contract each upstream venue implements
// and the price-derivation and outcome helpers the adapters share. Adapters
// turn one venue's raw paginated JSON into canonical domain.Market records;
// everything venue-shaped stays behind this boundary.
package venue

import (
	"context"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// PageToken is a venue-specific pagination continuation marker. Each adapter
// reads only the field it understands: Polymarket uses Offset, Kalshi uses
// Cursor, Opinion uses Page. A nil *PageToken means "first page".
type PageToken struct {
	Offset int
	Cursor string
	Page   int
}

// Page is one page of canonical markets plus the continuation token. A nil
// Next signals end of pagination; an empty Markets slice with a non-nil error
// never happens (errors fail the whole page).
type Page struct {
	Markets []domain.Market
	Next    *PageToken
}

// Adapter fetches and normalizes one venue's listings.
//
// FetchPage must fail only on transport-level errors (non-2xx response,
// network failure) or malformed top-level JSON. A single record whose outcome
// sub-structure cannot be parsed is recovered locally and never fails the
// page; an empty page is a legitimate end-of-pagination signal, not an error.
type Adapter interface {
	Platform() domain.Platform
	// PageBudget is the fixed number of sequential pages fetched per cycle.
	PageBudget() int
	FetchPage(ctx context.Context, token *PageToken) (Page, error)
}
