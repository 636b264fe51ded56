// Package gateway proxies venue API requests under /api/{venue}?endpoint=...
// so adapters and browser consumers never talk to the upstreams directly. Each
// venue has an endpoint allow-list, successful responses are cached with a
// stale-while-revalidate window, and the Opinion credential is injected
// server-side so it never reaches a client.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/constellate/internal/domain"
)

const (
	upstreamTimeout  = 30 * time.Second
	maxResponseBytes = 16 << 20
)

// Default upstream hosts, overridable through Config for tests and staging.
const (
	defaultPolymarketGammaURL = "https://gamma-api.polymarket.com"
	defaultPolymarketDataURL  = "https://data-api.polymarket.com"
	defaultPolymarketClobURL  = "https://clob.polymarket.com"
	defaultKalshiURL          = "https://api.elections.kalshi.com/trade-api/v2"
	defaultOpinionPublicURL   = "https://proxy.opinion.trade:8443/api/bsc/api/v2"
	defaultOpinionOpenURL     = "https://proxy.opinion.trade:8443/openapi"
)

var (
	polymarketEndpoints = []string{"events", "markets", "trades", "positions", "prices-history", "book", "midpoint"}
	kalshiEndpoints     = []string{"events", "markets", "series"}
	opinionPublic       = []string{"topic", "label", "indicator", "currency", "activity"}
	opinionAuth         = []string{"market", "orderbook", "trade", "token"}
)

// Config holds the gateway's upstream hosts and the Opinion credential.
// Zero-value URL fields fall back to the production upstreams.
type Config struct {
	PolymarketGammaURL string
	PolymarketDataURL  string
	PolymarketClobURL  string
	KalshiURL          string
	OpinionPublicURL   string
	OpinionOpenURL     string
	OpinionAPIKey      string
}

func (c *Config) applyDefaults() {
	if c.PolymarketGammaURL == "" {
		c.PolymarketGammaURL = defaultPolymarketGammaURL
	}
	if c.PolymarketDataURL == "" {
		c.PolymarketDataURL = defaultPolymarketDataURL
	}
	if c.PolymarketClobURL == "" {
		c.PolymarketClobURL = defaultPolymarketClobURL
	}
	if c.KalshiURL == "" {
		c.KalshiURL = defaultKalshiURL
	}
	if c.OpinionPublicURL == "" {
		c.OpinionPublicURL = defaultOpinionPublicURL
	}
	if c.OpinionOpenURL == "" {
		c.OpinionOpenURL = defaultOpinionOpenURL
	}
}

// Gateway is the venue proxy. Mount Routes on the API server's mux.
type Gateway struct {
	cfg    Config
	cache  ResponseCache
	client *http.Client
	logger *slog.Logger

	mu         sync.Mutex
	refreshing map[string]bool
}

// New creates a Gateway. A nil cache falls back to the in-process
// MemoryCache.
func New(cfg Config, cache ResponseCache, logger *slog.Logger) *Gateway {
	cfg.applyDefaults()
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Gateway{
		cfg:        cfg,
		cache:      cache,
		client:     &http.Client{Timeout: upstreamTimeout},
		logger:     logger.With(slog.String("component", "gateway")),
		refreshing: make(map[string]bool),
	}
}

// Routes registers the per-venue proxy handlers on mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/polymarket", g.handlePolymarket)
	mux.HandleFunc("GET /api/kalshi", g.handleKalshi)
	mux.HandleFunc("GET /api/opinion", g.handleOpinion)
}

// GET /api/polymarket?endpoint=events&...
// Routes trades/positions to the data API and book/midpoint/prices-history to
// the CLOB; everything else goes to the gamma API.
func (g *Gateway) handlePolymarket(w http.ResponseWriter, r *http.Request) {
	endpoint, params, ok := parseRequest(w, r, "events", polymarketEndpoints)
	if !ok {
		return
	}

	base := g.cfg.PolymarketGammaURL
	switch {
	case matchEndpoint(endpoint, "trades"), matchEndpoint(endpoint, "positions"):
		base = g.cfg.PolymarketDataURL
	case matchEndpoint(endpoint, "prices-history"), matchEndpoint(endpoint, "book"), matchEndpoint(endpoint, "midpoint"):
		base = g.cfg.PolymarketClobURL
	}

	g.proxy(w, r, base+"/"+endpoint, params, nil)
}

// GET /api/kalshi?endpoint=events&...
func (g *Gateway) handleKalshi(w http.ResponseWriter, r *http.Request) {
	endpoint, params, ok := parseRequest(w, r, "events", kalshiEndpoints)
	if !ok {
		return
	}
	g.proxy(w, r, g.cfg.KalshiURL+"/"+endpoint, params, nil)
}

// GET /api/opinion?endpoint=topic&...
// Public endpoints go to the BSC API; credentialed ones go to the openapi
// host with the api key injected as the "apikey" header. The key comes from
// the x-opinion-api-key request header, the apiKey query param, or config, in
// that order, and the apiKey param is stripped before proxying.
func (g *Gateway) handleOpinion(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	endpoint := q.Get("endpoint")
	if endpoint == "" {
		endpoint = "topic"
	}

	if strings.Contains(endpoint, "..") {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidEndpoint.Error())
		return
	}

	isPublic := allowed(endpoint, opinionPublic)
	isAuth := allowed(endpoint, opinionAuth)
	if !isPublic && !isAuth {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidEndpoint.Error())
		return
	}

	params := url.Values{}
	for key, vals := range q {
		if key == "endpoint" || key == "apiKey" {
			continue
		}
		for _, v := range vals {
			params.Add(key, v)
		}
	}

	if isPublic {
		g.proxy(w, r, g.cfg.OpinionPublicURL+"/"+endpoint, params, nil)
		return
	}

	apiKey := r.Header.Get("x-opinion-api-key")
	if apiKey == "" {
		apiKey = q.Get("apiKey")
	}
	if apiKey == "" {
		apiKey = g.cfg.OpinionAPIKey
	}
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, domain.ErrMissingAPIKey.Error())
		return
	}

	header := http.Header{}
	header.Set("apikey", apiKey)
	g.proxy(w, r, g.cfg.OpinionOpenURL+"/"+endpoint, params, header)
}

// proxy serves the upstream URL from cache when fresh, serves stale while
// refreshing in the background when inside the stale window, and otherwise
// fetches synchronously. Only 200 responses are cached.
func (g *Gateway) proxy(w http.ResponseWriter, r *http.Request, upstreamURL string, params url.Values, header http.Header) {
	full := upstreamURL
	if enc := params.Encode(); enc != "" {
		full += "?" + enc
	}

	now := time.Now()
	if entry, ok := g.cache.Get(r.Context(), full); ok {
		if entry.Fresh(now) {
			writeUpstream(w, http.StatusOK, entry.Data)
			return
		}
		writeUpstream(w, http.StatusOK, entry.Data)
		g.refreshAsync(full, header)
		return
	}

	status, body, err := g.fetch(r.Context(), full, header)
	if err != nil {
		g.logger.Warn("upstream fetch failed",
			slog.String("url", upstreamURL),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if status != http.StatusOK {
		writeError(w, status, fmt.Sprintf("upstream error: %d", status))
		return
	}

	if err := g.cache.Set(r.Context(), full, body); err != nil {
		g.logger.Warn("cache write failed", slog.String("error", err.Error()))
	}
	writeUpstream(w, http.StatusOK, body)
}

// refreshAsync repopulates one cache key in the background. Concurrent
// requests for the same stale key trigger a single refresh.
func (g *Gateway) refreshAsync(key string, header http.Header) {
	g.mu.Lock()
	if g.refreshing[key] {
		g.mu.Unlock()
		return
	}
	g.refreshing[key] = true
	g.mu.Unlock()

	go func() {
		defer func() {
			g.mu.Lock()
			delete(g.refreshing, key)
			g.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), upstreamTimeout)
		defer cancel()

		status, body, err := g.fetch(ctx, key, header)
		if err != nil || status != http.StatusOK {
			g.logger.Debug("stale refresh failed", slog.String("url", key))
			return
		}
		if err := g.cache.Set(ctx, key, body); err != nil {
			g.logger.Warn("cache write failed", slog.String("error", err.Error()))
		}
	}()
}

func (g *Gateway) fetch(ctx context.Context, fullURL string, header http.Header) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, vals := range header {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// parseRequest validates the endpoint against the allow-list and returns the
// remaining query parameters with the routing-only ones stripped.
func parseRequest(w http.ResponseWriter, r *http.Request, defaultEndpoint string, allowlist []string) (string, url.Values, bool) {
	q := r.URL.Query()
	endpoint := q.Get("endpoint")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	if strings.Contains(endpoint, "..") || !allowed(endpoint, allowlist) {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidEndpoint.Error())
		return "", nil, false
	}

	params := url.Values{}
	for key, vals := range q {
		if key == "endpoint" {
			continue
		}
		for _, v := range vals {
			params.Add(key, v)
		}
	}
	return endpoint, params, true
}

// allowed reports whether endpoint is exactly an allow-listed name or a
// sub-path of one ("events/123" under "events").
func allowed(endpoint string, allowlist []string) bool {
	for _, e := range allowlist {
		if matchEndpoint(endpoint, e) {
			return true
		}
	}
	return false
}

func matchEndpoint(endpoint, name string) bool {
	return endpoint == name || strings.HasPrefix(endpoint, name+"/")
}

func writeUpstream(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, s-maxage=30, stale-while-revalidate=60")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
