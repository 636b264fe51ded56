package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// Client is the shared HTTP client adapters use to talk to the local gateway.
// Requests take the shape GET {base}/api/{venue}?endpoint={name}&{params};
// the gateway owns endpoint allow-listing, credential injection, and caching.
type Client struct {
	baseURL    string
	venue      string
	httpClient *http.Client
}

// NewClient creates a gateway client for the given venue path segment.
func NewClient(baseURL string, platform domain.Platform) *Client {
	return &Client{
		baseURL: baseURL,
		venue:   string(platform),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Get requests the named gateway endpoint with the given query parameters and
// returns the raw response body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	q := url.Values{}
	q.Set("endpoint", endpoint)
	for key, vals := range params {
		for _, v := range vals {
			q.Add(key, v)
		}
	}

	reqURL := fmt.Sprintf("%s/api/%s?%s", c.baseURL, c.venue, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
