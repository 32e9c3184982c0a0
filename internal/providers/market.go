// Package providers implements outbound clients for market-data vendors
// and AI inference providers. Clients classify failures into the
// transient/permanent taxonomy; retry and fallback ordering is the
// provider chain's job, not theirs.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"MarketPulse/internal/model"
	pkgerrors "MarketPulse/pkg/errors"
)

// UserAgent identifies this service to vendors.
const UserAgent = "MarketPulse/1.0"

// DefaultMarketTimeout bounds a single market-data HTTP fetch.
const DefaultMarketTimeout = 8 * time.Second

// MarketClient fetches OHLCV candles from one vendor. All configured
// vendors expose the same normalized candle endpoint shape; the gateway
// translating vendor-native formats sits in front of this service.
type MarketClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewMarketClient creates a vendor client with a bounded timeout.
func NewMarketClient(name, baseURL string, timeout time.Duration) *MarketClient {
	if timeout <= 0 {
		timeout = DefaultMarketTimeout
	}
	return &MarketClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the vendor name used for breaker keying.
func (c *MarketClient) Name() string {
	return c.name
}

// Candles fetches up to limit candles for a symbol. Non-2xx responses
// and undecodable bodies are returned as classified call errors.
func (c *MarketClient) Candles(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/candles?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.NewPermanent(c.name, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Classify(c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewTransient(c.name, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.FromStatus(c.name, resp.StatusCode,
			fmt.Errorf("candles request failed: %s", truncate(string(body), 200)))
	}

	var candles []model.Candle
	if err := json.Unmarshal(body, &candles); err != nil {
		// A 200 with an undecodable body is a malformed response shape.
		return nil, pkgerrors.NewPermanent(c.name, resp.StatusCode,
			fmt.Errorf("malformed candle payload: %w", err))
	}

	return candles, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
