package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// memoTTL bounds how long an in-process chart response is reused. Re-runs
// within the same interactive session hit the memo instead of the provider.
const memoTTL = 5 * time.Minute

// Client is the HTTP client for the chart API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	memo       *gocache.Cache
}

// NewClient creates a new chart API client instance.
func NewClient(cfg config.MarketDataConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		memo:    gocache.New(memoTTL, 2*memoTTL),
	}
}

// FetchDailyHistory retrieves daily closes for every symbol. Any
// symbol-level provider failure fails the whole batch; the tracker's
// fail-fast contract forbids partial price universes.
func (c *Client) FetchDailyHistory(ctx context.Context, symbols []string, start, end time.Time) (map[string]models.PriceSeries, error) {
	out := make(map[string]models.PriceSeries, len(symbols))
	for _, symbol := range symbols {
		series, err := c.fetchSymbol(ctx, symbol, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
		}
		out[symbol] = series
	}
	return out, nil
}

func (c *Client) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) (models.PriceSeries, error) {
	key := fmt.Sprintf("%s|%d|%d", symbol, start.Unix(), end.Unix())
	if cached, ok := c.memo.Get(key); ok {
		return cached.(models.PriceSeries), nil
	}

	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// The chart endpoint's period2 is exclusive; include the end day.
	params.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	path := fmt.Sprintf("/v8/finance/chart/%s?%s", url.PathEscape(symbol), params.Encode())

	var response chartResponse
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return models.PriceSeries{}, err
	}
	if response.Chart.Error != nil {
		return models.PriceSeries{}, fmt.Errorf("provider error %s: %s",
			response.Chart.Error.Code, response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 || len(response.Chart.Result[0].Indicators.Quote) == 0 {
		return models.PriceSeries{}, fmt.Errorf("empty chart result for %s", symbol)
	}

	result := response.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	series := models.PriceSeries{Symbol: symbol}
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			// Holiday or provider gap: a missing sample, never a zero.
			continue
		}
		series.Samples = append(series.Samples, models.PriceSample{
			Date:  models.DateOnly(time.Unix(ts, 0).UTC()),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}
	series.Sort()

	logrus.WithFields(logrus.Fields{"symbol": symbol, "samples": len(series.Samples)}).
		Debug("Fetched daily history")
	c.memo.Set(key, series, gocache.DefaultExpiration)
	return series, nil
}

func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Some providers refuse requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
