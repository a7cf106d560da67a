// Package marketdata fetches historical daily closes from a Yahoo-style
// chart API. The tracker treats the fetched series as immutable input for
// the whole run.
package marketdata

import (
	"context"
	"time"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// Provider supplies daily closing-price history for a set of symbols.
type Provider interface {
	// FetchDailyHistory retrieves closes for every symbol over [start, end].
	// The call is all-or-nothing: a provider failure for any symbol fails
	// the batch, and the caller aborts the run.
	FetchDailyHistory(ctx context.Context, symbols []string, start, end time.Time) (map[string]models.PriceSeries, error)
}

// chartResponse mirrors the provider's chart endpoint payload. Close
// entries may be null on non-trading days; those samples are dropped, not
// zeroed.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol   string `json:"symbol"`
				Currency string `json:"currency"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}
