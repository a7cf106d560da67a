package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is one daily closing price. Gaps in a series are represented
// by missing samples, never by zero closes.
type PriceSample struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceSeries is a date-ordered sequence of daily closes for one asset.
type PriceSeries struct {
	Symbol  string        `json:"symbol"`
	Samples []PriceSample `json:"samples"`
}

// Sort orders the samples by date ascending. Providers generally deliver
// sorted data already; callers normalize once after construction.
func (s *PriceSeries) Sort() {
	sort.Slice(s.Samples, func(i, j int) bool {
		return s.Samples[i].Date.Before(s.Samples[j].Date)
	})
}

// PriceOn returns the closing price on exactly the given day.
func (s *PriceSeries) PriceOn(day time.Time) (decimal.Decimal, bool) {
	day = DateOnly(day)
	i := sort.Search(len(s.Samples), func(i int) bool {
		return !s.Samples[i].Date.Before(day)
	})
	if i < len(s.Samples) && s.Samples[i].Date.Equal(day) {
		return s.Samples[i].Close, true
	}
	return decimal.Zero, false
}

// LatestOnOrBefore returns the most recent sample at or before the given day.
func (s *PriceSeries) LatestOnOrBefore(day time.Time) (PriceSample, bool) {
	day = DateOnly(day)
	i := sort.Search(len(s.Samples), func(i int) bool {
		return s.Samples[i].Date.After(day)
	})
	if i == 0 {
		return PriceSample{}, false
	}
	return s.Samples[i-1], true
}

// DateOnly truncates a timestamp to midnight UTC so calendar comparisons
// ignore the intraday component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths advances a date by whole calendar months, clamping the day of
// month to the target month's length (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1
	if m <= 0 {
		m += 12
		year--
	}
	last := time.Date(year, time.Month(m)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}
