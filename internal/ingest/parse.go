package ingest

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ncPattern    = regexp.MustCompile(`(?i)NC(\d+)`)
	emailSplit   = regexp.MustCompile(`[;,，]`)
	percentNoise = strings.NewReplacer("%", "", ",", "", " ", "")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"02-Jan-2006",
	"2 Jan 2006",
	time.RFC3339,
}

// parsePercent cleans a percentage cell ("105%", "1,050", "  60 ") into a
// number. Unparsable or blank values report ok=false so the caller can
// apply the documented default.
func parsePercent(raw string) (decimal.Decimal, bool) {
	s := percentNoise.Replace(strings.TrimSpace(raw))
	if s == "" || strings.EqualFold(s, "nan") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseNonCallMonths extracts the lockout length from a free-text KO type
// cell such as "NC3 月配" or "Autocall NC6".
func parseNonCallMonths(raw string, fallback int) int {
	m := ncPattern.FindStringSubmatch(raw)
	if m == nil {
		return fallback
	}
	months := 0
	for _, c := range m[1] {
		months = months*10 + int(c-'0')
	}
	return months
}

// parseDate tries the date layouts the sheets are known to use. Unparsable
// cells come back as nil, treated downstream as "date not set".
func parseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// splitEmails splits a multi-recipient cell on commas or semicolons,
// including the full-width comma, and keeps only plausible addresses.
func splitEmails(raw string) []string {
	var out []string
	for _, part := range emailSplit.Split(raw, -1) {
		addr := strings.TrimSpace(part)
		if addr == "" || strings.EqualFold(addr, "nan") || !strings.Contains(addr, "@") {
			continue
		}
		out = append(out, addr)
	}
	return out
}

// cleanName tidies a client display name, falling back to the generic
// salutation used on outbound mail.
func cleanName(raw, fallback string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return fallback
	}
	return s
}
