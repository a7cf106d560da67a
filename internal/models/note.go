package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KIMode determines when the knock-in barrier is observed.
type KIMode string

const (
	// KIModeContinuous (AKI) observes the KI barrier on every trading day.
	KIModeContinuous KIMode = "AKI"
	// KIModeTerminal (EKI) observes the KI barrier only at the final valuation.
	KIModeTerminal KIMode = "EKI"
)

// Asset is one underlying of a note's basket. ReferencePrice is the strike
// basis the entry price performance is measured against.
type Asset struct {
	Code           string          `json:"code"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

// Note represents one structured autocallable product. Thresholds are
// fractions of the reference price (1.00 = 100%).
type Note struct {
	ID              string          `json:"id"`
	ClientName      string          `json:"client_name"`
	RecipientEmails []string        `json:"recipient_emails"`
	TradeDate       *time.Time      `json:"trade_date,omitempty"`
	IssueDate       time.Time       `json:"issue_date"`
	ValuationDate   *time.Time      `json:"valuation_date,omitempty"`
	MaturityDate    *time.Time      `json:"maturity_date,omitempty"`
	NonCallMonths   int             `json:"non_call_months"`
	KOThreshold     decimal.Decimal `json:"ko_threshold"`
	KIThreshold     decimal.Decimal `json:"ki_threshold"`
	StrikeThreshold decimal.Decimal `json:"strike_threshold"`
	KIMode          KIMode          `json:"ki_mode"`
	Assets          []Asset         `json:"assets"`
}

// TenureMonths returns the issue-to-maturity tenure rounded to whole months,
// or 0 when the maturity date is unknown. Reporting only.
func (n *Note) TenureMonths() int {
	if n.MaturityDate == nil || n.IssueDate.IsZero() {
		return 0
	}
	days := n.MaturityDate.Sub(n.IssueDate).Hours() / 24
	return int(days/30 + 0.5)
}

// Tickers returns the asset codes of the note's basket in input order.
func (n *Note) Tickers() []string {
	codes := make([]string, 0, len(n.Assets))
	for _, a := range n.Assets {
		codes = append(codes, a.Code)
	}
	return codes
}
