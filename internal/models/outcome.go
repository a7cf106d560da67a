package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoteStatus is the mutually exclusive lifecycle state of a note.
type NoteStatus string

const (
	StatusNotYetIssued     NoteStatus = "not_yet_issued"
	StatusEarlyRedeemed    NoteStatus = "early_redeemed"
	StatusMaturedProfit    NoteStatus = "matured_profit"
	StatusMaturedLoss      NoteStatus = "matured_loss"
	StatusMaturedProtected NoteStatus = "matured_principal_protected"
	StatusLockout          NoteStatus = "nc_lockout"
	StatusObserving        NoteStatus = "observing"
)

// BarrierEvent records the observation that tripped a barrier. Terminal
// marks a KI breach registered at the final check rather than on the path.
type BarrierEvent struct {
	Date     time.Time       `json:"date"`
	Price    decimal.Decimal `json:"price"`
	Terminal bool            `json:"terminal,omitempty"`
}

// AssetState is the terminal per-asset evaluation state. LockedKO and HitKI
// are sticky: once set by the path walk they are never cleared.
type AssetState struct {
	Code              string          `json:"code"`
	ReferencePrice    decimal.Decimal `json:"reference_price"`
	LockedKO          bool            `json:"locked_ko"`
	KOEvent           *BarrierEvent   `json:"ko_event,omitempty"`
	HitKI             bool            `json:"hit_ki"`
	KIEvent           *BarrierEvent   `json:"ki_event,omitempty"`
	HasPrice          bool            `json:"has_price"`
	LatestPrice       decimal.Decimal `json:"latest_price"`
	LatestPerformance decimal.Decimal `json:"latest_performance"`
}

// Evaluation is the Barrier Evaluator's output for one note.
type Evaluation struct {
	NoteID              string       `json:"note_id"`
	EvaluationDate      time.Time    `json:"evaluation_date"`
	NonCallEnd          time.Time    `json:"non_call_end"`
	Assets              []AssetState `json:"assets"`
	EarlyRedemptionDate *time.Time   `json:"early_redemption_date,omitempty"`
}

// Outcome is the classified lifecycle result for one note.
type Outcome struct {
	NoteID              string          `json:"note_id"`
	Status              NoteStatus      `json:"status"`
	EarlyRedemptionDate *time.Time      `json:"early_redemption_date,omitempty"`
	NonCallEnd          time.Time       `json:"non_call_end"`
	ShadowKOCount       int             `json:"shadow_ko_count,omitempty"`
	LockedAssets        []string        `json:"locked_assets,omitempty"`
	WaitingAssets       []string        `json:"waiting_assets,omitempty"`
	KIBreached          bool            `json:"ki_breached"`
	KIBreachedAssets    []string        `json:"ki_breached_assets,omitempty"`
	WorstAsset          string          `json:"worst_asset,omitempty"`
	WorstPerformance    decimal.Decimal `json:"worst_performance"`
	Assets              []AssetState    `json:"assets"`
}

// Alertworthy reports whether the outcome should trigger client
// notifications: redemption, a matured settlement, or a KI breach in flight.
func (o *Outcome) Alertworthy() bool {
	switch o.Status {
	case StatusEarlyRedeemed, StatusMaturedProfit, StatusMaturedLoss, StatusMaturedProtected:
		return true
	}
	return o.KIBreached
}
