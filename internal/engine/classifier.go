package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// Classifier maps an evaluated note onto exactly one lifecycle status plus
// the worst-of metric. Classification never fails.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify applies the status rules in strict priority order: not yet
// issued, early redeemed, matured (profit / loss / principal protected),
// then the running states (NC lockout or observing). KI breaches augment
// the running states rather than forming a state of their own.
func (c *Classifier) Classify(note *models.Note, eval *models.Evaluation) models.Outcome {
	out := models.Outcome{
		NoteID:     note.ID,
		NonCallEnd: eval.NonCallEnd,
		Assets:     eval.Assets,
	}

	for i := range eval.Assets {
		st := &eval.Assets[i]
		if st.HitKI {
			out.KIBreached = true
			out.KIBreachedAssets = append(out.KIBreachedAssets, st.Code)
		}
	}
	out.WorstAsset, out.WorstPerformance = worstOf(eval.Assets)

	today := eval.EvaluationDate
	switch {
	case today.Before(models.DateOnly(note.IssueDate)):
		out.Status = models.StatusNotYetIssued

	case eval.EarlyRedemptionDate != nil:
		out.Status = models.StatusEarlyRedeemed
		out.EarlyRedemptionDate = eval.EarlyRedemptionDate

	case note.ValuationDate != nil && !today.Before(models.DateOnly(*note.ValuationDate)):
		switch {
		case allAboveStrike(eval.Assets, note.StrikeThreshold):
			out.Status = models.StatusMaturedProfit
		case out.KIBreached:
			out.Status = models.StatusMaturedLoss
		default:
			out.Status = models.StatusMaturedProtected
		}

	case today.Before(eval.NonCallEnd):
		out.Status = models.StatusLockout
		out.ShadowKOCount = shadowKOCount(eval.Assets, note.KOThreshold)

	default:
		out.Status = models.StatusObserving
		for i := range eval.Assets {
			st := &eval.Assets[i]
			if st.LockedKO {
				out.LockedAssets = append(out.LockedAssets, st.Code)
			} else {
				out.WaitingAssets = append(out.WaitingAssets, st.Code)
			}
		}
	}
	return out
}

// worstOf selects the minimum positive defined latest performance. Ties go
// to the first-listed asset; the input order is the documented tie-break.
func worstOf(assets []models.AssetState) (string, decimal.Decimal) {
	code := ""
	worst := decimal.Zero
	for i := range assets {
		st := &assets[i]
		if !st.HasPrice || !st.LatestPerformance.IsPositive() {
			continue
		}
		if code == "" || st.LatestPerformance.LessThan(worst) {
			code = st.Code
			worst = st.LatestPerformance
		}
	}
	return code, worst
}

// allAboveStrike requires every asset to be priced and at or above the
// strike; an unpriced asset can never settle in profit.
func allAboveStrike(assets []models.AssetState, strike decimal.Decimal) bool {
	for i := range assets {
		st := &assets[i]
		if !st.HasPrice || st.LatestPerformance.LessThan(strike) {
			return false
		}
	}
	return len(assets) > 0
}

// shadowKOCount counts assets already trading at or above the KO level
// while still inside the non-call window. Informational only.
func shadowKOCount(assets []models.AssetState, ko decimal.Decimal) int {
	n := 0
	for i := range assets {
		st := &assets[i]
		if st.HasPrice && !st.LockedKO && st.LatestPerformance.GreaterThanOrEqual(ko) {
			n++
		}
	}
	return n
}

// EvaluateAndClassify is the single-call convenience used by the tracker:
// one walk, one classification. A nil outcome means the note had no
// evaluable basket.
func EvaluateAndClassify(note *models.Note, series map[string]models.PriceSeries, evaluationDate time.Time) *models.Outcome {
	eval := NewEvaluator().Evaluate(note, series, evaluationDate)
	if eval == nil {
		return nil
	}
	out := NewClassifier().Classify(note, eval)
	return &out
}
