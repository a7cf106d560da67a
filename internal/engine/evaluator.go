// Package engine implements the barrier path evaluation and lifecycle
// classification for autocallable notes. Evaluation is a pure computation
// over in-memory data; notes share no state and may be evaluated in
// parallel.
package engine

import (
	"sort"
	"time"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

// Evaluator walks historical close paths and produces terminal asset states.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate replays the note's price history from issuance to evaluationDate
// and returns the terminal per-asset barrier states plus the earliest date,
// if any, on which the whole basket was simultaneously knocked out.
//
// Assets with a non-positive reference price are excluded up front. A nil
// result means the note has no evaluable basket and should be skipped.
func (e *Evaluator) Evaluate(note *models.Note, series map[string]models.PriceSeries, evaluationDate time.Time) *models.Evaluation {
	evaluationDate = models.DateOnly(evaluationDate)
	issueDate := models.DateOnly(note.IssueDate)

	states := make([]*models.AssetState, 0, len(note.Assets))
	for _, a := range note.Assets {
		if !a.ReferencePrice.IsPositive() {
			continue
		}
		states = append(states, &models.AssetState{
			Code:           a.Code,
			ReferencePrice: a.ReferencePrice,
		})
	}
	if len(states) == 0 {
		return nil
	}

	eval := &models.Evaluation{
		NoteID:         note.ID,
		EvaluationDate: evaluationDate,
		NonCallEnd:     models.AddMonths(issueDate, note.NonCallMonths),
	}

	if !issueDate.After(evaluationDate) {
		e.walk(note, states, series, issueDate, evaluationDate, eval)
	}

	// Latest price and performance from the most recent sample at or
	// before the evaluation date. Terminal-mode KI is checked exactly
	// once here; transient path breaches that recovered never count.
	for _, st := range states {
		s, ok := series[st.Code]
		if !ok {
			continue
		}
		sample, ok := s.LatestOnOrBefore(evaluationDate)
		if !ok {
			continue
		}
		st.HasPrice = true
		st.LatestPrice = sample.Close
		st.LatestPerformance = sample.Close.Div(st.ReferencePrice)

		if note.KIMode == models.KIModeTerminal && !st.HitKI && st.LatestPerformance.LessThan(note.KIThreshold) {
			st.HitKI = true
			st.KIEvent = &models.BarrierEvent{Date: sample.Date, Price: sample.Close, Terminal: true}
		}
	}

	eval.Assets = make([]models.AssetState, len(states))
	for i, st := range states {
		eval.Assets[i] = *st
	}
	return eval
}

// walk processes the union of observation dates in ascending order,
// updating sticky KO/KI state and stopping at the first date on which
// every asset is locked.
func (e *Evaluator) walk(note *models.Note, states []*models.AssetState, series map[string]models.PriceSeries, issueDate, evaluationDate time.Time, eval *models.Evaluation) {
	dates := observationDates(states, series, issueDate, evaluationDate)
	continuous := note.KIMode != models.KIModeTerminal

	for _, d := range dates {
		for _, st := range states {
			s, ok := series[st.Code]
			if !ok {
				continue
			}
			price, ok := s.PriceOn(d)
			if !ok || !price.IsPositive() {
				// No evidence for this asset today; sticky state stands.
				continue
			}
			perf := price.Div(st.ReferencePrice)

			if continuous && !st.HitKI && perf.LessThan(note.KIThreshold) {
				st.HitKI = true
				st.KIEvent = &models.BarrierEvent{Date: d, Price: price}
			}
			if !st.LockedKO && !d.Before(eval.NonCallEnd) && perf.GreaterThanOrEqual(note.KOThreshold) {
				st.LockedKO = true
				st.KOEvent = &models.BarrierEvent{Date: d, Price: price}
			}
		}

		allLocked := true
		for _, st := range states {
			if !st.LockedKO {
				allLocked = false
				break
			}
		}
		if allLocked {
			day := d
			eval.EarlyRedemptionDate = &day
			return
		}
	}
}

// observationDates merges the per-asset sample dates within the window into
// one ascending, deduplicated sequence.
func observationDates(states []*models.AssetState, series map[string]models.PriceSeries, from, to time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, st := range states {
		s, ok := series[st.Code]
		if !ok {
			continue
		}
		for _, sample := range s.Samples {
			d := models.DateOnly(sample.Date)
			if d.Before(from) || d.After(to) {
				continue
			}
			seen[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
