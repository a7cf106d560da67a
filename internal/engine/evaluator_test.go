package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func series(symbol string, closes map[string]float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol}
	for d, c := range closes {
		s.Samples = append(s.Samples, models.PriceSample{Date: day(d), Close: decimal.NewFromFloat(c)})
	}
	s.Sort()
	return s
}

func testNote(assets ...models.Asset) *models.Note {
	val := day("2025-01-06")
	mat := day("2025-01-08")
	return &models.Note{
		ID:              "ELN-001",
		IssueDate:       day("2024-01-05"),
		ValuationDate:   &val,
		MaturityDate:    &mat,
		NonCallMonths:   1,
		KOThreshold:     decimal.NewFromFloat(1.00),
		KIThreshold:     decimal.NewFromFloat(0.60),
		StrikeThreshold: decimal.NewFromFloat(1.00),
		KIMode:          models.KIModeContinuous,
		Assets:          assets,
	}
}

func TestEvaluateStickyKO(t *testing.T) {
	note := testNote(models.Asset{Code: "AAPL", ReferencePrice: decimal.NewFromInt(100)})

	prices := map[string]models.PriceSeries{
		"AAPL": series("AAPL", map[string]float64{
			"2024-02-06": 105, // above KO after the non-call window
			"2024-02-07": 80,  // later drop must not unlock
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-02-08"))
	require.NotNil(t, eval)
	require.Len(t, eval.Assets, 1)

	st := eval.Assets[0]
	assert.True(t, st.LockedKO)
	require.NotNil(t, st.KOEvent)
	assert.Equal(t, day("2024-02-06"), st.KOEvent.Date)
	require.NotNil(t, eval.EarlyRedemptionDate)
	assert.Equal(t, day("2024-02-06"), *eval.EarlyRedemptionDate)
}

func TestEvaluateNonCallLockoutGating(t *testing.T) {
	note := testNote(models.Asset{Code: "NVDA", ReferencePrice: decimal.NewFromInt(100)})
	note.NonCallMonths = 3

	// 150% on day 2 is inside the lockout and must not lock.
	prices := map[string]models.PriceSeries{
		"NVDA": series("NVDA", map[string]float64{
			"2024-01-08": 150,
			"2024-03-01": 150,
			"2024-04-05": 150, // first observation on/after the 3-month anniversary
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-04-10"))
	require.NotNil(t, eval)
	assert.Equal(t, day("2024-04-05"), eval.NonCallEnd)

	st := eval.Assets[0]
	assert.True(t, st.LockedKO)
	require.NotNil(t, st.KOEvent)
	assert.Equal(t, day("2024-04-05"), st.KOEvent.Date)
}

func TestEvaluateContinuousKIIsSticky(t *testing.T) {
	note := testNote(models.Asset{Code: "TSLA", ReferencePrice: decimal.NewFromInt(100)})

	prices := map[string]models.PriceSeries{
		"TSLA": series("TSLA", map[string]float64{
			"2024-01-10": 55, // breach on day 5
			"2024-01-25": 90, // recovered by day 20
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-01-31"))
	require.NotNil(t, eval)

	st := eval.Assets[0]
	assert.True(t, st.HitKI)
	require.NotNil(t, st.KIEvent)
	assert.Equal(t, day("2024-01-10"), st.KIEvent.Date)
	assert.False(t, st.KIEvent.Terminal)
}

func TestEvaluateTerminalKIIgnoresRecoveredBreach(t *testing.T) {
	note := testNote(models.Asset{Code: "TSLA", ReferencePrice: decimal.NewFromInt(100)})
	note.KIMode = models.KIModeTerminal

	prices := map[string]models.PriceSeries{
		"TSLA": series("TSLA", map[string]float64{
			"2024-01-10": 55,
			"2024-01-25": 90,
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-01-31"))
	require.NotNil(t, eval)
	assert.False(t, eval.Assets[0].HitKI)
}

func TestEvaluateTerminalKIChecksLatestObservation(t *testing.T) {
	note := testNote(models.Asset{Code: "TSLA", ReferencePrice: decimal.NewFromInt(100)})
	note.KIMode = models.KIModeTerminal

	prices := map[string]models.PriceSeries{
		"TSLA": series("TSLA", map[string]float64{
			"2024-01-10": 90,
			"2024-01-25": 55,
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-01-31"))
	require.NotNil(t, eval)

	st := eval.Assets[0]
	assert.True(t, st.HitKI)
	require.NotNil(t, st.KIEvent)
	assert.True(t, st.KIEvent.Terminal)
	assert.Equal(t, day("2024-01-25"), st.KIEvent.Date)
}

func TestEvaluateKINotGatedByLockout(t *testing.T) {
	note := testNote(models.Asset{Code: "AMD", ReferencePrice: decimal.NewFromInt(100)})
	note.NonCallMonths = 6

	prices := map[string]models.PriceSeries{
		"AMD": series("AMD", map[string]float64{
			"2024-01-08": 50, // inside the non-call window; KI has no lockout
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-01-31"))
	require.NotNil(t, eval)
	assert.True(t, eval.Assets[0].HitKI)
	assert.False(t, eval.Assets[0].LockedKO)
}

func TestEvaluateEarliestBasketWideKnockOut(t *testing.T) {
	note := testNote(
		models.Asset{Code: "AAA", ReferencePrice: decimal.NewFromInt(100)},
		models.Asset{Code: "BBB", ReferencePrice: decimal.NewFromInt(200)},
	)

	prices := map[string]models.PriceSeries{
		"AAA": series("AAA", map[string]float64{
			"2024-03-01": 110, // AAA locks first
			"2024-03-15": 95,
		}),
		"BBB": series("BBB", map[string]float64{
			"2024-03-01": 180,
			"2024-03-15": 210, // BBB locks here, completing the basket
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-04-01"))
	require.NotNil(t, eval)
	require.NotNil(t, eval.EarlyRedemptionDate)
	assert.Equal(t, day("2024-03-15"), *eval.EarlyRedemptionDate)
}

func TestEvaluateMissingSampleBlocksBasketEventButKeepsState(t *testing.T) {
	note := testNote(
		models.Asset{Code: "AAA", ReferencePrice: decimal.NewFromInt(100)},
		models.Asset{Code: "BBB", ReferencePrice: decimal.NewFromInt(100)},
	)

	prices := map[string]models.PriceSeries{
		"AAA": series("AAA", map[string]float64{
			"2024-02-06": 110,
			"2024-02-07": 110,
		}),
		// BBB has no sample on Feb 6 and only crosses on Feb 7.
		"BBB": series("BBB", map[string]float64{
			"2024-02-07": 120,
		}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-02-10"))
	require.NotNil(t, eval)
	require.NotNil(t, eval.EarlyRedemptionDate)
	assert.Equal(t, day("2024-02-07"), *eval.EarlyRedemptionDate)
	assert.Equal(t, day("2024-02-06"), eval.Assets[0].KOEvent.Date)
}

func TestEvaluateDropsNonPositiveReferencePrices(t *testing.T) {
	note := testNote(
		models.Asset{Code: "AAA", ReferencePrice: decimal.NewFromInt(100)},
		models.Asset{Code: "JUNK", ReferencePrice: decimal.Zero},
	)

	prices := map[string]models.PriceSeries{
		"AAA": series("AAA", map[string]float64{"2024-02-06": 110}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-02-10"))
	require.NotNil(t, eval)
	require.Len(t, eval.Assets, 1)
	assert.Equal(t, "AAA", eval.Assets[0].Code)
	// The dropped asset never blocks the basket-wide event.
	require.NotNil(t, eval.EarlyRedemptionDate)
}

func TestEvaluateEmptyBasketReturnsNil(t *testing.T) {
	note := testNote(models.Asset{Code: "JUNK", ReferencePrice: decimal.Zero})
	assert.Nil(t, NewEvaluator().Evaluate(note, nil, day("2024-02-10")))
}

func TestEvaluateNoPriceAssetStaysUnpriced(t *testing.T) {
	note := testNote(
		models.Asset{Code: "AAA", ReferencePrice: decimal.NewFromInt(100)},
		models.Asset{Code: "GHOST", ReferencePrice: decimal.NewFromInt(50)},
	)

	prices := map[string]models.PriceSeries{
		"AAA": series("AAA", map[string]float64{"2024-02-06": 92}),
	}

	eval := NewEvaluator().Evaluate(note, prices, day("2024-02-10"))
	require.NotNil(t, eval)
	assert.True(t, eval.Assets[0].HasPrice)
	assert.False(t, eval.Assets[1].HasPrice)
	assert.Nil(t, eval.EarlyRedemptionDate)
}

func TestAddMonthsClampsDayOfMonth(t *testing.T) {
	tests := []struct {
		name   string
		start  string
		months int
		want   string
	}{
		{"plain month", "2024-01-05", 1, "2024-02-05"},
		{"clamped to february", "2024-01-31", 1, "2024-02-29"},
		{"clamped non leap", "2023-01-31", 1, "2023-02-28"},
		{"year rollover", "2024-11-15", 3, "2025-02-15"},
		{"zero months", "2024-06-30", 0, "2024-06-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, day(tt.want), models.AddMonths(day(tt.start), tt.months))
		})
	}
}
