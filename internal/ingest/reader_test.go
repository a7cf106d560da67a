package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/utils"
)

func testDefaults() config.TrackerConfig {
	return config.TrackerConfig{
		DefaultKOPercent:     100,
		DefaultKIPercent:     60,
		DefaultStrikePercent: 100,
		DefaultNonCallMonths: 1,
	}
}

const sheetHeader = "ID,Client,Email,Trade Date,Issue Date,Valuation Date,Maturity,KO Type,KO,KI,KI Type,Strike,Ticker 1,Entry 1,Ticker 2,Entry 2\n"

func TestParseResolvesFuzzyColumns(t *testing.T) {
	sheet := sheetHeader +
		"ELN-1,Alice,\"a@x.com; b@y.com\",2024-01-03,2024-01-05,2025-01-06,2025-01-08,NC3,105%,65%,AKI,100%,AAPL,185.5,MSFT,402\n"

	notes, err := NewParser(testDefaults()).Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	n := notes[0]
	assert.Equal(t, "ELN-1", n.ID)
	assert.Equal(t, "Alice", n.ClientName)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, n.RecipientEmails)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), n.IssueDate)
	require.NotNil(t, n.ValuationDate)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), *n.ValuationDate)
	assert.Equal(t, 3, n.NonCallMonths)
	assert.True(t, n.KOThreshold.Equal(decimal.NewFromFloat(1.05)))
	assert.True(t, n.KIThreshold.Equal(decimal.NewFromFloat(0.65)))
	assert.True(t, n.StrikeThreshold.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, models.KIModeContinuous, n.KIMode)

	require.Len(t, n.Assets, 2)
	assert.Equal(t, "AAPL", n.Assets[0].Code)
	assert.True(t, n.Assets[0].ReferencePrice.Equal(decimal.NewFromFloat(185.5)))
	assert.Equal(t, "MSFT", n.Assets[1].Code)
	assert.Equal(t, 12, n.TenureMonths())
}

func TestParseChineseHeaders(t *testing.T) {
	sheet := "債券代號,理專,Email,交易日,發行日,最終評價日,到期日,KO類型,KO提前出場價,KI下檔價,KI類型,執行價,標的1,進場價1\n" +
		"TW-88,王小明,wang@bank.tw,2024-02-01,2024-02-05,2025-02-06,2025-02-10,NC6,100,60,EKI,100,2330.TW,580\n"

	notes, err := NewParser(testDefaults()).Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	n := notes[0]
	assert.Equal(t, "TW-88", n.ID)
	assert.Equal(t, "王小明", n.ClientName)
	assert.Equal(t, 6, n.NonCallMonths)
	assert.Equal(t, models.KIModeTerminal, n.KIMode)
	require.Len(t, n.Assets, 1)
	assert.Equal(t, "2330.TW", n.Assets[0].Code)
}

func TestParseAppliesDefaultsForBlankCells(t *testing.T) {
	sheet := sheetHeader +
		"ELN-2,,,,2024-01-05,,,garbled,abc,,,,TSLA,240\n"

	notes, err := NewParser(testDefaults()).Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	n := notes[0]
	assert.Equal(t, "貴賓", n.ClientName)
	assert.Empty(t, n.RecipientEmails)
	assert.Nil(t, n.ValuationDate)
	assert.Equal(t, 1, n.NonCallMonths)
	assert.True(t, n.KOThreshold.Equal(decimal.NewFromInt(1)))
	assert.True(t, n.KIThreshold.Equal(decimal.NewFromFloat(0.6)))
	assert.True(t, n.StrikeThreshold.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, models.KIModeContinuous, n.KIMode)
}

func TestParseSkipsSubHeaderAndBadRows(t *testing.T) {
	sheet := sheetHeader +
		",,,,,,,,,,,,Entry Price,,Entry Price,\n" + // sub-header row
		"ELN-3,Bob,bob@x.com,,2024-01-05,,,NC1,100,60,AKI,100,NVDA,495,,\n" +
		",,,,2024-01-05,,,NC1,100,60,AKI,100,AMD,120,,\n" + // no ID: dropped
		"ELN-4,Eve,eve@x.com,,2024-01-05,,,NC1,100,60,AKI,100,INTC,0,,\n" // zero reference: asset dropped

	notes, err := NewParser(testDefaults()).Parse(strings.NewReader(sheet))
	require.NoError(t, err)
	require.Len(t, notes, 2)

	assert.Equal(t, "ELN-3", notes[0].ID)
	require.Len(t, notes[0].Assets, 1)
	assert.Equal(t, "NVDA", notes[0].Assets[0].Code)

	assert.Equal(t, "ELN-4", notes[1].ID)
	assert.Empty(t, notes[1].Assets)
}

func TestParseFailsWithoutTickerColumn(t *testing.T) {
	sheet := "ID,KO,KI\nELN-1,100,60\n"

	_, err := NewParser(testDefaults()).Parse(strings.NewReader(sheet))
	require.Error(t, err)
	var structural *utils.StructuralError
	assert.ErrorAs(t, err, &structural)
}

func TestParseNonCallMonths(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"NC3", 3},
		{"nc12 月配", 12},
		{"Autocall NC6", 6},
		{"", 1},
		{"monthly", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseNonCallMonths(tt.raw, 1), "raw=%q", tt.raw)
	}
}

func TestParsePercentNoise(t *testing.T) {
	d, ok := parsePercent(" 1,050% ")
	require.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(1050)))

	_, ok = parsePercent("n/a%")
	assert.False(t, ok)
}
