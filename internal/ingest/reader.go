package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/config"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/models"
	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/utils"
)

// defaultClientName is the salutation used when a row has no client name.
const defaultClientName = "貴賓"

// subHeaderMarkers identify the second header row some desks insert under
// the ticker columns.
var subHeaderMarkers = []string{"進場價", "entry price"}

// Parser converts a delimited note sheet into Note values, applying the
// configured permissive defaults for blank threshold cells.
type Parser struct {
	defaults config.TrackerConfig
}

func NewParser(defaults config.TrackerConfig) *Parser {
	return &Parser{defaults: defaults}
}

// Parse reads the whole sheet. Missing ticker or KO columns are a
// structural failure; everything row-level is recovered with defaults or
// by dropping the row.
func (p *Parser) Parse(r io.Reader) ([]models.Note, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read note sheet: %w", err)
	}
	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, utils.NewStructuralError("note sheet contains no rows")
	}

	headers := rows[0]
	cm, err := resolveColumns(headers)
	if err != nil {
		return nil, err
	}

	data := rows[1:]
	if len(data) > 0 && isSubHeader(data[0]) {
		data = data[1:]
	}

	notes := make([]models.Note, 0, len(data))
	for _, row := range data {
		note, ok := p.buildNote(headers, cm, row)
		if !ok {
			continue
		}
		notes = append(notes, note)
	}
	logrus.WithFields(logrus.Fields{"rows": len(data), "notes": len(notes)}).Info("Parsed note sheet")
	return notes, nil
}

func (p *Parser) buildNote(headers []string, cm columnMap, row []string) (models.Note, bool) {
	id := strings.TrimSpace(cell(row, cm.id))
	if id == "" || strings.EqualFold(id, "nan") {
		return models.Note{}, false
	}

	note := models.Note{
		ID:              id,
		ClientName:      cleanName(cell(row, cm.name), defaultClientName),
		RecipientEmails: splitEmails(cell(row, cm.email)),
		TradeDate:       parseDate(cell(row, cm.tradeDate)),
		ValuationDate:   parseDate(cell(row, cm.valuationDate)),
		MaturityDate:    parseDate(cell(row, cm.maturityDate)),
		NonCallMonths:   parseNonCallMonths(cell(row, cm.koType), p.defaults.DefaultNonCallMonths),
		KOThreshold:     p.threshold(cell(row, cm.ko), p.defaults.DefaultKOPercent),
		KIThreshold:     p.threshold(cell(row, cm.ki), p.defaults.DefaultKIPercent),
		StrikeThreshold: p.threshold(cell(row, cm.strike), p.defaults.DefaultStrikePercent),
		KIMode:          kiMode(cell(row, cm.kiType)),
	}
	if issue := parseDate(cell(row, cm.issueDate)); issue != nil {
		note.IssueDate = *issue
	}

	for i := 1; i <= maxBasketSize; i++ {
		codeIdx, refIdx := assetColumns(headers, cm, i)
		code := strings.TrimSpace(cell(row, codeIdx))
		if code == "" || strings.EqualFold(code, "nan") {
			continue
		}
		ref, ok := parsePercent(cell(row, refIdx))
		if !ok || !ref.IsPositive() {
			continue
		}
		note.Assets = append(note.Assets, models.Asset{Code: code, ReferencePrice: ref})
	}
	return note, true
}

// threshold converts a percentage cell into a fraction, applying the
// configured default when the cell is blank or garbled.
func (p *Parser) threshold(raw string, defaultPercent float64) decimal.Decimal {
	pct, ok := parsePercent(raw)
	if !ok {
		pct = decimal.NewFromFloat(defaultPercent)
	}
	return pct.Div(decimal.NewFromInt(100))
}

// kiMode reads the KI observation flag; anything that doesn't say EKI is
// treated as continuous observation.
func kiMode(raw string) models.KIMode {
	upper := strings.ToUpper(raw)
	if strings.Contains(upper, "AKI") {
		return models.KIModeContinuous
	}
	if strings.Contains(upper, "EKI") {
		return models.KIModeTerminal
	}
	return models.KIModeContinuous
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isSubHeader(row []string) bool {
	for _, c := range row {
		lower := strings.ToLower(c)
		for _, marker := range subHeaderMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}
