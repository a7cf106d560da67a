// Package ingest turns tabular note sheets into normalized note records.
// Column positions are resolved by fuzzy keyword matching against the
// header vocabulary the desks actually use, which mixes English and
// Traditional Chinese labels.
package ingest

import (
	"fmt"
	"strings"

	"github.com/albert7755-ux/ELN-auto-TRACKing/internal/utils"
)

const maxBasketSize = 5

// columnMap holds resolved zero-based column indexes; -1 means the column
// was not found and the field falls back to its default.
type columnMap struct {
	id            int
	name          int
	email         int
	tradeDate     int
	issueDate     int
	valuationDate int
	maturityDate  int
	ko            int
	koType        int
	ki            int
	kiType        int
	strike        int
	ticker1       int
}

// findColumn returns the index of the first header containing any include
// keyword and none of the exclude keywords, or -1.
func findColumn(headers []string, include []string, exclude ...string) int {
	for idx, h := range headers {
		col := strings.ToLower(strings.TrimSpace(h))
		skip := false
		for _, ex := range exclude {
			if strings.Contains(col, ex) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		for _, inc := range include {
			if strings.Contains(col, inc) {
				return idx
			}
		}
	}
	return -1
}

// resolveColumns maps the header row onto the fields the tracker needs.
// The ticker and KO columns are load-bearing: without them the sheet is
// structurally unusable and the whole run fails.
func resolveColumns(headers []string) (columnMap, error) {
	cm := columnMap{
		id:            findColumn(headers, []string{"債券", "代號", "id"}),
		name:          findColumn(headers, []string{"理專", "姓名", "客戶", "client", "advisor"}),
		email:         findColumn(headers, []string{"email", "e-mail", "mail", "信箱", "郵箱"}),
		tradeDate:     findColumn(headers, []string{"交易日", "trade date"}),
		issueDate:     findColumn(headers, []string{"發行日", "issue date"}),
		valuationDate: findColumn(headers, []string{"最終", "評價", "valuation"}),
		maturityDate:  findColumn(headers, []string{"到期", "maturity"}),
		ko:            findColumn(headers, []string{"ko", "提前"}, "strike", "執行", "ki", "type", "類型"),
		ki:            findColumn(headers, []string{"ki", "下檔"}, "ko", "type", "類型"),
		kiType:        findColumn(headers, []string{"ki類型", "ki type"}),
		strike:        findColumn(headers, []string{"strike", "執行", "履約"}),
		ticker1:       findColumn(headers, []string{"標的1", "ticker 1"}),
	}

	cm.koType = findColumn(headers, []string{"ko類型", "ko type"})
	if cm.koType < 0 {
		cm.koType = findColumn(headers, []string{"類型", "type"}, "ki", "ko")
	}
	if cm.id < 0 {
		cm.id = 0
	}

	if cm.ticker1 < 0 || cm.ko < 0 {
		return cm, utils.NewStructuralErrorf(
			"cannot resolve required columns (ticker=%d, ko=%d) from headers %v", cm.ticker1, cm.ko, headers)
	}
	return cm, nil
}

// assetColumns returns the code and reference-price columns for the i-th
// basket slot (1-based). Named columns win; otherwise slots are assumed to
// follow the first ticker column in (code, price) pairs.
func assetColumns(headers []string, cm columnMap, i int) (int, int) {
	codeIdx := cm.ticker1
	if i > 1 {
		codeIdx = findColumn(headers, []string{fmt.Sprintf("標的%d", i), fmt.Sprintf("ticker %d", i)})
		if codeIdx < 0 {
			codeIdx = cm.ticker1 + (i-1)*2
		}
	}
	return codeIdx, codeIdx + 1
}
