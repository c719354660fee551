// Package normalize turns provider tables into JSON-safe records.
//
// Statement converts a line-item × report-period table into one record per
// period. History converts a time-indexed OHLCV table into one bar per row.
// Both are pure: they never fail, they degrade missing or odd values to
// omitted keys or nulls.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/yfbridge/internal/frame"
	"github.com/seenimoa/yfbridge/pkg/models"
	"github.com/seenimoa/yfbridge/pkg/utils"
)

// ReportPeriodKey is the first key of every statement record.
const ReportPeriodKey = "report_period"

// Statement converts a statement table (rows are line items, columns are
// report periods) into one record per period, in column order. Missing
// cells are left out of the record.
func Statement(t *frame.Table) []*models.Record {
	records := []*models.Record{}
	if t.Empty() {
		return records
	}

	t = t.RenameColumns(func(c frame.Value) frame.Value {
		return frame.String(periodLabel(c))
	})

	for period, row := range t.Transpose().Rows() {
		rec := models.NewRecord()
		rec.Set(ReportPeriodKey, period.Text())
		for item, cell := range row.Items() {
			if cell.IsMissing() {
				continue
			}
			rec.Set(item.Text(), cellValue(cell))
		}
		records = append(records, rec)
	}
	return records
}

// periodLabel renders a column label: dates as YYYY-MM-DD, everything else
// by its text.
func periodLabel(v frame.Value) string {
	if v.IsTime() {
		return utils.FormatDate(v.TimeValue())
	}
	return v.Text()
}

// cellValue coerces numbers to float64 and keeps anything else in its
// textual form. Infinities have no JSON number form and stay textual.
func cellValue(v frame.Value) any {
	if f, ok := v.Number(); ok && !math.IsInf(f, 0) {
		return f
	}
	return v.Text()
}

// Column names read by History.
const (
	ColDate     = "Date"
	ColDatetime = "Datetime"
	ColOpen     = "Open"
	ColHigh     = "High"
	ColLow      = "Low"
	ColClose    = "Close"
	ColVolume   = "Volume"
)

// History converts a time-indexed price table into bars, one per row, in
// table order. The provider returns rows oldest first; they are not
// re-sorted here.
func History(t *frame.Table) []models.Bar {
	bars := []models.Bar{}
	if t.Empty() {
		return bars
	}

	for _, row := range t.ResetIndex().Rows() {
		bars = append(bars, models.Bar{
			Date:   dateField(row),
			Open:   numberField(row, ColOpen),
			High:   numberField(row, ColHigh),
			Low:    numberField(row, ColLow),
			Close:  numberField(row, ColClose),
			Volume: numberField(row, ColVolume),
		})
	}
	return bars
}

func dateField(row frame.Row) null.String {
	v, ok := row.Get(ColDate)
	if !ok || v.IsMissing() {
		v, _ = row.Get(ColDatetime)
	}
	if v.IsMissing() {
		return null.String{}
	}
	return null.StringFrom(v.Text())
}

func numberField(row frame.Row, name string) null.Float {
	v, ok := row.Get(name)
	if !ok {
		return null.Float{}
	}
	f, ok := v.Number()
	if !ok && v.Kind() == frame.KindString {
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(v.Text()), 64)
		ok = err == nil
	}
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
