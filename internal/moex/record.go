package moex

import (
	"context"
	"errors"
	"fmt"
	"moex-scraper/lib/textutil"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RowWidth is the number of cells in an archive table row.
const RowWidth = 7

// Column names, in the order they appear in the archive table. they are
// also the keys of a persisted record.
const (
	ColumnDate           = "date"
	ColumnPriceAtOpening = "price_at_opening"
	ColumnMaxPrice       = "max_price"
	ColumnMinPrice       = "min_price"
	ColumnPriceAtClosure = "price_at_closure"
	ColumnVolumeOfTrade  = "volume_of_trade"
	ColumnCapitalization = "capitalization"
)

var Columns = [RowWidth]string{
	ColumnDate,
	ColumnPriceAtOpening,
	ColumnMaxPrice,
	ColumnMinPrice,
	ColumnPriceAtClosure,
	ColumnVolumeOfTrade,
	ColumnCapitalization,
}

// RawRow holds the trimmed text of the cells of one table row:
// date, opening, max, min, closing, volume, capitalization.
type RawRow [RowWidth]string

// IndexRecord is one trading day of an index.
type IndexRecord struct {
	Date           time.Time
	PriceAtOpening float64
	MaxPrice       float64
	MinPrice       float64
	PriceAtClosure float64
	VolumeOfTrade  float64
	Capitalization float64
}

// numbers returns pointers to the numeric fields in column order.
func (r *IndexRecord) numbers() [RowWidth - 1]*float64 {
	return [RowWidth - 1]*float64{
		&r.PriceAtOpening,
		&r.MaxPrice,
		&r.MinPrice,
		&r.PriceAtClosure,
		&r.VolumeOfTrade,
		&r.Capitalization,
	}
}

var (
	errNotDecimal = errors.New("not a decimal number")
	errNotDate    = errors.New("not a date")
)

var decimalRegex = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumber parses an exchange formatted number: whitespace is the
// thousands separator and a comma is the decimal separator, "1 234,56" is 1234.56.
func ParseNumber(value string) (float64, error) {
	normalized := strings.ReplaceAll(textutil.StripSpace(value), ",", ".")
	if !decimalRegex.MatchString(normalized) {
		return 0, errNotDecimal
	}
	return strconv.ParseFloat(normalized, 64)
}

// dateLayouts are the shapes the exchange archive has used over the years,
// tried in order before falling back to dateparse.
var dateLayouts = []string{
	"02.01.2006",
	DateLayout,
	"02.01.06",
	"2.1.2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a date cell, keeping only its calendar date (UTC midnight).
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return calendarDate(t), nil
		}
	}

	// dateparse reads bare numbers as years or unix timestamps, a number in
	// the date column means the row is shifted.
	if _, err := ParseNumber(value); err == nil {
		return time.Time{}, fmt.Errorf("%w: %q is a number", errNotDate, value)
	}

	t, err := dateparse.ParseIn(value, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, err
	}
	return calendarDate(t), nil
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeRow converts the cells of row number i into a record.
func NormalizeRow(i int, row RawRow) (IndexRecord, error) {
	var record IndexRecord

	date, err := ParseDate(row[0])
	if err != nil {
		return IndexRecord{}, DateParseError{Row: i, Value: row[0]}
	}
	record.Date = date

	for col, field := range record.numbers() {
		value := row[col+1]
		n, err := ParseNumber(value)
		if err != nil {
			return IndexRecord{}, NumberParseError{
				Row:    i,
				Column: Columns[col+1],
				Value:  value,
				Err:    err,
			}
		}
		*field = n
	}
	return record, nil
}

// NormalizeRows converts every row or fails on the first bad one, it never
// returns a partial record set.
func NormalizeRows(ctx context.Context, rows []RawRow) ([]IndexRecord, error) {
	_, span := tracer.Start(ctx, "NormalizeRows")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	records := make([]IndexRecord, len(rows))
	for i, row := range rows {
		record, err := NormalizeRow(i, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to normalize row")
			return nil, fmt.Errorf("normalize: %w", err)
		}
		records[i] = record
	}
	return records, nil
}
