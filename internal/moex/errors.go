package moex

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate is returned when a query date is not an ISO calendar date.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrInvalidQuery is returned when a page key carries no index name.
	ErrInvalidQuery = errors.New("invalid query string")
	// ErrTableNotFound is returned when a page has no results table.
	ErrTableNotFound = errors.New("results table not found")
	// ErrEmptyTable is returned when the results table has no body rows.
	ErrEmptyTable = errors.New("results table has no rows")
)

// MalformedRowError is returned when a body row does not have exactly RowWidth cells.
type MalformedRowError struct {
	Row   int
	Cells int
}

func (e MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: expected %d cells, got %d", e.Row, RowWidth, e.Cells)
}

// DateParseError is returned when a date cell matches no known layout.
type DateParseError struct {
	Row   int
	Value string
}

func (e DateParseError) Error() string {
	return fmt.Sprintf("row %d: could not parse date %q", e.Row, e.Value)
}

// NumberParseError is returned when a numeric cell is not a decimal number.
type NumberParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e NumberParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: could not parse number %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e NumberParseError) Unwrap() error {
	return e.Err
}
