package moex

import (
	"context"
	"fmt"
	"io"
	"moex-scraper/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("moexscrape.internal.moex")

// ContainerSelector matches the element wrapping the archive results table.
const ContainerSelector = "div.ui-table__container"

// ExtractTable reads an archive page and returns the cells of every body
// row of its results table, in page order.
func ExtractTable(ctx context.Context, page io.Reader) ([]RawRow, error) {
	_, span := tracer.Start(ctx, "ExtractTable")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, fmt.Errorf("parse html: %w", err)
	}

	rows, err := extractRows(doc.Selection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract table")
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// ExtractTableString is ExtractTable over an in-memory page.
func ExtractTableString(ctx context.Context, page string) ([]RawRow, error) {
	return ExtractTable(ctx, strings.NewReader(page))
}

func extractRows(doc *goquery.Selection) ([]RawRow, error) {
	table := doc.Find(ContainerSelector).First().Find("table").First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	tbody := table.ChildrenFiltered("tbody").First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("%w: no tbody", ErrEmptyTable)
	}
	trs := tbody.ChildrenFiltered("tr")
	if trs.Length() == 0 {
		return nil, fmt.Errorf("%w: empty tbody", ErrEmptyTable)
	}

	rows := make([]RawRow, 0, trs.Length())
	var rowErr error
	trs.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() != RowWidth {
			rowErr = MalformedRowError{Row: i, Cells: cells.Length()}
			return false
		}

		var row RawRow
		cells.Each(func(j int, td *goquery.Selection) {
			row[j] = htmlutil.CellText(td)
		})
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return rows, nil
}
