package pipeline

import (
	"context"
	"errors"
	"fmt"
	"moex-scraper/internal/moex"
	"moex-scraper/internal/storage"
	"moex-scraper/lib/telemetry"
	"moex-scraper/lib/textutil"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("moexscrape.internal.pipeline")

const (
	report_scrape_page      = "scrape-page"
	report_store_page       = "store-page"
	report_duplicate_page   = "duplicate-page"
	report_select_pages     = "select-pages"
	report_pages_written    = "pages_written"
	report_pages_failed     = "pages_failed"
	suggestionMinSimilarity = 0.8
)

// Options configure a pipeline run.
type Options struct {
	// PagesDir holds the saved archive pages, one file per page.
	PagesDir string
	Backend  storage.Backend
	// Selected restricts the run to these location keys, nil means every page.
	Selected []string
	// Tel defaults to telemetry.SlogAPI.
	Tel telemetry.API
}

// ErrDuplicateLocation is returned for a page whose location key was already
// taken by an earlier file, ex. `IMOEX` and `IMOEX.html`.
var ErrDuplicateLocation = errors.New("duplicate location")

// PageError wraps the failure of a single page.
type PageError struct {
	Location string
	Err      error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %s: %v", e.Location, e.Err)
}

func (e PageError) Unwrap() error {
	return e.Err
}

// PageResult is the outcome of one page.
type PageResult struct {
	Location string
	Path     string
	Records  int
	Err      error
}

// Report lists the outcome of every processed page in processing order.
type Report struct {
	Pages []PageResult
	// Missing are selected locations that matched no page.
	Missing []string
}

// Written returns the number of pages that were stored.
func (r Report) Written() int {
	n := 0
	for _, p := range r.Pages {
		if p.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the pages that could not be scraped or stored.
func (r Report) Failed() []PageResult {
	var out []PageResult
	for _, p := range r.Pages {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Err joins the error of every failed page, nil if all pages were stored.
func (r Report) Err() error {
	var errs []error
	for _, p := range r.Failed() {
		errs = append(errs, p.Err)
	}
	return errors.Join(errs...)
}

// LocationFor returns the location key of a saved page file.
func LocationFor(filename string) string {
	base := filepath.Base(filename)
	for _, ext := range []string{".html", ".htm"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

// ScrapePage reads a saved page and returns its records.
func ScrapePage(ctx context.Context, path string) ([]moex.IndexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := moex.ExtractTable(ctx, f)
	if err != nil {
		return nil, err
	}
	return moex.NormalizeRows(ctx, rows)
}

type page struct {
	location string
	path     string
}

func listPages(dir string) ([]page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var pages []page
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		pages = append(pages, page{
			location: LocationFor(e.Name()),
			path:     filepath.Join(dir, e.Name()),
		})
	}
	// os.ReadDir already sorts by file name
	return pages, nil
}

func selectPages(tel telemetry.API, pages []page, selected []string) ([]page, []string) {
	if selected == nil {
		return pages, nil
	}

	locations := make([]string, len(pages))
	for i, p := range pages {
		locations[i] = p.location
	}

	var out []page
	for _, p := range pages {
		if slices.Contains(selected, p.location) {
			out = append(out, p)
		}
	}

	var missing []string
	for _, location := range selected {
		if slices.Contains(locations, location) {
			continue
		}
		missing = append(missing, location)
		hint, similarity, ok := textutil.Closest(location, locations)
		if ok && similarity >= suggestionMinSimilarity {
			tel.ReportWarning(report_select_pages, fmt.Errorf("no page for location %q", location), "did you mean", hint)
			continue
		}
		tel.ReportWarning(report_select_pages, fmt.Errorf("no page for location %q", location))
	}
	return out, missing
}

// Run scrapes every saved page under PagesDir and writes its records to the
// backend under the page's location key. each page gets its own session, a
// failing page is recorded in the report and does not stop the others.
//
// the returned error is only set when the pages cannot be listed.
func Run(ctx context.Context, opts Options) (Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	if opts.Backend == nil {
		return Report{}, errors.New("pipeline: no storage backend")
	}
	var tel telemetry.API = telemetry.SlogAPI{}
	if opts.Tel != nil {
		tel = opts.Tel
	}
	tel = telemetry.NewScopedAPI("pipeline", tel)

	pages, err := listPages(opts.PagesDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list pages")
		return Report{}, fmt.Errorf("list pages: %w", err)
	}
	pages, missing := selectPages(tel, pages, opts.Selected)

	report := Report{Missing: missing}
	seen := map[string]string{}
	for _, p := range pages {
		if first, ok := seen[p.location]; ok {
			err := fmt.Errorf("%w: %s already stored from %s", ErrDuplicateLocation, p.path, first)
			tel.ReportBroken(report_duplicate_page, err)
			report.Pages = append(report.Pages, PageResult{
				Location: p.location,
				Path:     p.path,
				Err:      PageError{Location: p.location, Err: err},
			})
			continue
		}
		seen[p.location] = p.path

		result := runPage(ctx, tel, opts.Backend, p)
		report.Pages = append(report.Pages, result)
	}

	tel.ReportCount(report_pages_written, int64(report.Written()))
	tel.ReportCount(report_pages_failed, int64(len(report.Failed())))
	span.SetAttributes(
		attribute.Int("pages", len(report.Pages)),
		attribute.Int("failed", len(report.Failed())),
	)
	return report, nil
}

func runPage(ctx context.Context, tel telemetry.API, backend storage.Backend, p page) PageResult {
	ctx, span := tracer.Start(ctx, "runPage")
	defer span.End()
	span.SetAttributes(attribute.String("location", p.location))

	result := PageResult{Location: p.location, Path: p.path}
	fail := func(id string, err error) PageResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, id)
		tel.ReportBroken(id, err, p.path)
		result.Err = PageError{Location: p.location, Err: err}
		return result
	}

	records, err := ScrapePage(ctx, p.path)
	if err != nil {
		return fail(report_scrape_page, err)
	}

	err = storage.WithSession(ctx, backend, func(s storage.Session) error {
		return s.Write(ctx, p.location, records)
	})
	if err != nil {
		return fail(report_store_page, err)
	}

	tel.ReportDebug("stored page", "location", p.location, "records", len(records))
	result.Records = len(records)
	return result
}
