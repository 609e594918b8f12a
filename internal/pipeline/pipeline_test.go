package pipeline

import (
	"context"
	"errors"
	"moex-scraper/internal/moex"
	"moex-scraper/internal/storage"
	"moex-scraper/lib/telemetry"
	"moex-scraper/lib/testutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memorySession struct {
	backend *memoryBackend
}

func (s memorySession) Write(ctx context.Context, location string, records []moex.IndexRecord) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.writeErr != nil {
		return s.backend.writeErr
	}
	s.backend.stored[location] = records
	return nil
}

func (s memorySession) Read(ctx context.Context, location string) ([]moex.IndexRecord, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	records, ok := s.backend.stored[location]
	if !ok {
		return nil, storage.LocationNotFoundError{Location: location}
	}
	return records, nil
}

func (s memorySession) Close(ctx context.Context) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.closes++
	return nil
}

type memoryBackend struct {
	mu       sync.Mutex
	stored   map[string][]moex.IndexRecord
	connects int
	closes   int
	writeErr error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{stored: map[string][]moex.IndexRecord{}}
}

func (b *memoryBackend) Kind() storage.Kind { return "memory" }

func (b *memoryBackend) Connect(ctx context.Context) (storage.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	return memorySession{backend: b}, nil
}

func TestLocationFor(t *testing.T) {
	testCases := []struct {
		filename string
		expected string
	}{
		{filename: "IMOEX", expected: "IMOEX"},
		{filename: "IMOEX.html", expected: "IMOEX"},
		{filename: "RTSI.HTM", expected: "RTSI"},
		{filename: "/pages/MOEXBC.htm", expected: "MOEXBC"},
		{filename: "IMOEX#from=2025-01-01&till=2025-02-01&sort=TRADEDATE&order=desc", expected: "IMOEX#from=2025-01-01&till=2025-02-01&sort=TRADEDATE&order=desc"},
		{filename: "archive.tar.gz", expected: "archive.tar.gz"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, LocationFor(test.filename), test.filename)
	}
}

func TestRunEndToEnd(t *testing.T) {
	cleanup := testutil.SetupTest(t, "pipeline")
	defer cleanup()

	ctx := context.Background()
	pages := t.TempDir()
	testutil.WritePage(t, pages, "IMOEX", testutil.ArchivePage(testutil.SampleRows...))

	backend, err := storage.New(storage.DirCredentials{Dir: filepath.Join(t.TempDir(), "data")})
	require.NoError(t, err)

	report, err := Run(ctx, Options{PagesDir: pages, Backend: backend})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Equal(t, 1, report.Written())
	require.Equal(t, []PageResult{{
		Location: "IMOEX",
		Path:     filepath.Join(pages, "IMOEX"),
		Records:  3,
	}}, report.Pages)

	var records []moex.IndexRecord
	err = storage.WithSession(ctx, backend, func(s storage.Session) error {
		records, err = s.Read(ctx, "IMOEX")
		return err
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC), records[0].Date)
	require.Equal(t, 3276.61, records[0].PriceAtOpening)
	require.Equal(t, time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC), records[2].Date)
}

func TestRunIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	pages := t.TempDir()
	testutil.WritePage(t, pages, "IMOEX.html", testutil.ArchivePage(testutil.SampleRows...))
	testutil.WritePage(t, pages, "BROKEN.html", "<html><body><p>maintenance</p></body></html>")
	testutil.WritePage(t, pages, "RTSI.html", testutil.ArchivePage(
		[]string{"26.02.2025", "1 100,5", "1 120", "1 090", "abc", "1", "2"},
	))
	testutil.WritePage(t, pages, ".DS_Store", "junk")
	require.NoError(t, os.Mkdir(filepath.Join(pages, "nested"), 0755))

	backend := newMemoryBackend()
	tel := &telemetry.Recorder{}
	report, err := Run(ctx, Options{PagesDir: pages, Backend: backend, Tel: tel})
	require.NoError(t, err)

	locations := []string{}
	for _, p := range report.Pages {
		locations = append(locations, p.Location)
	}
	require.Equal(t, []string{"BROKEN", "IMOEX", "RTSI"}, locations)
	require.Equal(t, 1, report.Written())

	failed := report.Failed()
	require.Len(t, failed, 2)
	require.ErrorIs(t, failed[0].Err, moex.ErrTableNotFound)

	var pageErr PageError
	require.ErrorAs(t, failed[1].Err, &pageErr)
	require.Equal(t, "RTSI", pageErr.Location)
	var numErr moex.NumberParseError
	require.ErrorAs(t, report.Err(), &numErr)

	require.Contains(t, backend.stored, "IMOEX")
	require.NotContains(t, backend.stored, "RTSI")
	require.NotContains(t, backend.stored, "BROKEN")

	// failed pages are rejected before a session is opened
	require.Equal(t, 1, backend.connects)
	require.Equal(t, backend.connects, backend.closes)

	broken := tel.Reports("broken")
	require.Len(t, broken, 2)
	for _, r := range broken {
		require.Equal(t, "pipeline: scrape-page", r.ID)
	}
	counts := tel.Reports("count")
	require.Equal(t, []telemetry.Report{
		{Kind: "count", ID: "pipeline: pages_written", Count: 1},
		{Kind: "count", ID: "pipeline: pages_failed", Count: 2},
	}, counts)
}

func TestRunStoreFailure(t *testing.T) {
	ctx := context.Background()
	pages := t.TempDir()
	testutil.WritePage(t, pages, "IMOEX", testutil.ArchivePage(testutil.SampleRows...))
	testutil.WritePage(t, pages, "RTSI", testutil.ArchivePage(testutil.SampleRows[:1]...))

	backend := newMemoryBackend()
	backend.writeErr = errors.New("disk full")
	tel := &telemetry.Recorder{}

	report, err := Run(ctx, Options{PagesDir: pages, Backend: backend, Tel: tel})
	require.NoError(t, err)
	require.Len(t, report.Failed(), 2)
	require.ErrorIs(t, report.Err(), backend.writeErr)

	require.Equal(t, 2, backend.connects)
	require.Equal(t, 2, backend.closes)
	for _, r := range tel.Reports("broken") {
		require.Equal(t, "pipeline: store-page", r.ID)
	}
}

func TestRunSelected(t *testing.T) {
	ctx := context.Background()
	pages := t.TempDir()
	for _, name := range []string{"IMOEX", "RTSI", "MOEXBC"} {
		testutil.WritePage(t, pages, name, testutil.ArchivePage(testutil.SampleRows...))
	}

	backend := newMemoryBackend()
	tel := &telemetry.Recorder{}
	report, err := Run(ctx, Options{
		PagesDir: pages,
		Backend:  backend,
		Selected: []string{"RTSI", "IMOEXX", "SOMETHING"},
		Tel:      tel,
	})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Pages, 1)
	require.Equal(t, "RTSI", report.Pages[0].Location)
	require.Equal(t, []string{"IMOEXX", "SOMETHING"}, report.Missing)
	require.Len(t, backend.stored, 1)

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Params, "IMOEX")
	require.NotContains(t, warnings[1].Params, "did you mean")
}

func TestRunEmptySelection(t *testing.T) {
	pages := t.TempDir()
	testutil.WritePage(t, pages, "IMOEX", testutil.ArchivePage(testutil.SampleRows...))

	backend := newMemoryBackend()
	report, err := Run(context.Background(), Options{
		PagesDir: pages,
		Backend:  backend,
		Selected: []string{},
		Tel:      &telemetry.Recorder{},
	})
	require.NoError(t, err)
	require.Empty(t, report.Pages)
	require.Zero(t, backend.connects)
}

func TestRunMissingDir(t *testing.T) {
	_, err := Run(context.Background(), Options{
		PagesDir: filepath.Join(t.TempDir(), "missing"),
		Backend:  newMemoryBackend(),
		Tel:      &telemetry.Recorder{},
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunDuplicateLocation(t *testing.T) {
	ctx := context.Background()
	pages := t.TempDir()
	testutil.WritePage(t, pages, "IMOEX", testutil.ArchivePage(testutil.SampleRows...))
	testutil.WritePage(t, pages, "IMOEX.html", testutil.ArchivePage(testutil.SampleRows[:1]...))

	backend := newMemoryBackend()
	tel := &telemetry.Recorder{}
	report, err := Run(ctx, Options{PagesDir: pages, Backend: backend, Tel: tel})
	require.NoError(t, err)

	require.Len(t, report.Pages, 2)
	require.Equal(t, 1, report.Written())
	require.NoError(t, report.Pages[0].Err)
	require.Equal(t, 3, report.Pages[0].Records)

	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, filepath.Join(pages, "IMOEX.html"), failed[0].Path)
	require.ErrorIs(t, failed[0].Err, ErrDuplicateLocation)

	require.Len(t, backend.stored["IMOEX"], 3)
	require.Equal(t, 1, backend.connects)

	broken := tel.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "pipeline: duplicate-page", broken[0].ID)
}
