package moex

import (
	"context"
	"fmt"
	"log/slog"
	"moex-scraper/lib/restyutil"
	"moex-scraper/lib/telemetry"
	"os"
	"path/filepath"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://www.moex.com"
	DefaultUserAgent = "Mozilla/5.0"
)

// Fetcher returns the rendered html of the archive page of a query.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (string, error)
}

// HTTPFetcher fetches archive pages with plain http requests. it does not
// render javascript nor accept consent dialogs, pages that require either
// need a browser backed Fetcher.
type HTTPFetcher struct {
	client    *resty.Client
	baseURL   string
	userAgent string
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(client *resty.Client)

// WithExchangeDump writes every request and response to output.
func WithExchangeDump(output restyutil.Output) FetcherOption {
	return func(client *resty.Client) {
		restyutil.DumpExchanges(client, output)
	}
}

// WithCloudflareBypass wraps the transport so requests carry the TLS
// fingerprint and headers of a browser.
func WithCloudflareBypass() FetcherOption {
	return func(client *resty.Client) {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
}

func NewHTTPFetcher(baseURL, userAgent string, opts ...FetcherOption) HTTPFetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := resty.New()
	telemetry.InstrumentResty(client, "moexscrape.internal.moex.fetch")
	for _, opt := range opts {
		opt(client)
	}
	return HTTPFetcher{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

func (f HTTPFetcher) Fetch(ctx context.Context, q Query) (string, error) {
	link := q.URL(f.baseURL)
	res, err := f.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", f.userAgent).
		Get(link)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("fetch %s: unexpected status %s", link, res.Status())
	}
	return res.String(), nil
}

// LoadPages fetches every query and saves its page as <dir>/<query key>,
// returning the written paths. it stops at the first failure.
func LoadPages(ctx context.Context, fetcher Fetcher, dir string, queries []Query) ([]string, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(queries))
	for _, q := range queries {
		page, err := fetcher.Fetch(ctx, q)
		if err != nil {
			return paths, fmt.Errorf("load %s: %w", q, err)
		}

		path := filepath.Join(dir, q.String())
		err = os.WriteFile(path, []byte(page), 0644)
		if err != nil {
			return paths, err
		}
		slog.DebugContext(ctx, "saved page", "query", q.String(), "path", path, "bytes", len(page))
		paths = append(paths, path)
	}
	return paths, nil
}
