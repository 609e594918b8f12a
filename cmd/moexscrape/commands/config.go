package commands

import (
	"errors"
	"fmt"
	"moex-scraper/internal/moex"
	"moex-scraper/internal/storage"
	"moex-scraper/lib/configutil"
	"moex-scraper/lib/timezone"
	"time"
)

const DefaultConfigFile = "moexscrape.json5"

type MongoConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Url      string `json:"url"`
	Scheme   string `json:"scheme"`
	Database string `json:"database"`
	// server selection timeout in seconds
	TimeoutSeconds int `json:"timeout_seconds"`
}

type StorageConfig struct {
	Kind  string      `json:"kind"`
	Dir   string      `json:"dir"`
	Path  string      `json:"path"`
	Mongo MongoConfig `json:"mongo"`
}

type QueryConfig struct {
	Index string `json:"index"`
	From  string `json:"from"`
	Till  string `json:"till"`
	Sort  string `json:"sort"`
	Order string `json:"order"`
}

type Config struct {
	PagesDir  string `json:"pages_dir"`
	UserAgent string `json:"user_agent"`
	BaseUrl   string `json:"base_url"`
	// enables the cloudflare transport for fetching pages
	CloudflareBypass bool          `json:"cloudflare_bypass"`
	Storage          StorageConfig `json:"storage"`
	Queries          []QueryConfig `json:"queries"`
}

var errUnknownStorage = errors.New("unknown storage kind")

func readConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, err
	}
	if cfg.PagesDir == "" {
		cfg.PagesDir = "pages"
	}
	return cfg, nil
}

// Credentials picks the storage variant named by the storage section.
func (c Config) Credentials() (storage.Credentials, error) {
	s := c.Storage
	switch storage.Kind(s.Kind) {
	case storage.KindJSON, "":
		return storage.DirCredentials{Dir: s.Dir}, nil
	case storage.KindParquet:
		return storage.ParquetCredentials{Dir: s.Dir}, nil
	case storage.KindSqlite:
		return storage.SqliteCredentials{Path: s.Path}, nil
	case storage.KindMongo:
		return storage.MongoCredentials{
			Username: s.Mongo.Username,
			Password: s.Mongo.Password,
			URL:      s.Mongo.Url,
			Scheme:   s.Mongo.Scheme,
			Database: s.Mongo.Database,
			Timeout:  time.Duration(s.Mongo.TimeoutSeconds) * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStorage, s.Kind)
	}
}

// Backend builds a fresh storage backend from the storage section.
func (c Config) Backend() (storage.Backend, error) {
	creds, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	return storage.New(creds)
}

// ArchiveQueries validates the configured queries, an empty till means the
// current exchange date.
func (c Config) ArchiveQueries() ([]moex.Query, error) {
	return c.archiveQueries(timezone.Today())
}

func (c Config) archiveQueries(today string) ([]moex.Query, error) {
	queries := make([]moex.Query, 0, len(c.Queries))
	for i, q := range c.Queries {
		till := q.Till
		if till == "" {
			till = today
		}
		query, err := moex.NewQuery(
			q.Index, q.From, till,
			moex.WithSort(q.Sort),
			moex.WithOrder(moex.Order(q.Order)),
		)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		queries = append(queries, query)
	}
	return queries, nil
}
