package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"moex-scraper/internal/moex"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("moexscrape.internal.storage")

// JSONBackend stores every location as <dir>/<location>.json, a json
// array with one object per record.
type JSONBackend struct {
	dir string
}

func (JSONBackend) Kind() Kind { return KindJSON }

func (b JSONBackend) Connect(ctx context.Context) (Session, error) {
	err := ensureDir(b.dir)
	if err != nil {
		return nil, ConnectionError{Kind: KindJSON, Err: err}
	}
	return &jsonSession{dir: b.dir}, nil
}

type jsonSession struct {
	dir string
}

func (s *jsonSession) path(location string) string {
	return filepath.Join(s.dir, location+".json")
}

func (s *jsonSession) Write(ctx context.Context, location string, records []moex.IndexRecord) error {
	_, span := tracer.Start(ctx, "json:Write")
	defer span.End()
	span.SetAttributes(attribute.String("location", location), attribute.Int("records", len(records)))

	err := validateLocation(location)
	if err != nil {
		return err
	}

	data, err := json.Marshal(toDocuments(records))
	if err != nil {
		return err
	}
	err = writeFileAtomic(s.path(location), func(tmp string) error {
		return os.WriteFile(tmp, data, 0644)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write location")
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func (s *jsonSession) Read(ctx context.Context, location string) ([]moex.IndexRecord, error) {
	_, span := tracer.Start(ctx, "json:Read")
	defer span.End()
	span.SetAttributes(attribute.String("location", location))

	err := validateLocation(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(location))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, LocationNotFoundError{Location: location}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	docs, err := decodeDocuments(location, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt location")
		return nil, err
	}
	return fromDocuments(location, docs)
}

// Close does nothing, the json backend holds no resources.
func (s *jsonSession) Close(ctx context.Context) error {
	return nil
}
