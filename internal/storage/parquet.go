package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"moex-scraper/internal/moex"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ParquetBackend stores every location as <dir>/<location>.parquet with
// one row per record, the columns are named like the json fields.
type ParquetBackend struct {
	dir string
}

func (ParquetBackend) Kind() Kind { return KindParquet }

func (b ParquetBackend) Connect(ctx context.Context) (Session, error) {
	err := ensureDir(b.dir)
	if err != nil {
		return nil, ConnectionError{Kind: KindParquet, Err: err}
	}
	return &parquetSession{dir: b.dir}, nil
}

type parquetSession struct {
	dir string
}

func (s *parquetSession) path(location string) string {
	return filepath.Join(s.dir, location+".parquet")
}

func (s *parquetSession) Write(ctx context.Context, location string, records []moex.IndexRecord) error {
	_, span := tracer.Start(ctx, "parquet:Write")
	defer span.End()
	span.SetAttributes(attribute.String("location", location), attribute.Int("records", len(records)))

	err := validateLocation(location)
	if err != nil {
		return err
	}

	docs := toDocuments(records)
	err = writeFileAtomic(s.path(location), func(tmp string) error {
		return parquet.WriteFile(tmp, docs)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write location")
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func (s *parquetSession) Read(ctx context.Context, location string) ([]moex.IndexRecord, error) {
	_, span := tracer.Start(ctx, "parquet:Read")
	defer span.End()
	span.SetAttributes(attribute.String("location", location))

	err := validateLocation(location)
	if err != nil {
		return nil, err
	}

	path := s.path(location)
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, LocationNotFoundError{Location: location}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	docs, err := parquet.ReadFile[document](path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt location")
		return nil, CorruptDataError{Location: location, Err: err}
	}
	return fromDocuments(location, docs)
}

// Close does nothing, files are opened and closed by each operation.
func (s *parquetSession) Close(ctx context.Context) error {
	return nil
}
