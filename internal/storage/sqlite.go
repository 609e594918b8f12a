package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"moex-scraper/internal/moex"
	"strings"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// SqliteBackend keeps every location in one sqlite (or libsql) database,
// each record is stored as the same json object the json backend writes.
type SqliteBackend struct {
	path string
}

func (SqliteBackend) Kind() Kind { return KindSqlite }

func driverFor(path string) string {
	for _, prefix := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(path, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

func schemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(Schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (b SqliteBackend) Connect(ctx context.Context) (Session, error) {
	db, err := sql.Open(driverFor(b.path), b.path)
	if err != nil {
		return nil, ConnectionError{Kind: KindSqlite, Err: err}
	}
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		return nil, ConnectionError{Kind: KindSqlite, Err: errors.Join(err, db.Close())}
	}
	for _, stmt := range schemaStatements() {
		_, err = db.ExecContext(ctx, stmt)
		if err != nil {
			return nil, ConnectionError{Kind: KindSqlite, Err: errors.Join(err, db.Close())}
		}
	}
	return &sqliteSession{db: db}, nil
}

type sqliteSession struct {
	db *sql.DB
}

func (s *sqliteSession) Write(ctx context.Context, location string, records []moex.IndexRecord) error {
	ctx, span := tracer.Start(ctx, "sqlite:Write")
	defer span.End()
	span.SetAttributes(attribute.String("location", location), attribute.Int("records", len(records)))

	err := validateLocation(location)
	if err != nil {
		return err
	}

	err = s.replace(ctx, location, toDocuments(records))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write location")
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func (s *sqliteSession) replace(ctx context.Context, location string, docs []document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from records where location = ?", location)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "insert or ignore into locations (name) values (?)", location)
	if err != nil {
		return err
	}

	insert, err := tx.PrepareContext(ctx, "insert into records (location, seq, body) values (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insert.Close()

	for i, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = insert.ExecContext(ctx, location, i, string(body))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteSession) Read(ctx context.Context, location string) ([]moex.IndexRecord, error) {
	ctx, span := tracer.Start(ctx, "sqlite:Read")
	defer span.End()
	span.SetAttributes(attribute.String("location", location))

	err := validateLocation(location)
	if err != nil {
		return nil, err
	}

	var name string
	err = s.db.QueryRowContext(ctx, "select name from locations where name = ?", location).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, LocationNotFoundError{Location: location}
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	rows, err := s.db.QueryContext(ctx, "select body from records where location = ? order by seq", location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	defer rows.Close()

	docs := []document{}
	for rows.Next() {
		var body string
		err = rows.Scan(&body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}
		doc, err := decodeDocument(json.RawMessage(body))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "corrupt location")
			return nil, CorruptDataError{Location: location, Err: fmt.Errorf("record %d: %w", len(docs), err)}
		}
		docs = append(docs, doc)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return fromDocuments(location, docs)
}

func (s *sqliteSession) Close(ctx context.Context) error {
	return s.db.Close()
}
