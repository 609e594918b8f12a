package storage

import (
	"context"
	"errors"
	"fmt"
	"moex-scraper/internal/moex"
	"strings"
)

// Session is a live connection to a backend. it must be closed exactly once.
type Session interface {
	// Write replaces whatever is stored at location with records, keeping their order.
	Write(ctx context.Context, location string, records []moex.IndexRecord) error
	// Read returns the records stored at location or a LocationNotFoundError.
	Read(ctx context.Context, location string) ([]moex.IndexRecord, error)
	Close(ctx context.Context) error
}

// Backend opens sessions to one storage. the credentials are bound at
// construction, see New.
type Backend interface {
	Kind() Kind
	Connect(ctx context.Context) (Session, error)
}

// New creates a fresh backend for the given credentials.
func New(creds Credentials) (Backend, error) {
	if creds == nil {
		return nil, fmt.Errorf("%w: no credentials", ErrInvalidCredentials)
	}
	err := creds.validate()
	if err != nil {
		return nil, err
	}

	switch c := creds.(type) {
	case DirCredentials:
		return JSONBackend{dir: c.Dir}, nil
	case ParquetCredentials:
		return ParquetBackend{dir: c.Dir}, nil
	case SqliteCredentials:
		return SqliteBackend{path: c.Path}, nil
	case MongoCredentials:
		return MongoBackend{creds: c.withDefaults()}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported credentials %T", ErrInvalidCredentials, creds)
	}
}

// WithSession connects to the backend, hands the session to fn and closes
// it afterwards, whether fn failed or not.
func WithSession(ctx context.Context, backend Backend, fn func(Session) error) (err error) {
	session, err := backend.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := session.Close(ctx)
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close %s session: %w", backend.Kind(), closeErr))
		}
	}()
	return fn(session)
}

// ErrInvalidLocation is returned for location keys no backend can store.
var ErrInvalidLocation = errors.New("invalid location")

func validateLocation(location string) error {
	if location == "" || location == "." || location == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	if strings.ContainsAny(location, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator or NUL", ErrInvalidLocation, location)
	}
	return nil
}

// LocationNotFoundError is returned when reading a location that was never written.
type LocationNotFoundError struct {
	Location string
}

func (e LocationNotFoundError) Error() string {
	return fmt.Sprintf("location not found: %s", e.Location)
}

// CorruptDataError is returned when stored data cannot be decoded into records.
type CorruptDataError struct {
	Location string
	Err      error
}

func (e CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt data at %s: %v", e.Location, e.Err)
}

func (e CorruptDataError) Unwrap() error {
	return e.Err
}

// ConnectionError is returned when a backend session cannot be established.
type ConnectionError struct {
	Kind Kind
	Err  error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s storage: %v", e.Kind, e.Err)
}

func (e ConnectionError) Unwrap() error {
	return e.Err
}
