package storage

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Kind names a backend variant.
type Kind string

const (
	KindJSON    Kind = "json"
	KindParquet Kind = "parquet"
	KindSqlite  Kind = "sqlite"
	KindMongo   Kind = "mongo"
)

// ErrInvalidCredentials is returned by New for incomplete credentials.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Credentials is one of DirCredentials, ParquetCredentials,
// SqliteCredentials or MongoCredentials, the variant picks the backend.
type Credentials interface {
	Kind() Kind
	validate() error
}

// DirCredentials point the json backend at a directory, it is created on connect.
type DirCredentials struct {
	Dir string
}

func (DirCredentials) Kind() Kind { return KindJSON }

func (c DirCredentials) validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: empty directory", ErrInvalidCredentials)
	}
	return nil
}

// ParquetCredentials point the parquet backend at a directory.
type ParquetCredentials struct {
	Dir string
}

func (ParquetCredentials) Kind() Kind { return KindParquet }

func (c ParquetCredentials) validate() error {
	if c.Dir == "" {
		return fmt.Errorf("%w: empty directory", ErrInvalidCredentials)
	}
	return nil
}

// SqliteCredentials hold a database file path or a libsql:// / http(s):// url.
type SqliteCredentials struct {
	Path string
}

func (SqliteCredentials) Kind() Kind { return KindSqlite }

func (c SqliteCredentials) validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty database path", ErrInvalidCredentials)
	}
	return nil
}

const (
	DefaultMongoScheme   = "mongodb+srv"
	DefaultMongoDatabase = "moex"
	DefaultMongoTimeout  = time.Second * 10
)

// MongoCredentials are assembled into `<scheme>://<username>:<password><url>`,
// so URL is everything after the password, ex. `@cluster0.abcde.mongodb.net/?retryWrites=true`.
type MongoCredentials struct {
	Username string
	Password string
	URL      string
	// defaults to DefaultMongoScheme
	Scheme string
	// defaults to DefaultMongoDatabase
	Database string
	// server selection timeout, defaults to DefaultMongoTimeout
	Timeout time.Duration
}

func (MongoCredentials) Kind() Kind { return KindMongo }

func (c MongoCredentials) validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: empty mongo url", ErrInvalidCredentials)
	}
	if c.Username == "" && c.Password != "" {
		return fmt.Errorf("%w: password without username", ErrInvalidCredentials)
	}
	return nil
}

func (c MongoCredentials) withDefaults() MongoCredentials {
	if c.Scheme == "" {
		c.Scheme = DefaultMongoScheme
	}
	if c.Database == "" {
		c.Database = DefaultMongoDatabase
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultMongoTimeout
	}
	return c
}

// URI returns the connection string with the user info escaped.
func (c MongoCredentials) URI() string {
	c = c.withDefaults()
	if c.Username == "" {
		return fmt.Sprintf("%s://%s", c.Scheme, c.URL)
	}
	userinfo := url.UserPassword(c.Username, c.Password)
	return fmt.Sprintf("%s://%s%s", c.Scheme, userinfo.String(), c.URL)
}
