package db

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Querier is the read/write surface shared by the store and an open transaction.
// Queries use ? placeholders; they are rebound for the active driver.
type Querier interface {
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Store owns the process-wide connection. Writes are serialized: one
// statement or transaction at a time.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	writeMu sync.Mutex
}

func Open(dsn string) (*Store, error) {
	dialect := DialectFor(dsn)
	var (
		conn *sqlx.DB
		err  error
	)
	switch dialect {
	case DialectPostgres:
		conn, err = sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, wrap("open", err)
		}
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	default:
		conn, err = sqlx.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, wrap("open", err)
		}
		// one connection: the file is used by a single process
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, wrap("ping", err)
	}
	return &Store{db: conn, dialect: dialect}, nil
}

func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return wrap("close", s.db.Close())
}

func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return res, wrap("exec", err)
}

func (s *Store) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return wrap("get", s.db.GetContext(ctx, dest, s.db.Rebind(query), args...))
}

func (s *Store) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return wrap("select", s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...))
}

// WithTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back otherwise, so either every statement lands or none does.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin", err)
	}
	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return wrap("commit", sqlTx.Commit())
}

// ExecScript runs a multi-statement script (migrations).
func (s *Store) ExecScript(ctx context.Context, script string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.db.ExecContext(ctx, script)
	return wrap("exec script", err)
}

type Tx struct {
	tx *sqlx.Tx
}

func (t *Tx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	return res, wrap("exec", err)
}

func (t *Tx) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return wrap("get", t.tx.GetContext(ctx, dest, t.tx.Rebind(query), args...))
}

func (t *Tx) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return wrap("select", t.tx.SelectContext(ctx, dest, t.tx.Rebind(query), args...))
}
