package tablebuilder

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Open opens a database and wraps it for use with NewExecutor.
func Open(driverName, dataSourceName string) (DB, error) {
	db, err := sqlx.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	return Wrap(db), nil
}

func Wrap(db *sqlx.DB) DB {
	return &sqlxDB{db: db}
}

type DB interface {
	SQLX() *sqlx.DB
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	DriverName() string
	Close() error

	// Conn runs fn on a single dedicated connection, for work that depends
	// on per-connection state such as SQLite pragmas.
	Conn(ctx context.Context, fn func(conn *sqlx.Conn) error) error
}

type sqlxDB struct {
	db *sqlx.DB
}

func (s *sqlxDB) SQLX() *sqlx.DB {
	return s.db
}

func (s *sqlxDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlxDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.GetContext(ctx, dest, query, args...)
}

func (s *sqlxDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *sqlxDB) DriverName() string {
	return s.db.DriverName()
}

func (s *sqlxDB) Close() error {
	return s.db.Close()
}

func (s *sqlxDB) Conn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}
