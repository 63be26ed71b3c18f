package tablebuilder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/james-darko/gort"
)

// Config holds the settings LoadDB and the *FromEnv helpers read from the
// environment.
type Config struct {
	// Driver is DATABASE_DRIVER. It defaults to "sqlite3" and is forced to
	// "libsql" for libsql: URLs.
	Driver string
	// URL is DATABASE_URL, the data source name. Required.
	URL string
	// Token is DATABASE_TOKEN, the turso auth token for libsql: URLs.
	Token string
	// Tables is DATABASE_TABLES, the path of a YAML definition file.
	Tables string
	// Prefix is TABLE_PREFIX, substituted for "%" in {{%name}} table names.
	Prefix string
}

// ConfigFromEnv reads a Config from the environment.
func ConfigFromEnv() Config {
	c := Config{Driver: "sqlite3"}
	if driver, ok := gort.Env("DATABASE_DRIVER"); ok && driver != "" {
		c.Driver = driver
	}
	c.URL, _ = gort.Env("DATABASE_URL")
	c.Token, _ = gort.Env("DATABASE_TOKEN")
	c.Tables, _ = gort.Env("DATABASE_TABLES")
	c.Prefix, _ = gort.Env("TABLE_PREFIX")
	return c
}

// DataSource returns the driver name and data source name to open.
func (c Config) DataSource() (driver, dsn string, err error) {
	if c.URL == "" {
		return "", "", fmt.Errorf("DATABASE_URL env var not found")
	}
	if !strings.HasPrefix(c.URL, "libsql:") {
		return c.Driver, c.URL, nil
	}
	if c.Token == "" {
		return "", "", fmt.Errorf("DATABASE_TOKEN env var not found")
	}
	return "libsql", c.URL + "?authToken=" + c.Token, nil
}

// Open opens the configured database.
func (c Config) Open() (DB, error) {
	driver, dsn, err := c.DataSource()
	if err != nil {
		return nil, err
	}
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("problem opening %s database: %w", driver, err)
	}
	return db, nil
}

// Executor returns a SQLExecutor on db using the configured table prefix.
func (c Config) Executor(db DB, opts ...ExecOption) *SQLExecutor {
	return NewExecutor(db, append([]ExecOption{WithTablePrefix(c.Prefix)}, opts...)...)
}

// LoadTables reads the configured YAML definition file.
func (c Config) LoadTables() (Tables, error) {
	if c.Tables == "" {
		return nil, fmt.Errorf("DATABASE_TABLES env var not found")
	}
	return LoadTables(c.Tables)
}

// LoadDB opens the database described by ConfigFromEnv. The handle is shared
// by every later call until ResetDB.
func LoadDB() (DB, error) {
	fn := loadDBHandle.Load()
	if fn == nil {
		return nil, fmt.Errorf("database loader is not initialized")
	}
	return (*fn)()
}

// LoadExecutor returns a SQLExecutor on the LoadDB database, using
// TABLE_PREFIX as the table prefix.
func LoadExecutor(opts ...ExecOption) (*SQLExecutor, error) {
	db, err := LoadDB()
	if err != nil {
		return nil, err
	}
	return ConfigFromEnv().Executor(db, opts...), nil
}

// LoadTablesFromEnv reads the YAML definition file named by DATABASE_TABLES.
func LoadTablesFromEnv() (Tables, error) {
	return ConfigFromEnv().LoadTables()
}

// BuildFromEnv builds the tables of DATABASE_TABLES on the LoadExecutor
// database.
func BuildFromEnv(ctx context.Context, opts ...Option) error {
	b, tables, err := fromEnv(opts)
	if err != nil {
		return err
	}
	return b.Build(ctx, tables)
}

// TeardownFromEnv drops the tables of DATABASE_TABLES from the LoadExecutor
// database.
func TeardownFromEnv(ctx context.Context, opts ...Option) error {
	b, tables, err := fromEnv(opts)
	if err != nil {
		return err
	}
	return b.Teardown(ctx, tables)
}

func fromEnv(opts []Option) (*Builder, Tables, error) {
	tables, err := LoadTablesFromEnv()
	if err != nil {
		return nil, nil, err
	}
	exec, err := LoadExecutor()
	if err != nil {
		return nil, nil, err
	}
	return New(exec, opts...), tables, nil
}

// ResetDB drops the handle cached by LoadDB; the next call reads the
// environment again. It does not close the old handle.
func ResetDB() {
	var (
		once sync.Once
		db   DB
		err  error
	)
	fn := func() (DB, error) {
		once.Do(func() {
			db, err = ConfigFromEnv().Open()
		})
		return db, err
	}
	loadDBHandle.Store(&fn)
}

var loadDBHandle atomic.Pointer[func() (DB, error)]

func init() {
	ResetDB()
}
