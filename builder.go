// Package tablebuilder creates and drops groups of related tables from a
// declarative definition. Tables are created first and foreign keys are added
// once every table exists, so a definition may reference tables declared
// later in it. If anything fails, the tables and foreign keys created so far
// are dropped again before the original error is returned.
package tablebuilder

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Executor is the DDL capability the Builder drives. SQLExecutor implements
// it on top of a database connection.
type Executor interface {
	CreateTable(ctx context.Context, table string, columns []ColumnDef, options string) error
	DropTable(ctx context.Context, table string) error
	// AddPrimaryKey adds a primary key over a comma separated column list.
	AddPrimaryKey(ctx context.Context, name, table, columns string) error
	DropPrimaryKey(ctx context.Context, name, table string) error
	// AddForeignKey adds a foreign key. onDelete and onUpdate may be empty.
	AddForeignKey(ctx context.Context, name, table, column, refTable, refColumn, onDelete, onUpdate string) error
	DropForeignKey(ctx context.Context, name, table string) error
	// DriverName identifies the database driver, e.g. "mysql" or "sqlite3".
	DriverName() string
	// RawTableName strips decoration from a table name for constraint naming.
	RawTableName(table string) string
}

// Builder builds and tears down table definition maps through an Executor.
// A Builder holds no per-call state and may be reused.
type Builder struct {
	exec         Executor
	tableOptions string
	logger       *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithTableOptions overrides the options string passed to every CreateTable
// call. Pass "" to disable the driver default.
func WithTableOptions(options string) Option {
	return func(b *Builder) {
		b.tableOptions = options
	}
}

// WithLogger sets the logger. Rollback failures are reported through it.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns a Builder for exec. Table options default to
// DefaultTableOptions(exec.DriverName()).
func New(exec Executor, opts ...Option) *Builder {
	b := &Builder{
		exec:         exec,
		tableOptions: DefaultTableOptions(exec.DriverName()),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultTableOptions returns the CREATE TABLE options used for a driver:
// "ENGINE=InnoDB" for mysql and nothing otherwise.
func DefaultTableOptions(driverName string) string {
	if driverName == "mysql" {
		return "ENGINE=InnoDB"
	}
	return ""
}

// TableOptions returns the options string passed to CreateTable.
func (b *Builder) TableOptions() string {
	return b.tableOptions
}

// Compile compiles tables using the Executor's raw table names.
func (b *Builder) Compile(tables Tables) (*Plan, error) {
	return Compile(tables, b.exec.RawTableName)
}

// Build creates every table in tables, in order, together with its primary
// key, then adds every foreign key. On failure everything created by this
// call is dropped again and the original error is returned.
func (b *Builder) Build(ctx context.Context, tables Tables) error {
	plan, err := b.Compile(tables)
	if err != nil {
		return err
	}
	return b.Apply(ctx, plan)
}

type foreignKeyRef struct {
	name  string
	table string
}

// completed tracks the work done by one Apply call.
type completed struct {
	tables []string
	keys   []foreignKeyRef
}

// Apply executes a compiled plan. See Build.
//
// If the plan fails, Apply drops the completed foreign keys and then the
// completed tables, each in reverse order of creation. A table counts as
// completed as soon as it exists, even when adding its primary key failed.
// The returned error is the original failure; if cleanup failed too it is
// wrapped in a *RollbackError.
func (b *Builder) Apply(ctx context.Context, plan *Plan) (err error) {
	var done completed
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while building tables, cleaning up", "panic", r)
			if failures := b.rollback(ctx, &done); len(failures) > 0 {
				b.logger.Error("failed to clean up", "error", errors.Join(failures...))
			}
			panic(r)
		}
		if err != nil {
			err = b.cleanup(ctx, &done, err)
		}
	}()

	for _, t := range plan.Tables {
		if err := b.step(OpCreateTable, t.Name, func() error {
			return b.exec.CreateTable(ctx, t.Name, t.Columns, b.tableOptions)
		}); err != nil {
			return err
		}
		done.tables = append(done.tables, t.Name)

		if pk := t.PrimaryKey; pk != nil {
			if err := b.step(OpAddPrimaryKey, pk.Name, func() error {
				return b.exec.AddPrimaryKey(ctx, pk.Name, pk.Table, pk.Columns)
			}); err != nil {
				return err
			}
		}
	}

	for _, fk := range plan.ForeignKeys {
		if err := b.step(OpAddForeignKey, fk.Name, func() error {
			return b.exec.AddForeignKey(ctx, fk.Name, fk.Table, fk.Column, fk.RefTable, fk.RefColumn, fk.OnDelete, fk.OnUpdate)
		}); err != nil {
			return err
		}
		done.keys = append(done.keys, foreignKeyRef{name: fk.Name, table: fk.Table})
	}
	return nil
}

func (b *Builder) cleanup(ctx context.Context, done *completed, cause error) error {
	if len(done.tables) == 0 && len(done.keys) == 0 {
		return cause
	}
	b.logger.Warn("build failed, cleaning up",
		"error", cause,
		"tables", len(done.tables),
		"foreign_keys", len(done.keys))

	failures := b.rollback(ctx, done)
	if len(failures) == 0 {
		return cause
	}
	b.logger.Error("failed to clean up", "error", errors.Join(failures...))
	return &RollbackError{Cause: cause, Failures: failures}
}

// rollback attempts every step even when earlier ones fail and returns the
// failures. It runs detached from ctx cancellation.
func (b *Builder) rollback(ctx context.Context, done *completed) []error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(done.keys) - 1; i >= 0; i-- {
		key := done.keys[i]
		if err := b.step(OpDropForeignKey, key.name, func() error {
			return b.exec.DropForeignKey(ctx, key.name, key.table)
		}); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(done.tables) - 1; i >= 0; i-- {
		table := done.tables[i]
		if err := b.step(OpDropTable, table, func() error {
			return b.exec.DropTable(ctx, table)
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Teardown drops the foreign keys declared in tables and then the tables
// themselves, in reverse definition order. It stops at the first failure
// and does not try to restore anything.
func (b *Builder) Teardown(ctx context.Context, tables Tables) error {
	for _, t := range tables {
		raw := b.exec.RawTableName(t.Name)
		for _, col := range t.Columns {
			if _, ok := col.Spec.(ForeignKey); !ok {
				continue
			}
			name := ForeignKeyName(raw, col.Name)
			if err := b.step(OpDropForeignKey, name, func() error {
				return b.exec.DropForeignKey(ctx, name, t.Name)
			}); err != nil {
				return err
			}
		}
	}
	for i := len(tables) - 1; i >= 0; i-- {
		name := tables[i].Name
		if err := b.step(OpDropTable, name, func() error {
			return b.exec.DropTable(ctx, name)
		}); err != nil {
			return err
		}
	}
	return nil
}

// step runs one DDL operation, logging it and wrapping its error.
func (b *Builder) step(op, object string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return &DDLError{Op: op, Object: object, Err: err}
	}
	b.logger.Info(op, "object", object, "time", time.Since(start).Round(time.Millisecond))
	return nil
}
