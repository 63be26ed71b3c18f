package tablebuilder

import (
	"context"
	"fmt"
	"log/slog"
)

// SQLExecutor is an Executor that renders DDL for the driver of db and runs
// it. The SQL flavour is picked from db.DriverName(): mysql, postgres
// (postgres, pgx, pq), sqlite (sqlite3, sqlite, libsql) or a generic
// ANSI-style fallback.
//
// SQLite cannot add or drop constraints on an existing table, so on SQLite
// the primary-key and foreign-key operations rebuild the table instead.
type SQLExecutor struct {
	db      DB
	dialect dialect
	prefix  string
	logger  *slog.Logger
}

// ExecOption configures a SQLExecutor.
type ExecOption func(*SQLExecutor)

// WithTablePrefix sets the prefix substituted for "%" in {{%name}} table
// name templates.
func WithTablePrefix(prefix string) ExecOption {
	return func(e *SQLExecutor) {
		e.prefix = prefix
	}
}

// WithExecutorLogger sets the logger used for statement tracing.
func WithExecutorLogger(logger *slog.Logger) ExecOption {
	return func(e *SQLExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor returns a SQLExecutor running statements on db.
func NewExecutor(db DB, opts ...ExecOption) *SQLExecutor {
	e := &SQLExecutor{
		db:      db,
		dialect: dialectFor(db.DriverName()),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ Executor = (*SQLExecutor)(nil)

func (e *SQLExecutor) DriverName() string {
	return e.db.DriverName()
}

func (e *SQLExecutor) RawTableName(table string) string {
	return RawTableName(table, e.prefix)
}

func (e *SQLExecutor) tableName(table string) string {
	return ExpandTableName(table, e.prefix)
}

func (e *SQLExecutor) exec(ctx context.Context, query string) error {
	e.logger.Debug("exec ddl", "dialect", e.dialect, "sql", query)
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w (SQL: %s)", err, query)
	}
	return nil
}

func (e *SQLExecutor) CreateTable(ctx context.Context, table string, columns []ColumnDef, options string) error {
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", table)
	}
	return e.exec(ctx, e.dialect.createTableSQL(e.tableName(table), columns, options))
}

func (e *SQLExecutor) DropTable(ctx context.Context, table string) error {
	return e.exec(ctx, e.dialect.dropTableSQL(e.tableName(table)))
}

func (e *SQLExecutor) AddPrimaryKey(ctx context.Context, name, table, columns string) error {
	clause := e.dialect.primaryKeyClause(name, columns)
	if e.dialect == dialectSQLite {
		return e.rebuildTable(ctx, e.tableName(table), addConstraint(clause))
	}
	return e.exec(ctx, e.dialect.addConstraintSQL(e.tableName(table), clause))
}

func (e *SQLExecutor) DropPrimaryKey(ctx context.Context, name, table string) error {
	if e.dialect == dialectSQLite {
		return e.rebuildTable(ctx, e.tableName(table), dropConstraint(name))
	}
	return e.exec(ctx, e.dialect.dropPrimaryKeySQL(name, e.tableName(table)))
}

func (e *SQLExecutor) AddForeignKey(ctx context.Context, name, table, column, refTable, refColumn, onDelete, onUpdate string) error {
	if e.dialect == dialectSQLite {
		// SQLite does not allow a schema qualifier in REFERENCES.
		clause := e.dialect.foreignKeyClause(name, column, e.RawTableName(refTable), refColumn, onDelete, onUpdate)
		return e.rebuildTable(ctx, e.tableName(table), addConstraint(clause))
	}
	clause := e.dialect.foreignKeyClause(name, column, e.tableName(refTable), refColumn, onDelete, onUpdate)
	return e.exec(ctx, e.dialect.addConstraintSQL(e.tableName(table), clause))
}

func (e *SQLExecutor) DropForeignKey(ctx context.Context, name, table string) error {
	if e.dialect == dialectSQLite {
		return e.rebuildTable(ctx, e.tableName(table), dropConstraint(name))
	}
	return e.exec(ctx, e.dialect.dropForeignKeySQL(name, e.tableName(table)))
}
