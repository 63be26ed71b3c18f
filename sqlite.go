package tablebuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	rsql "github.com/rqlite/sql"
)

type fkViolation struct {
	Table  string        `db:"table"`
	RowID  sql.NullInt64 `db:"rowid"`
	Parent string        `db:"parent"`
	FKID   int64         `db:"fkid"`
}

// tableEdit changes a parsed CREATE TABLE statement in place.
type tableEdit func(ct *rsql.CreateTableStatement) error

// rebuildTable replaces a SQLite table with a copy whose CREATE TABLE
// statement has been changed by edit, keeping its rows, indexes and
// triggers. It follows the SQLite procedure for schema changes ALTER TABLE
// cannot express: with foreign key enforcement off, create new_<table>, copy
// the rows, drop the original, rename the copy and verify the foreign keys.
func (e *SQLExecutor) rebuildTable(ctx context.Context, table string, edit tableEdit) error {
	name := RawTableName(table, "")
	tmp := "new_" + name
	q := e.dialect.quoteIdent

	return e.db.Conn(ctx, func(conn *sqlx.Conn) error {
		return withPragma(ctx, conn, "foreign_keys", false, func() error {
			return withPragma(ctx, conn, "legacy_alter_table", true, func() error {
				return connTx(ctx, conn, func(tx *sqlx.Tx) error {
					var createSQL string
					err := tx.GetContext(ctx, &createSQL, "SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", name)
					if errors.Is(err, sql.ErrNoRows) {
						return fmt.Errorf("no such table: %s", name)
					} else if err != nil {
						return fmt.Errorf("could not read definition of table %s: %w", name, err)
					}
					var dependents []string
					err = tx.SelectContext(ctx, &dependents,
						"SELECT sql FROM sqlite_master WHERE tbl_name = ? AND type IN ('index', 'trigger') AND sql IS NOT NULL", name)
					if err != nil {
						return fmt.Errorf("could not read indexes of table %s: %w", name, err)
					}

					tmpSQL, err := rewriteCreateTable(createSQL, tmp, edit)
					if err != nil {
						return fmt.Errorf("rebuild table %s: %w", name, err)
					}

					stmts := []string{
						tmpSQL,
						fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", q(tmp), q(name)),
						"DROP TABLE " + q(name),
						fmt.Sprintf("ALTER TABLE %s RENAME TO %s", q(tmp), q(name)),
					}
					stmts = append(stmts, dependents...)
					for _, stmt := range stmts {
						e.logger.Debug("exec ddl", "dialect", e.dialect, "sql", stmt)
						if _, err := tx.ExecContext(ctx, stmt); err != nil {
							return fmt.Errorf("rebuild table %s: %w (SQL: %s)", name, err, stmt)
						}
					}

					var violations []fkViolation
					if err := tx.SelectContext(ctx, &violations, "PRAGMA foreign_key_check("+q(name)+")"); err != nil {
						return fmt.Errorf("foreign key check on %s: %w", name, err)
					}
					if len(violations) > 0 {
						return fmt.Errorf("FOREIGN KEY constraint failed: %d rows of %s reference missing rows in %s",
							len(violations), name, violations[0].Parent)
					}
					return nil
				})
			})
		})
	})
}

// rewriteCreateTable parses createSQL, applies edit and renders the result
// as a CREATE TABLE statement for newName.
func rewriteCreateTable(createSQL, newName string, edit tableEdit) (string, error) {
	ct, err := parseCreateTable(createSQL)
	if err != nil {
		return "", err
	}
	if ct.Select != nil {
		return "", fmt.Errorf("table %s was created from a SELECT", rsql.IdentName(ct.Name))
	}
	// String does not render these clauses, so a rebuild would lose them.
	if ct.Without.IsValid() || ct.Strict.IsValid() {
		return "", fmt.Errorf("WITHOUT ROWID and STRICT tables are not supported: %s", rsql.IdentName(ct.Name))
	}
	if err := edit(ct); err != nil {
		return "", err
	}
	ct.Name = &rsql.Ident{Name: newName, Quoted: true}
	ct.If, ct.IfNot, ct.IfNotExists = rsql.Pos{}, rsql.Pos{}, rsql.Pos{}
	return ct.String(), nil
}

func parseCreateTable(stmt string) (*rsql.CreateTableStatement, error) {
	parsed, err := rsql.NewParser(strings.NewReader(stmt)).ParseStatement()
	if err != nil {
		return nil, fmt.Errorf("invalid table definition: %w (SQL: %s)", err, stmt)
	}
	ct, ok := parsed.(*rsql.CreateTableStatement)
	if !ok {
		return nil, fmt.Errorf("not a CREATE TABLE statement: %s", stmt)
	}
	return ct, nil
}

// parseTableConstraint parses a single table constraint clause such as
// CONSTRAINT "pk_users" PRIMARY KEY ("id").
func parseTableConstraint(clause string) (rsql.Constraint, error) {
	ct, err := parseCreateTable("CREATE TABLE t (c INTEGER, " + clause + ")")
	if err != nil {
		return nil, err
	}
	if len(ct.Constraints) != 1 {
		return nil, fmt.Errorf("expected one table constraint: %s", clause)
	}
	return ct.Constraints[0], nil
}

func constraintName(c rsql.Constraint) string {
	switch c := c.(type) {
	case *rsql.PrimaryKeyConstraint:
		return rsql.IdentName(c.Name)
	case *rsql.ForeignKeyConstraint:
		return rsql.IdentName(c.Name)
	}
	return ""
}

// addConstraint appends a table constraint clause.
func addConstraint(clause string) tableEdit {
	return func(ct *rsql.CreateTableStatement) error {
		c, err := parseTableConstraint(clause)
		if err != nil {
			return err
		}
		if name := constraintName(c); name != "" {
			for _, existing := range ct.Constraints {
				if constraintName(existing) == name {
					return fmt.Errorf("constraint %s already exists", name)
				}
			}
		}
		ct.Constraints = append(ct.Constraints, c)
		return nil
	}
}

// dropConstraint removes the named primary key or foreign key constraint.
func dropConstraint(name string) tableEdit {
	return func(ct *rsql.CreateTableStatement) error {
		for i, c := range ct.Constraints {
			if constraintName(c) == name {
				ct.Constraints = append(ct.Constraints[:i:i], ct.Constraints[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("no such constraint: %s", name)
	}
}
