package tablebuilder

import (
	"fmt"
	"strings"
)

// dialect selects the SQL flavour rendered by SQLExecutor.
type dialect int

const (
	dialectGeneric dialect = iota
	dialectMySQL
	dialectPostgres
	dialectSQLite
)

func dialectFor(driverName string) dialect {
	switch driverName {
	case "mysql":
		return dialectMySQL
	case "postgres", "pgx", "pq":
		return dialectPostgres
	case "sqlite3", "sqlite", "libsql":
		return dialectSQLite
	default:
		return dialectGeneric
	}
}

func (d dialect) String() string {
	switch d {
	case dialectMySQL:
		return "mysql"
	case dialectPostgres:
		return "postgres"
	case dialectSQLite:
		return "sqlite"
	default:
		return "generic"
	}
}

func (d dialect) quoteIdent(id string) string {
	if d == dialectMySQL {
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// quoteTable quotes each segment of a dotted name such as "schema.table".
// Names that are already quoted are passed through.
func (d dialect) quoteTable(name string) string {
	if strings.ContainsAny(name, "\"`[") {
		return name
	}
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quoteIdent(p))
	}
	return strings.Join(out, ".")
}

// quoteColumns quotes a comma separated column list.
func (d dialect) quoteColumns(columns string) string {
	parts := strings.Split(columns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, d.quoteIdent(p))
		}
	}
	return strings.Join(out, ", ")
}

func (d dialect) createTableSQL(table string, columns []ColumnDef, options string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.quoteIdent(c.Name) + " " + c.Definition
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.quoteTable(table), strings.Join(cols, ",\n  "))
	if options = strings.TrimSpace(options); options != "" {
		stmt += " " + options
	}
	return stmt
}

func (d dialect) dropTableSQL(table string) string {
	return "DROP TABLE " + d.quoteTable(table)
}

func (d dialect) primaryKeyClause(name, columns string) string {
	return fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", d.quoteIdent(name), d.quoteColumns(columns))
}

func (d dialect) foreignKeyClause(name, column, refTable, refColumn, onDelete, onUpdate string) string {
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quoteIdent(name), d.quoteColumns(column), d.quoteTable(refTable), d.quoteColumns(refColumn))
	if onDelete != "" {
		clause += " ON DELETE " + onDelete
	}
	if onUpdate != "" {
		clause += " ON UPDATE " + onUpdate
	}
	return clause
}

func (d dialect) addConstraintSQL(table, clause string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.quoteTable(table), clause)
}

func (d dialect) dropPrimaryKeySQL(name, table string) string {
	if d == dialectMySQL {
		return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY", d.quoteTable(table))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.quoteTable(table), d.quoteIdent(name))
}

func (d dialect) dropForeignKeySQL(name, table string) string {
	if d == dialectMySQL {
		return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.quoteTable(table), d.quoteIdent(name))
	}
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.quoteTable(table), d.quoteIdent(name))
}
