package tablebuilder

import (
	"fmt"
	"strings"
)

// Plan is the compiled form of a table definition map.
type Plan struct {
	// Tables are created in this order.
	Tables []TableSpec
	// ForeignKeys are added after every table exists, in discovery order.
	ForeignKeys []ForeignKeySpec
}

// TableSpec is one CREATE TABLE step, optionally followed by ADD PRIMARY KEY.
type TableSpec struct {
	Name       string
	Columns    []ColumnDef
	PrimaryKey *PrimaryKeySpec
}

// ColumnDef is a real column passed to Executor.CreateTable.
type ColumnDef struct {
	Name       string
	Definition string
}

// PrimaryKeySpec is an ADD PRIMARY KEY step.
type PrimaryKeySpec struct {
	Name  string
	Table string
	// Columns is the comma separated column list.
	Columns string
}

// ForeignKeySpec is an ADD FOREIGN KEY step.
type ForeignKeySpec struct {
	Name      string
	Table     string
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  string
	OnUpdate  string
}

// String renders the plan one step per line.
func (p *Plan) String() string {
	var sb strings.Builder
	for _, t := range p.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Definition
		}
		fmt.Fprintf(&sb, "create table %s (%s)\n", t.Name, strings.Join(cols, ", "))
		if t.PrimaryKey != nil {
			fmt.Fprintf(&sb, "add primary key %s on %s (%s)\n", t.PrimaryKey.Name, t.Name, t.PrimaryKey.Columns)
		}
	}
	for _, fk := range p.ForeignKeys {
		fmt.Fprintf(&sb, "add foreign key %s on %s (%s) references %s (%s)", fk.Name, fk.Table, fk.Column, fk.RefTable, fk.RefColumn)
		if fk.OnDelete != "" {
			sb.WriteString(" on delete " + fk.OnDelete)
		}
		if fk.OnUpdate != "" {
			sb.WriteString(" on update " + fk.OnUpdate)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Compile turns a table definition map into a Plan. rawName maps a table
// name to the raw name used for constraint naming; nil means identity.
//
// Compile does not check that referenced tables exist. It fails with a
// *ConfigError when a foreign-key column lacks its type, referenced table or
// referenced column, when a primary-key marker is empty, or when a table or
// column name is empty or repeated.
func Compile(tables Tables, rawName func(string) string) (*Plan, error) {
	if rawName == nil {
		rawName = func(s string) string { return s }
	}
	plan := &Plan{Tables: make([]TableSpec, 0, len(tables))}
	seenTables := make(map[string]bool, len(tables))

	for _, table := range tables {
		if table.Name == "" {
			return nil, &ConfigError{Reason: "table name missing"}
		}
		if seenTables[table.Name] {
			return nil, &ConfigError{Table: table.Name, Reason: "duplicate table"}
		}
		seenTables[table.Name] = true

		raw := rawName(table.Name)
		spec := TableSpec{Name: table.Name, Columns: make([]ColumnDef, 0, len(table.Columns))}
		seenColumns := make(map[string]bool, len(table.Columns))

		for _, col := range table.Columns {
			if pk, ok := col.Spec.(PrimaryKey); ok {
				if len(pk) == 0 {
					return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "primary key columns missing"}
				}
				spec.PrimaryKey = &PrimaryKeySpec{
					Name:    PrimaryKeyName(raw),
					Table:   table.Name,
					Columns: strings.Join(pk, ","),
				}
				continue
			}

			if col.Name == "" {
				return nil, &ConfigError{Table: table.Name, Reason: "column name missing"}
			}
			if seenColumns[col.Name] {
				return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "duplicate column"}
			}
			seenColumns[col.Name] = true

			switch s := col.Spec.(type) {
			case Type:
				spec.Columns = append(spec.Columns, ColumnDef{Name: col.Name, Definition: string(s)})
			case ForeignKey:
				switch {
				case s.Type == "":
					return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "type missing"}
				case s.RefTable == "":
					return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "related table missing"}
				case s.RefColumn == "":
					return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "related column missing"}
				}
				spec.Columns = append(spec.Columns, ColumnDef{Name: col.Name, Definition: s.Type})
				plan.ForeignKeys = append(plan.ForeignKeys, ForeignKeySpec{
					Name:      ForeignKeyName(raw, col.Name),
					Table:     table.Name,
					Column:    col.Name,
					RefTable:  s.RefTable,
					RefColumn: s.RefColumn,
					OnDelete:  s.OnDelete,
					OnUpdate:  s.OnUpdate,
				})
			default:
				return nil, &ConfigError{Table: table.Name, Column: col.Name, Reason: "column spec missing"}
			}
		}
		plan.Tables = append(plan.Tables, spec)
	}
	return plan, nil
}
