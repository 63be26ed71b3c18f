package tablebuilder

import "strings"

// Tables is an ordered table definition map: the sole input to Build and
// Teardown. Order matters. Tables are created in this order and foreign keys
// are discovered in this order, which keeps plans and constraint names
// reproducible.
type Tables []Table

// Table returns the definition of the named table, if present.
func (t Tables) Table(name string) (Table, bool) {
	for _, tbl := range t {
		if tbl.Name == name {
			return tbl, true
		}
	}
	return Table{}, false
}

// Names returns the table names in definition order.
func (t Tables) Names() []string {
	names := make([]string, len(t))
	for i, tbl := range t {
		names[i] = tbl.Name
	}
	return names
}

// Table is a single entry of a table definition map.
type Table struct {
	// Name is the table name as passed to the Executor. It may carry
	// decoration such as a {{%name}} prefix template or a schema qualifier;
	// constraint names are always derived from the raw name.
	Name string
	// Columns is the ordered column set of the table.
	Columns Columns
}

// NewTable returns a Table with the given columns.
func NewTable(name string, columns ...Column) Table {
	return Table{Name: name, Columns: columns}
}

// Columns is the ordered column set of a table.
type Columns []Column

// Column is a named column specification. For a primary-key marker the name
// is only a label and does not produce a real column.
type Column struct {
	Name string
	Spec ColumnSpec
}

// Col returns a Column with the given name and spec.
func Col(name string, spec ColumnSpec) Column {
	return Column{Name: name, Spec: spec}
}

// Primary returns a primary-key marker column over the given columns.
func Primary(columns ...string) Column {
	return Column{Name: "primary", Spec: PrimaryKey(columns)}
}

// ColumnSpec is one of Type, ForeignKey or PrimaryKey.
type ColumnSpec interface {
	columnSpec()
}

// Type is a plain column. The definition is opaque and passed to
// CreateTable verbatim, e.g. "INTEGER NOT NULL" or "VARCHAR(64)".
type Type string

// ForeignKey is a column that also declares a referential constraint.
// Type, RefTable and RefColumn are required.
type ForeignKey struct {
	// Type is the column definition, as for a plain column.
	Type string
	// RefTable is the referenced table. It may be declared earlier or later
	// in the same Tables, or exist already.
	RefTable string
	// RefColumn is the referenced column.
	RefColumn string
	// OnDelete is the optional ON DELETE action, e.g. "CASCADE".
	OnDelete string
	// OnUpdate is the optional ON UPDATE action.
	OnUpdate string
}

// PrimaryKey marks the (possibly composite) primary key of a table.
type PrimaryKey []string

// ParsePrimaryKey splits a comma separated column list such as "a, b".
func ParsePrimaryKey(s string) PrimaryKey {
	var pk PrimaryKey
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			pk = append(pk, part)
		}
	}
	return pk
}

func (Type) columnSpec()       {}
func (ForeignKey) columnSpec() {}
func (PrimaryKey) columnSpec() {}
