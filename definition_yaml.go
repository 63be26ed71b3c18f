package tablebuilder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTables reads a YAML table definition file. See ParseTables.
func LoadTables(path string) (Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open table definitions: %w", err)
	}
	defer f.Close()
	tables, err := ParseTables(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tables, nil
}

// ParseTables reads table definitions from YAML. The document is a mapping
// of table name to a mapping of column name to column spec; key order is
// kept. A column spec is one of:
//
//	id: INTEGER NOT NULL                              # Type
//	user_id: [INTEGER, users, id, {delete: CASCADE}]  # ForeignKey
//	editor_id: {type: INTEGER, table: users, column: id, update: CASCADE}
//	pk: {primary: [a, b]}                             # PrimaryKey, or primary: "a, b"
func ParseTables(r io.Reader) (Tables, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Tables{}, nil
		}
		return nil, fmt.Errorf("could not decode table definitions: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Tables{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, yamlErr(root, "expected a mapping of tables")
	}

	tables := make(Tables, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		table := Table{Name: keyNode.Value}
		if valNode.Kind != yaml.MappingNode {
			return nil, yamlErr(valNode, "table %s: expected a mapping of columns", table.Name)
		}
		for j := 0; j+1 < len(valNode.Content); j += 2 {
			col := valNode.Content[j].Value
			spec, err := parseColumnSpec(valNode.Content[j+1])
			if err != nil {
				return nil, fmt.Errorf("table %s column %s: %w", table.Name, col, err)
			}
			table.Columns = append(table.Columns, Col(col, spec))
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func parseColumnSpec(node *yaml.Node) (ColumnSpec, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return Type(node.Value), nil
	case yaml.SequenceNode:
		return parseForeignKeyList(node)
	case yaml.MappingNode:
		return parseSpecMapping(node)
	default:
		return nil, yamlErr(node, "unsupported column spec")
	}
}

// parseForeignKeyList reads [type, table, column] with an optional trailing
// {delete, update} mapping. Missing elements are left empty for Compile to
// report.
func parseForeignKeyList(node *yaml.Node) (ColumnSpec, error) {
	items := node.Content
	var fk ForeignKey
	if n := len(items); n > 0 && items[n-1].Kind == yaml.MappingNode {
		if err := parseActions(items[n-1], &fk); err != nil {
			return nil, err
		}
		items = items[:n-1]
	}
	fields := []*string{&fk.Type, &fk.RefTable, &fk.RefColumn}
	if len(items) > len(fields) {
		return nil, yamlErr(node, "foreign key takes [type, table, column] and optional actions")
	}
	for i, item := range items {
		if item.Kind != yaml.ScalarNode {
			return nil, yamlErr(item, "expected a scalar")
		}
		*fields[i] = item.Value
	}
	return fk, nil
}

func parseActions(node *yaml.Node, fk *ForeignKey) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch k.Value {
		case "delete":
			fk.OnDelete = v.Value
		case "update":
			fk.OnUpdate = v.Value
		default:
			return yamlErr(k, "unknown referential action %q", k.Value)
		}
	}
	return nil
}

func parseSpecMapping(node *yaml.Node) (ColumnSpec, error) {
	var fk ForeignKey
	var isFK bool
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		switch k.Value {
		case "primary":
			if len(node.Content) != 2 {
				return nil, yamlErr(k, "primary cannot be combined with other keys")
			}
			return parsePrimary(v)
		case "type":
			fk.Type = v.Value
		case "table":
			fk.RefTable = v.Value
			isFK = true
		case "column":
			fk.RefColumn = v.Value
			isFK = true
		case "delete":
			fk.OnDelete = v.Value
			isFK = true
		case "update":
			fk.OnUpdate = v.Value
			isFK = true
		default:
			return nil, yamlErr(k, "unknown key %q", k.Value)
		}
	}
	if !isFK {
		return Type(fk.Type), nil
	}
	return fk, nil
}

func parsePrimary(node *yaml.Node) (ColumnSpec, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return ParsePrimaryKey(node.Value), nil
	case yaml.SequenceNode:
		pk := make(PrimaryKey, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, yamlErr(item, "expected a column name")
			}
			if name := strings.TrimSpace(item.Value); name != "" {
				pk = append(pk, name)
			}
		}
		return pk, nil
	default:
		return nil, yamlErr(node, "primary must be a column list")
	}
}

func yamlErr(node *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", node.Line, fmt.Sprintf(format, args...))
}
