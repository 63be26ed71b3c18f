package tablebuilder

import "strings"

// ForeignKeyName returns the constraint name "fk_<table>__<column>".
// table must already be a raw table name, see RawTableName.
func ForeignKeyName(table, column string) string {
	return "fk_" + table + "__" + column
}

// PrimaryKeyName returns the constraint name "pk_<table>".
// table must already be a raw table name, see RawTableName.
func PrimaryKeyName(table string) string {
	return "pk_" + table
}

// ExpandTableName resolves table name templates: {{%name}} becomes
// prefix+name and {{name}} becomes name. Other names are returned as is.
func ExpandTableName(name, prefix string) string {
	if !strings.Contains(name, "{{") {
		return name
	}
	var sb strings.Builder
	rest := name
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			sb.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end < 0 {
			sb.WriteString(rest)
			break
		}
		sb.WriteString(rest[:start])
		inner := rest[start+2 : start+end]
		if strings.HasPrefix(inner, "%") {
			sb.WriteString(prefix)
			inner = inner[1:]
		}
		sb.WriteString(inner)
		rest = rest[start+end+2:]
	}
	return sb.String()
}

// RawTableName returns the bare table name used for constraint naming: the
// template is expanded, any schema qualifier is dropped and identifier
// quotes are removed. "{{%user}}" with prefix "app_" gives "app_user",
// `public."posts"` gives "posts".
func RawTableName(name, prefix string) string {
	name = ExpandTableName(name, prefix)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.Trim(strings.TrimSpace(name), "\"`[]")
}
