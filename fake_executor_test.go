package tablebuilder_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/james-darko/tablebuilder"
)

// recorder is an in-memory Executor. It records every call as a line such
// as "create users" or "addfk fk_posts__user_id posts" and can be told to
// fail or panic on a given line.
type recorder struct {
	mu     sync.Mutex
	driver string
	calls  []string
	fail   map[string]error
	panics map[string]any

	tables  map[string]bool
	keys    map[string]bool
	columns map[string][]tablebuilder.ColumnDef
	options map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		driver:  "sqlite3",
		fail:    map[string]error{},
		panics:  map[string]any{},
		tables:  map[string]bool{},
		keys:    map[string]bool{},
		columns: map[string][]tablebuilder.ColumnDef{},
		options: map[string]string{},
	}
}

func (r *recorder) failOn(call string) *recorder {
	r.fail[call] = fmt.Errorf("boom: %s", call)
	return r
}

func (r *recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if p, ok := r.panics[call]; ok {
		panic(p)
	}
	return r.fail[call]
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) CreateTable(_ context.Context, table string, columns []tablebuilder.ColumnDef, options string) error {
	if err := r.record("create " + table); err != nil {
		return err
	}
	r.tables[table] = true
	r.columns[table] = columns
	r.options[table] = options
	return nil
}

func (r *recorder) DropTable(_ context.Context, table string) error {
	if err := r.record("drop " + table); err != nil {
		return err
	}
	delete(r.tables, table)
	return nil
}

func (r *recorder) AddPrimaryKey(_ context.Context, name, table, columns string) error {
	return r.record(fmt.Sprintf("addpk %s %s (%s)", name, table, columns))
}

func (r *recorder) DropPrimaryKey(_ context.Context, name, table string) error {
	return r.record(fmt.Sprintf("droppk %s %s", name, table))
}

func (r *recorder) AddForeignKey(_ context.Context, name, table, column, refTable, refColumn, onDelete, onUpdate string) error {
	if err := r.record(fmt.Sprintf("addfk %s %s", name, table)); err != nil {
		return err
	}
	r.keys[name] = true
	return nil
}

func (r *recorder) DropForeignKey(_ context.Context, name, table string) error {
	if err := r.record(fmt.Sprintf("dropfk %s %s", name, table)); err != nil {
		return err
	}
	delete(r.keys, name)
	return nil
}

func (r *recorder) DriverName() string {
	return r.driver
}

func (r *recorder) RawTableName(table string) string {
	return tablebuilder.RawTableName(table, "tbl_")
}

// filter returns the recorded calls starting with prefix.
func filter(calls []string, prefix string) []string {
	var out []string
	for _, c := range calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
