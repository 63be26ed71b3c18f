package tablebuilder_test

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/james-darko/gort"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-darko/tablebuilder"
)

func openSQLite(t *testing.T) tablebuilder.DB {
	t.Helper()
	db, err := tablebuilder.Open("sqlite3", filepath.Join(t.TempDir(), "test.db")+"?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sqliteBuilder(db tablebuilder.DB, opts ...tablebuilder.ExecOption) *tablebuilder.Builder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append(opts, tablebuilder.WithExecutorLogger(logger))
	return tablebuilder.New(tablebuilder.NewExecutor(db, opts...), tablebuilder.WithLogger(logger))
}

func tableNames(t *testing.T, db tablebuilder.DB) []string {
	t.Helper()
	var names []string
	err := db.SelectContext(gort.Context(), &names,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	return names
}

type fkRow struct {
	ID       int64  `db:"id"`
	Seq      int64  `db:"seq"`
	Table    string `db:"table"`
	From     string `db:"from"`
	To       string `db:"to"`
	OnUpdate string `db:"on_update"`
	OnDelete string `db:"on_delete"`
	Match    string `db:"match"`
}

func TestSQLiteBuildAndTeardown(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	ctx := gort.Context()
	b := sqliteBuilder(db)

	require.NoError(t, b.Build(ctx, usersPosts))
	assert.Equal(t, []string{"posts", "users"}, tableNames(t, db))

	var createSQL string
	require.NoError(t, db.GetContext(ctx, &createSQL, "SELECT sql FROM sqlite_master WHERE name = 'posts'"))
	assert.Contains(t, createSQL, `CONSTRAINT "pk_posts" PRIMARY KEY ("id")`)
	assert.Contains(t, createSQL, `CONSTRAINT "fk_posts__user_id" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`)

	var fks []fkRow
	require.NoError(t, db.SelectContext(ctx, &fks, "PRAGMA foreign_key_list(posts)"))
	require.Len(t, fks, 1)
	assert.Equal(t, "users", fks[0].Table)
	assert.Equal(t, "user_id", fks[0].From)
	assert.Equal(t, "CASCADE", fks[0].OnDelete)

	// The constraints are enforced.
	_, err := db.ExecContext(ctx, "INSERT INTO posts (id, user_id) VALUES (1, 42)")
	assert.ErrorContains(t, err, "FOREIGN KEY constraint failed")
	_, err = db.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (42, 'ann')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO posts (id, user_id) VALUES (1, 42)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO posts (id, user_id) VALUES (1, 42)")
	assert.ErrorContains(t, err, "UNIQUE constraint failed")

	require.NoError(t, b.Teardown(ctx, usersPosts))
	assert.Empty(t, tableNames(t, db))
}

func TestSQLiteForwardReference(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	tables := tablebuilder.Tables{usersPosts[1], usersPosts[0]}
	require.NoError(t, sqliteBuilder(db).Build(gort.Context(), tables))
	assert.Equal(t, []string{"posts", "users"}, tableNames(t, db))
}

func TestSQLiteRollbackLeavesNoTables(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	ctx := gort.Context()
	_, err := db.ExecContext(ctx, "CREATE TABLE c (id INTEGER)")
	require.NoError(t, err)

	err = sqliteBuilder(db).Build(ctx, chain)
	require.Error(t, err)
	assert.ErrorContains(t, err, "already exists")

	var ddlErr *tablebuilder.DDLError
	require.ErrorAs(t, err, &ddlErr)
	assert.Equal(t, tablebuilder.OpCreateTable, ddlErr.Op)
	assert.Equal(t, "c", ddlErr.Object)

	// Only the table that existed before the build is left.
	assert.Equal(t, []string{"c"}, tableNames(t, db))
}

func TestSQLiteRebuildKeepsRowsAndIndexes(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	ctx := gort.Context()
	b := sqliteBuilder(db)

	require.NoError(t, b.Build(ctx, usersPosts[:1]))
	_, err := db.ExecContext(ctx, "INSERT INTO users (id, name) VALUES (1, 'ann'), (2, 'bob')")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE INDEX idx_users_name ON users (name)")
	require.NoError(t, err)

	exec := tablebuilder.NewExecutor(db, tablebuilder.WithExecutorLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, exec.DropPrimaryKey(ctx, "pk_users", "users"))

	var count int
	require.NoError(t, db.GetContext(ctx, &count, "SELECT count(*) FROM users"))
	assert.Equal(t, 2, count)

	var indexes []string
	require.NoError(t, db.SelectContext(ctx, &indexes, "SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = 'users'"))
	assert.Equal(t, []string{"idx_users_name"}, indexes)

	var createSQL string
	require.NoError(t, db.GetContext(ctx, &createSQL, "SELECT sql FROM sqlite_master WHERE name = 'users'"))
	assert.NotContains(t, createSQL, "pk_users")

	var fkOn int
	require.NoError(t, db.GetContext(ctx, &fkOn, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, fkOn)
}

func TestSQLiteForeignKeyCheckFailsOnOrphans(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	ctx := gort.Context()
	_, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE posts (id INTEGER, user_id INTEGER)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO posts (id, user_id) VALUES (1, 7)`)
	require.NoError(t, err)

	exec := tablebuilder.NewExecutor(db)
	err = exec.AddForeignKey(ctx, "fk_posts__user_id", "posts", "user_id", "users", "id", "", "")
	assert.ErrorContains(t, err, "FOREIGN KEY constraint failed")

	// The failed rebuild is rolled back.
	var createSQL string
	require.NoError(t, db.GetContext(ctx, &createSQL, "SELECT sql FROM sqlite_master WHERE name = 'posts'"))
	assert.NotContains(t, createSQL, "fk_posts__user_id")
}

func TestSQLitePrefixedTables(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	ctx := gort.Context()
	tables := tablebuilder.Tables{
		tablebuilder.NewTable("{{%users}}", tablebuilder.Col("id", tablebuilder.Type("INTEGER NOT NULL")), tablebuilder.Primary("id")),
		tablebuilder.NewTable("{{%posts}}",
			tablebuilder.Col("user_id", tablebuilder.ForeignKey{Type: "INTEGER", RefTable: "{{%users}}", RefColumn: "id"}),
		),
	}
	b := sqliteBuilder(db, tablebuilder.WithTablePrefix("app_"))
	require.NoError(t, b.Build(ctx, tables))
	assert.Equal(t, []string{"app_posts", "app_users"}, tableNames(t, db))

	var createSQL string
	require.NoError(t, db.GetContext(ctx, &createSQL, "SELECT sql FROM sqlite_master WHERE name = 'app_posts'"))
	assert.Contains(t, createSQL, `"fk_app_posts__user_id"`)

	require.NoError(t, b.Teardown(ctx, tables))
	assert.Empty(t, tableNames(t, db))
}
