package tablebuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialectFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, dialectMySQL, dialectFor("mysql"))
	assert.Equal(t, dialectPostgres, dialectFor("pgx"))
	assert.Equal(t, dialectPostgres, dialectFor("postgres"))
	assert.Equal(t, dialectSQLite, dialectFor("sqlite3"))
	assert.Equal(t, dialectSQLite, dialectFor("libsql"))
	assert.Equal(t, dialectGeneric, dialectFor("oracle"))
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()
	cols := []ColumnDef{{Name: "id", Definition: "INTEGER NOT NULL"}, {Name: "name", Definition: "VARCHAR(64)"}}
	assert.Equal(t, "CREATE TABLE `users` (\n  `id` INTEGER NOT NULL,\n  `name` VARCHAR(64)\n) ENGINE=InnoDB",
		dialectMySQL.createTableSQL("users", cols, "ENGINE=InnoDB"))
	assert.Equal(t, "CREATE TABLE \"public\".\"users\" (\n  \"id\" INTEGER NOT NULL,\n  \"name\" VARCHAR(64)\n)",
		dialectPostgres.createTableSQL("public.users", cols, ""))
}

func TestConstraintSQL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"mysql add pk",
			dialectMySQL.addConstraintSQL("users", dialectMySQL.primaryKeyClause("pk_users", "a,b")),
			"ALTER TABLE `users` ADD CONSTRAINT `pk_users` PRIMARY KEY (`a`, `b`)",
		},
		{
			"mysql drop pk",
			dialectMySQL.dropPrimaryKeySQL("pk_users", "users"),
			"ALTER TABLE `users` DROP PRIMARY KEY",
		},
		{
			"mysql drop fk",
			dialectMySQL.dropForeignKeySQL("fk_posts__user_id", "posts"),
			"ALTER TABLE `posts` DROP FOREIGN KEY `fk_posts__user_id`",
		},
		{
			"postgres add fk",
			dialectPostgres.addConstraintSQL("posts", dialectPostgres.foreignKeyClause("fk_posts__user_id", "user_id", "users", "id", "CASCADE", "SET NULL")),
			`ALTER TABLE "posts" ADD CONSTRAINT "fk_posts__user_id" FOREIGN KEY ("user_id") REFERENCES "users" ("id") ON DELETE CASCADE ON UPDATE SET NULL`,
		},
		{
			"postgres drop pk",
			dialectPostgres.dropPrimaryKeySQL("pk_users", "users"),
			`ALTER TABLE "users" DROP CONSTRAINT "pk_users"`,
		},
		{
			"generic drop fk",
			dialectGeneric.dropForeignKeySQL("fk_posts__user_id", "posts"),
			`ALTER TABLE "posts" DROP CONSTRAINT "fk_posts__user_id"`,
		},
		{
			"quoted table passes through",
			dialectPostgres.dropTableSQL(`public."posts"`),
			`DROP TABLE public."posts"`,
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.got, tt.name)
	}
}
