package tablebuilder

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// connTx runs fn in a transaction on conn. The transaction is committed if
// fn returns nil and rolled back otherwise.
func connTx(ctx context.Context, conn *sqlx.Conn, fn func(tx *sqlx.Tx) error) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = fn(tx)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// withPragma sets a boolean SQLite pragma on conn for the duration of fn and
// restores its previous value afterwards. Pragmas such as foreign_keys are
// ignored inside a transaction, so this must wrap connTx rather than run
// inside it.
func withPragma(ctx context.Context, conn *sqlx.Conn, pragma string, on bool, fn func() error) error {
	var current int
	if err := conn.GetContext(ctx, &current, "PRAGMA "+pragma); err != nil {
		return err
	}
	want := 0
	if on {
		want = 1
	}
	if current == want {
		return fn()
	}
	if _, err := conn.ExecContext(ctx, pragmaSQL(pragma, want)); err != nil {
		return err
	}
	err := fn()
	if _, rErr := conn.ExecContext(context.WithoutCancel(ctx), pragmaSQL(pragma, current)); rErr != nil && err == nil {
		err = rErr
	}
	return err
}

func pragmaSQL(pragma string, value int) string {
	if value == 0 {
		return "PRAGMA " + pragma + "=OFF"
	}
	return "PRAGMA " + pragma + "=ON"
}
