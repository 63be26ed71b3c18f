package tablebuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConfigError reports a structural problem in a table definition map, such
// as a foreign-key column without a referenced column. It is raised by
// Compile before any DDL is issued.
type ConfigError struct {
	// Table is the table whose definition is invalid.
	Table string
	// Column is the offending column. It is empty for table-level problems.
	Column string
	// Reason describes what is wrong, e.g. "related column missing".
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("tablebuilder: %s in %s", e.Reason, e.Table)
	}
	return fmt.Sprintf("tablebuilder: %s in %s(%s)", e.Reason, e.Table, e.Column)
}

// DDL operations reported by DDLError.Op.
const (
	OpCreateTable    = "create table"
	OpDropTable      = "drop table"
	OpAddPrimaryKey  = "add primary key"
	OpDropPrimaryKey = "drop primary key"
	OpAddForeignKey  = "add foreign key"
	OpDropForeignKey = "drop foreign key"
)

// DDLError reports a DDL operation rejected by the Executor.
type DDLError struct {
	// Op is one of the Op* constants.
	Op string
	// Object is the table or constraint the operation targeted.
	Object string
	// Err is the error returned by the Executor.
	Err error
}

// Error implements the error interface.
func (e *DDLError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Object, e.Err)
}

// Unwrap allows for inspecting the underlying error using errors.Is or errors.As.
func (e *DDLError) Unwrap() error {
	return e.Err
}

// Code returns the driver error code behind the failure: the SQLSTATE for
// postgres, the error number for mysql. It returns "" when the driver error
// is of an unknown kind.
func (e *DDLError) Code() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code
	}
	var myErr *mysql.MySQLError
	if errors.As(e.Err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	return ""
}

// RollbackError is returned by Apply and Build when the operation failed and
// undoing its completed steps failed as well. Unwrap yields only Cause, so
// errors.Is and errors.As always see the original failure.
type RollbackError struct {
	// Cause is the failure that triggered the rollback.
	Cause error
	// Failures holds every rollback step that failed, in the order attempted.
	Failures []error
}

// Error implements the error interface. The rollback notice is appended to
// the original error text.
func (e *RollbackError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%v (rollback failed: %s)", e.Cause, strings.Join(msgs, "; "))
}

// Unwrap returns the original failure.
func (e *RollbackError) Unwrap() error {
	return e.Cause
}
