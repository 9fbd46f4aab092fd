package sql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// intCoder is implemented by drivers reporting numeric result codes,
// e.g. modernc.org/sqlite.
type intCoder interface {
	Code() int
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// ErrorCode returns the vendor error code carried by err, or "" when the
// driver reports none. MySQL yields its error number, PostgreSQL its
// SQLSTATE and SQLite its extended result code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	if e, ok := asError[intCoder](err); ok {
		return strconv.Itoa(e.Code())
	}
	return ""
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation. e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	switch ErrorCode(err) {
	case pgUniqueViolation, strconv.Itoa(mysqlDuplicateEntry):
		return true
	}
	// Fallback to string matching for drivers that expose no codes.
	return containsAny(err.Error(),
		"UNIQUE constraint failed", // SQLite
		"ORA-00001",                // Oracle
		"SQLCODE=-803",             // DB2
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database
// foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	switch ErrorCode(err) {
	case pgForeignKeyViolation, strconv.Itoa(mysqlForeignKeyParent), strconv.Itoa(mysqlForeignKeyChild):
		return true
	}
	return containsAny(err.Error(),
		"FOREIGN KEY constraint failed", // SQLite
		"ORA-02291", "ORA-02292",        // Oracle
		"SQLCODE=-530", "SQLCODE=-532", // DB2
	)
}

// IsCheckConstraintError reports if the error resulted from a database
// check constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	switch ErrorCode(err) {
	case pgCheckViolation, strconv.Itoa(mysqlCheckConstraintViolate):
		return true
	}
	return containsAny(err.Error(),
		"CHECK constraint failed", // SQLite
		"ORA-02290",               // Oracle
		"SQLCODE=-545",            // DB2
	)
}

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
