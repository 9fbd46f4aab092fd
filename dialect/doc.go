// Package dialect provides the vendor dialect abstraction and the execution
// substrate boundary for dal.
//
// # Supported Dialects
//
//   - Oracle: row-number windows, sequence identities, :1 placeholders
//   - MySQL: LIMIT/OFFSET, auto-increment identities, ? placeholders
//   - DB2: OFFSET/FETCH FIRST before a trailing WITH isolation clause
//   - Postgres: LIMIT/OFFSET, nextval('seq') identities, $1 placeholders
//   - SQLite: LIMIT/OFFSET, auto-increment identities, ? placeholders
//
// Each dialect is identified by a constant string:
//
//	dialect.Oracle   = "oracle"
//	dialect.MySQL    = "mysql"
//	dialect.DB2      = "db2"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//
// Rewriting is purely textual. The input SQL is never parsed; the only
// keyword scanning is the case-insensitive search for a DB2 FETCH or trailing
// WITH clause.
//
// # Driver Interface
//
// The Driver interface is the execution substrate. It accepts SQL text with
// :named parameters and a parameter map:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, params map[string]any) (int64, error)
//	    Query(ctx context.Context, query string, params map[string]any, fn func(Row) error) error
//	    QueryScalar(ctx context.Context, query string, params map[string]any, dest any) error
//	    InsertReturningKey(ctx context.Context, query string, params map[string]any, keyColumn string) (any, error)
//	    BatchExec(ctx context.Context, query string, batch []map[string]any) ([]int64, error)
//	    Call(ctx context.Context, query string, params map[string]any, specs []ParamSpec) (map[string]any, error)
//	    Dialect() Dialect
//	}
//
// The dialect/sql package implements it over database/sql.
package dialect
