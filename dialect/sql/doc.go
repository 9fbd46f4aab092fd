// Package sql implements dialect.Driver on top of database/sql.
//
// Statements carry :named parameters. Before submission the driver rewrites
// them to the placeholder style of its dialect (? for MySQL, SQLite and DB2,
// :n for Oracle, $n for PostgreSQL) and binds the values positionally:
//
//	drv, err := sql.Open("mysql", dsn, nil)
//	if err != nil {
//	    return err
//	}
//	n, err := drv.Exec(ctx, "UPDATE TMS_USER SET USER_NAME = :name WHERE USER_ID = :id",
//	    map[string]any{"name": "lydck", "id": 7})
//
// Slice values expand into a placeholder list, which makes IN clauses work
// without template iteration:
//
//	drv.Query(ctx, "SELECT * FROM TMS_USER WHERE USER_ID IN (:ids)",
//	    map[string]any{"ids": []int{1, 2, 3}}, fn)
//
// # Generated Keys
//
// InsertReturningKey reads generated identities the way each database
// exposes them: LastInsertId on MySQL and SQLite, RETURNING on PostgreSQL,
// RETURNING ... INTO on Oracle and SELECT ... FROM FINAL TABLE on DB2.
//
// # Statistics
//
// StatsDriver and DebugDriver wrap any dialect.Driver with counters, slow
// statement hooks and debug logging.
//
// # Error Codes
//
// ErrorCode extracts the vendor code from MySQL, PostgreSQL and SQLite driver
// errors. IsUniqueConstraintError and IsForeignKeyConstraintError classify
// common constraint violations.
package sql
