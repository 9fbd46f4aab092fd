package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"reflect"

	"github.com/syssam/dal/dialect"
)

// keyParam is the out-bind name used to retrieve Oracle generated keys.
const keyParam = "_key"

// ExecQuerier wraps the standard Exec and Query methods. It is implemented
// by *sql.DB, *sql.Tx and *sql.Conn.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver is a dialect.Driver implementation for database/sql.
type Driver struct {
	Conn
}

// NewDriver creates a new Driver for the given dialect and connection.
func NewDriver(d dialect.Dialect, c ExecQuerier) *Driver {
	return &Driver{Conn: Conn{ExecQuerier: c, dialect: d}}
}

// Open wraps database/sql.Open and returns a Driver for the named dialect.
// The driver name selects the dialect unless one is given explicitly.
func Open(driverName, source string, d dialect.Dialect) (*Driver, error) {
	if d == nil {
		var err error
		if d, err = dialect.For(driverName); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(d, db), nil
}

// OpenDB wraps the given *sql.DB with a Driver.
func OpenDB(d dialect.Dialect, db *sql.DB) *Driver {
	return NewDriver(d, db)
}

// DB returns the underlying *sql.DB, or nil when the driver wraps a
// transaction or connection.
func (d *Driver) DB() *sql.DB {
	db, _ := d.ExecQuerier.(*sql.DB)
	return db
}

// Close closes the underlying database if the driver owns one.
func (d *Driver) Close() error {
	if db := d.DB(); db != nil {
		return db.Close()
	}
	return nil
}

// Conn implements dialect.Driver given an ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect dialect.Dialect
}

// Dialect implements dialect.Driver.
func (c Conn) Dialect() dialect.Dialect {
	return c.dialect
}

func (c Conn) bind(query string, params map[string]any) (string, []any, error) {
	return Bind(query, params, c.dialect.Placeholder)
}

// Exec implements dialect.Driver.
func (c Conn) Exec(ctx context.Context, query string, params map[string]any) (int64, error) {
	q, args, err := c.bind(query, params)
	if err != nil {
		return 0, err
	}
	res, err := c.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("dialect/sql: rows affected: %w", err)
	}
	return n, nil
}

// Query implements dialect.Driver.
func (c Conn) Query(ctx context.Context, query string, params map[string]any, fn func(dialect.Row) error) (rerr error) {
	q, args, err := c.bind(query, params)
	if err != nil {
		return err
	}
	rows, err := c.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	return nil
}

// QueryScalar implements dialect.Driver. It returns sql.ErrNoRows when the
// query yields no row.
func (c Conn) QueryScalar(ctx context.Context, query string, params map[string]any, dest any) error {
	found := false
	err := c.Query(ctx, query, params, func(r dialect.Row) error {
		if found {
			return nil
		}
		found = true
		if err := r.Scan(dest); err != nil {
			return fmt.Errorf("dialect/sql: scan: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return sql.ErrNoRows
	}
	return nil
}

// InsertReturningKey implements dialect.Driver. The key is read with
// RETURNING on Postgres, an out-bind on Oracle, FINAL TABLE on DB2 and
// sql.Result.LastInsertId elsewhere.
func (c Conn) InsertReturningKey(ctx context.Context, query string, params map[string]any, keyColumn string) (any, error) {
	if keyColumn == "" {
		return c.lastInsertID(ctx, query, params)
	}
	switch c.dialect.Name() {
	case dialect.Postgres:
		var key any
		if err := c.QueryScalar(ctx, query+" RETURNING "+keyColumn, params, &key); err != nil {
			return nil, err
		}
		return key, nil
	case dialect.DB2:
		var key any
		if err := c.QueryScalar(ctx, "SELECT "+keyColumn+" FROM FINAL TABLE ("+query+")", params, &key); err != nil {
			return nil, err
		}
		return key, nil
	case dialect.Oracle:
		var key int64
		args := maps.Clone(params)
		if args == nil {
			args = make(map[string]any, 1)
		}
		args[keyParam] = sql.Out{Dest: &key}
		if _, err := c.Exec(ctx, query+" RETURNING "+keyColumn+" INTO :"+keyParam, args); err != nil {
			return nil, err
		}
		return key, nil
	default:
		return c.lastInsertID(ctx, query, params)
	}
}

func (c Conn) lastInsertID(ctx context.Context, query string, params map[string]any) (any, error) {
	q, args, err := c.bind(query, params)
	if err != nil {
		return nil, err
	}
	res, err := c.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: last insert id: %w", err)
	}
	return id, nil
}

// BatchExec implements dialect.Driver. Execution stops at the first error;
// the counts of the statements executed so far are returned with it.
func (c Conn) BatchExec(ctx context.Context, query string, batch []map[string]any) ([]int64, error) {
	counts := make([]int64, 0, len(batch))
	for i, params := range batch {
		n, err := c.Exec(ctx, query, params)
		if err != nil {
			return counts, fmt.Errorf("dialect/sql: batch item %d: %w", i, err)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// Call implements dialect.Driver. Out and InOut parameters are bound with
// sql.Out, which requires driver support for output parameters.
func (c Conn) Call(ctx context.Context, query string, params map[string]any, specs []dialect.ParamSpec) (map[string]any, error) {
	args := maps.Clone(params)
	if args == nil {
		args = make(map[string]any, len(specs))
	}
	for _, s := range specs {
		if s.Mode == dialect.In {
			continue
		}
		rv := reflect.ValueOf(s.Dest)
		if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
			return nil, fmt.Errorf("dialect/sql: call: parameter %q: %s destination must be a non-nil pointer", s.Name, s.Mode)
		}
		if s.Mode == dialect.InOut {
			if v, ok := params[s.Name]; ok && v != nil {
				in := reflect.ValueOf(v)
				if !in.Type().AssignableTo(rv.Elem().Type()) {
					return nil, fmt.Errorf("dialect/sql: call: parameter %q: cannot assign %T to %s", s.Name, v, rv.Elem().Type())
				}
				rv.Elem().Set(in)
			}
		}
		args[s.Name] = sql.Out{Dest: s.Dest, In: s.Mode == dialect.InOut}
	}
	if _, err := c.Exec(ctx, query, args); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(specs))
	for _, s := range specs {
		if s.Mode == dialect.In {
			continue
		}
		out[s.Name] = reflect.ValueOf(s.Dest).Elem().Interface()
	}
	return out, nil
}

var _ dialect.Driver = (*Driver)(nil)
