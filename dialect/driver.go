package dialect

import "context"

// Row is the current row of a result set. *sql.Rows implements it.
type Row interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
}

// ParamMode is the direction of a stored procedure parameter.
type ParamMode int

// Parameter directions.
const (
	In ParamMode = iota
	Out
	InOut
)

// String implements fmt.Stringer.
func (m ParamMode) String() string {
	switch m {
	case In:
		return "IN"
	case Out:
		return "OUT"
	case InOut:
		return "INOUT"
	default:
		return "UNKNOWN"
	}
}

// ParamSpec declares one stored procedure parameter.
type ParamSpec struct {
	// Name is the :name used in the call text.
	Name string
	// Mode is the parameter direction.
	Mode ParamMode
	// Dest is a pointer receiving Out and InOut values. It also determines
	// the Go type the driver converts the value to.
	Dest any
}

// Driver is the execution substrate. Queries carry :named parameters
// resolved from params.
type Driver interface {
	// Exec executes query and returns the number of affected rows.
	Exec(ctx context.Context, query string, params map[string]any) (int64, error)

	// Query executes query and calls fn once per result row.
	Query(ctx context.Context, query string, params map[string]any, fn func(Row) error) error

	// QueryScalar executes query and scans the single value of its first
	// row into dest.
	QueryScalar(ctx context.Context, query string, params map[string]any, dest any) error

	// InsertReturningKey executes an insert and returns the value generated
	// for keyColumn.
	InsertReturningKey(ctx context.Context, query string, params map[string]any, keyColumn string) (any, error)

	// BatchExec executes query once per parameter map and returns the
	// affected row counts in order.
	BatchExec(ctx context.Context, query string, batch []map[string]any) ([]int64, error)

	// Call invokes a stored procedure and returns the Out and InOut values
	// keyed by parameter name.
	Call(ctx context.Context, query string, params map[string]any, specs []ParamSpec) (map[string]any, error)

	// Dialect returns the dialect of the underlying database.
	Dialect() Dialect
}
