package marshal

import (
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
)

// RowMapper maps the current row to a T. rowNum is the zero-based index
// of the row within its result set.
type RowMapper[T any] func(r dialect.Row, rowNum int) (T, error)

var (
	mapType     = reflect.TypeFor[map[string]any]()
	scannerType = reflect.TypeFor[sql.Scanner]()
	timeType    = reflect.TypeFor[time.Time]()
)

// BeanMapper returns the default mapper for T:
//
//   - structs and pointers to structs are populated column by column; see
//     Plan.Resolve for column resolution;
//   - map[string]any uses MapMapper;
//   - anything else is a single-value target and uses ScalarMapper.
//
// Unresolved columns are skipped with a debug record. A column whose value
// cannot be converted to its field is skipped with a warning; the rest of
// the row is still mapped. A nil m uses Default.
func BeanMapper[T any](m *Marshaller) RowMapper[T] {
	if m == nil {
		m = Default
	}
	t := reflect.TypeFor[T]()
	if t == mapType {
		return any(MapMapper()).(RowMapper[T])
	}
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct || valueType(base) {
		return ScalarMapper[T]()
	}
	plan, planErr := m.Plan(base)
	return func(r dialect.Row, rowNum int) (T, error) {
		var zero T
		if planErr != nil {
			return zero, dal.NewMappingError(base.String(), "", "cannot build field plan", planErr)
		}
		cols, err := r.Columns()
		if err != nil {
			return zero, err
		}
		rv := reflect.New(base)
		dest := make([]any, len(cols))
		cells := make([]*cell, 0, len(cols))
		for i, col := range cols {
			e, ok := plan.Resolve(col)
			if !ok {
				if rowNum == 0 {
					m.logger.Debug("result column not mapped", "type", base.String(), "column", col)
				}
				dest[i] = new(any)
				continue
			}
			c := &cell{column: col, dst: fieldByIndex(rv.Elem(), e.Index)}
			cells = append(cells, c)
			dest[i] = c
		}
		if err := r.Scan(dest...); err != nil {
			return zero, err
		}
		for _, c := range cells {
			if c.err != nil {
				m.logger.Warn("result column skipped", "type", base.String(), "column", c.column, "row", rowNum, "error", c.err)
			}
		}
		if t.Kind() == reflect.Pointer {
			return rv.Interface().(T), nil
		}
		return rv.Elem().Interface().(T), nil
	}
}

// ScalarMapper maps single-column rows to T. A row with any other column
// count, or a value that cannot be converted to T, is a MappingError.
func ScalarMapper[T any]() RowMapper[T] {
	t := reflect.TypeFor[T]()
	return func(r dialect.Row, _ int) (T, error) {
		var out T
		cols, err := r.Columns()
		if err != nil {
			return out, err
		}
		if len(cols) != 1 {
			return out, dal.NewMappingError(t.String(), "", fmt.Sprintf("%d columns cannot map to a single value", len(cols)), nil)
		}
		c := &cell{column: cols[0], dst: reflect.ValueOf(&out).Elem()}
		if err := r.Scan(c); err != nil {
			return out, err
		}
		if c.err != nil {
			return out, dal.NewMappingError(t.String(), cols[0], "cannot convert value", c.err)
		}
		return out, nil
	}
}

// MapMapper maps rows to column-name keyed maps. []byte values become
// strings.
func MapMapper() RowMapper[map[string]any] {
	return mapRow
}

func mapRow(r dialect.Row, _ int) (map[string]any, error) {
	cols, err := r.Columns()
	if err != nil {
		return nil, err
	}
	vals := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := r.Scan(dest...); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			out[col] = string(b)
			continue
		}
		out[col] = vals[i]
	}
	return out, nil
}

// SingleResult reduces items to at most one element: nil when items is
// empty, the first element otherwise. Extra rows are not an error; they are
// logged at debug level.
func SingleResult[T any](items []T, logger *slog.Logger) *T {
	switch len(items) {
	case 0:
		return nil
	case 1:
	default:
		if logger == nil {
			logger = slog.Default()
		}
		logger.Debug("single result expected, using the first row", "rows", len(items))
	}
	return &items[0]
}

// cell receives one column. Conversion failures are recorded instead of
// failing the whole row scan.
type cell struct {
	column string
	dst    reflect.Value
	err    error
}

// Scan implements sql.Scanner.
func (c *cell) Scan(src any) error {
	c.err = assign(c.dst, src)
	return nil
}

// fieldByIndex returns the field at index, allocating nil embedded
// pointers on the way.
func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// valueType reports whether struct type t maps as a single value.
func valueType(t reflect.Type) bool {
	return t == timeType || t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType)
}
