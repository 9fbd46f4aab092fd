package marshal

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/syssam/dal"
	"github.com/syssam/dal/schema"
)

// Marshaller converts records to parameter maps and rows to records. Plans
// are built once per type and shared; a Marshaller is safe for concurrent
// use.
type Marshaller struct {
	plans  dal.TypeStore[*Plan]
	logger *slog.Logger
}

// Option configures a Marshaller.
type Option func(*Marshaller)

// WithLogger sets the logger receiving mapping diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Marshaller) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStore sets the store holding per-type plans.
func WithStore(s dal.TypeStore[*Plan]) Option {
	return func(m *Marshaller) {
		m.plans = s
	}
}

// New returns a Marshaller.
func New(opts ...Option) *Marshaller {
	m := &Marshaller{
		plans:  dal.NewSyncStore[reflect.Type, *Plan](),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Default is the Marshaller behind the package-level functions.
var Default = New()

// Plan is the accessor table of a struct type: its mapped fields and the
// column and property lookups used to resolve result columns.
type Plan struct {
	Type    reflect.Type
	Entries []schema.Entry
	columns map[string]int
	props   map[string]int
}

// Plan returns the plan of the struct type t, or of the struct t points
// to, building it on first use.
func (m *Marshaller) Plan(t reflect.Type) (*Plan, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if p, ok := m.plans.Load(t); ok {
		return p, nil
	}
	p, err := newPlan(t)
	if err != nil {
		return nil, err
	}
	p, _ = m.plans.LoadOrStore(t, p)
	return p, nil
}

func newPlan(t reflect.Type) (*Plan, error) {
	var entries []schema.Entry
	// Mapped entities keep their compiled descriptors, including those
	// supplied by a Describer. Anything else maps leniently.
	if tbl, err := schema.Extract(t); err == nil {
		entries = tbl.Entries
	} else if entries, err = schema.Fields(t); err != nil {
		return nil, err
	}
	p := &Plan{
		Type:    t,
		Entries: entries,
		columns: make(map[string]int, len(entries)),
		props:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if _, ok := p.columns[strings.ToLower(e.Column)]; !ok {
			p.columns[strings.ToLower(e.Column)] = i
		}
		if _, ok := p.props[strings.ToLower(e.Property)]; !ok {
			p.props[strings.ToLower(e.Property)] = i
		}
	}
	return p, nil
}

// Resolve returns the entry a result column maps to. Declared column names
// match case-insensitively; otherwise the column is transliterated to a
// property name (USER_NAME -> userName) and matched against properties.
func (p *Plan) Resolve(column string) (schema.Entry, bool) {
	if i, ok := p.columns[strings.ToLower(column)]; ok {
		return p.Entries[i], true
	}
	if prop := schema.ColumnToProperty(column); prop != "" {
		if i, ok := p.props[strings.ToLower(prop)]; ok {
			return p.Entries[i], true
		}
	}
	return schema.Entry{}, false
}

// Params returns the property-name keyed values of the struct value v.
// Nil pointers, including nil embedded structs, yield nil values; other
// pointers are dereferenced.
func (p *Plan) Params(v reflect.Value) map[string]any {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	out := make(map[string]any, len(p.Entries))
	for _, e := range p.Entries {
		fv, err := v.FieldByIndexErr(e.Index)
		if err != nil {
			out[e.Property] = nil
			continue
		}
		out[e.Property] = value(fv)
	}
	return out
}

func value(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	}
	return v.Interface()
}

// ToParamMap converts v to a parameter map with the Default marshaller.
func ToParamMap(v any) (map[string]any, error) {
	return Default.ToParamMap(v)
}

// ToParamMap converts v to a parameter map:
//
//   - a map[string]any is returned as is, not copied;
//   - other string-keyed maps are copied;
//   - structs and pointers to structs yield one entry per mapped field,
//     keyed by property name;
//   - nil yields an empty map.
func (m *Marshaller) ToParamMap(v any) (map[string]any, error) {
	switch v := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, dal.NewMappingError(rv.Type().String(), "", "parameter map keys must be strings", nil)
		}
		out := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			out[it.Key().String()] = it.Value().Interface()
		}
		return out, nil
	case reflect.Struct:
		p, err := m.Plan(rv.Type())
		if err != nil {
			return nil, err
		}
		return p.Params(rv), nil
	default:
		return nil, dal.NewMappingError(rv.Type().String(), "", "cannot bind value as named parameters", nil)
	}
}

// StripEmpty returns a copy of params without nil values, nil pointers and
// empty strings. params itself is not modified.
func StripEmpty(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if empty(v) {
			continue
		}
		out[k] = v
	}
	return out
}

func empty(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.String:
		return rv.Len() == 0
	}
	return false
}
