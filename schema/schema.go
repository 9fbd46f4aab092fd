package schema

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/syssam/dal"
)

// Entry describes one mapped field.
type Entry struct {
	// Column is the target column name.
	Column string
	// Property is the parameter name the field binds to.
	Property string
	// Sequence is the identity sequence name. Empty for non-identity
	// entries and for auto-increment identities.
	Sequence string
	// Assigned marks an identity whose value the application supplies.
	// Assigned identities are always part of the insert column list.
	Assigned bool
	// Index is the field index sequence for reflect.Value.FieldByIndex.
	Index []int
}

// Table is the mapping metadata of a record type. Entries[0] is always
// the identity; the remaining entries keep declaration order.
type Table struct {
	Name    string
	Type    reflect.Type
	Entries []Entry
}

// Identity returns the identity entry.
func (t *Table) Identity() Entry {
	return t.Entries[0]
}

// Columns returns the non-identity entries.
func (t *Table) Columns() []Entry {
	return t.Entries[1:]
}

// Definition is the descriptor table a Describer supplies in place of
// struct tags.
type Definition struct {
	Table  string
	Fields []FieldDef
}

// FieldDef describes one field of a Definition. Field names the Go struct
// field; an empty Column defaults to the field's property name.
type FieldDef struct {
	Field    string
	Column   string
	Identity bool
	Sequence string
	Assigned bool
}

// Describer is implemented by record types that describe their mapping
// directly instead of through `dal` struct tags.
type Describer interface {
	DescribeTable() Definition
}

// Namer is implemented by record types that declare their table name.
type Namer interface {
	TableName() string
}

var (
	describerType = reflect.TypeFor[Describer]()
	namerType     = reflect.TypeFor[Namer]()
	scannerType   = reflect.TypeFor[sql.Scanner]()
	timeType      = reflect.TypeFor[time.Time]()
)

// Extract returns the mapping metadata of the struct type t, or of the
// struct t points to.
//
// A type is mapped when it has a table name (a TableName method or a blank
// field tagged `dal:"table=NAME"`) or carries at least one `dal` tag.
// Exactly one field must be tagged `id`.
func Extract(t reflect.Type) (*Table, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, dal.NewCompileError(t.String(), "", "not a struct type", nil)
	}
	if d, ok := describerOf(t); ok {
		return fromDefinition(t, d.DescribeTable())
	}
	fields, meta, err := walk(t)
	if err != nil {
		return nil, err
	}
	name := meta.table
	if name == "" {
		name = tableNameOf(t)
	}
	if name == "" && !meta.tagged {
		return nil, dal.NewUnmappedEntityError(t.String())
	}
	if name == "" {
		name = TableNameOf(t.Name())
	}
	entries := make([]Entry, 1, max(1, len(fields)))
	identities := 0
	for _, f := range fields {
		if f.identity {
			identities++
			if identities > 1 {
				return nil, dal.NewCompileError(t.String(), f.name, "more than one identity field", nil)
			}
			entries[0] = f.Entry
			continue
		}
		entries = append(entries, f.Entry)
	}
	if identities == 0 {
		return nil, dal.NewMissingIdentityError(t.String())
	}
	return &Table{Name: name, Type: t, Entries: entries}, nil
}

// Fields returns the mappable fields of the struct type t in declaration
// order without requiring a table or identity. It serves row mapping into
// plain result types.
func Fields(t reflect.Type) ([]Entry, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, dal.NewCompileError(t.String(), "", "not a struct type", nil)
	}
	fields, _, err := walk(t)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(fields))
	for i, f := range fields {
		entries[i] = f.Entry
	}
	return entries, nil
}

type field struct {
	Entry
	name     string
	identity bool
}

type typeMeta struct {
	table  string
	tagged bool
}

func walk(t reflect.Type) ([]field, typeMeta, error) {
	var (
		meta   typeMeta
		fields []field
	)
	err := walkStruct(t, nil, &fields, &meta)
	return fields, meta, err
}

func walkStruct(t reflect.Type, index []int, fields *[]field, meta *typeMeta) error {
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, tagged := sf.Tag.Lookup(TagName)
		spec, err := parseTag(tag)
		if err != nil {
			return dal.NewCompileError(t.String(), sf.Name, "invalid tag", err)
		}
		if tagged {
			meta.tagged = true
		}
		if sf.Name == "_" {
			if spec.table != "" && meta.table == "" {
				meta.table = spec.table
			}
			continue
		}
		if spec.skip {
			continue
		}
		if spec.table != "" {
			return dal.NewCompileError(t.String(), sf.Name, "table option is only valid on a blank field", nil)
		}
		ft := sf.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		idx := append(append(make([]int, 0, len(index)+1), index...), i)
		if sf.Anonymous && ft.Kind() == reflect.Struct && !tagged && !isValueStruct(ft) {
			if err := walkStruct(ft, idx, fields, meta); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		switch ft.Kind() {
		case reflect.Chan, reflect.Func, reflect.Map, reflect.UnsafePointer:
			continue
		}
		f := field{name: sf.Name, identity: spec.identity}
		f.Index = idx
		f.Property = spec.prop
		if f.Property == "" {
			f.Property = PropertyName(sf.Name)
		}
		f.Column = spec.column
		if spec.hasColumn && f.Column == "" {
			return dal.NewCompileError(t.String(), sf.Name, "empty column name", nil)
		}
		if f.Column == "" {
			f.Column = f.Property
		}
		if spec.sequence != "" {
			if !spec.identity {
				return dal.NewCompileError(t.String(), sf.Name, "sequence is only valid on the identity field", nil)
			}
			f.Sequence = spec.sequence
		}
		if spec.assigned {
			if !spec.identity || spec.sequence != "" {
				return dal.NewCompileError(t.String(), sf.Name, "assigned is only valid on an identity without sequence", nil)
			}
			f.Assigned = true
		}
		*fields = append(*fields, f)
	}
	return nil
}

// isValueStruct reports whether structs of type t bind as a single value.
func isValueStruct(t reflect.Type) bool {
	return t == timeType || t.Implements(scannerType) || reflect.PointerTo(t).Implements(scannerType)
}

func describerOf(t reflect.Type) (Describer, bool) {
	switch {
	case t.Implements(describerType):
		d, ok := reflect.Zero(t).Interface().(Describer)
		return d, ok
	case reflect.PointerTo(t).Implements(describerType):
		d, ok := reflect.New(t).Interface().(Describer)
		return d, ok
	}
	return nil, false
}

func tableNameOf(t reflect.Type) string {
	switch {
	case t.Implements(namerType):
		return reflect.Zero(t).Interface().(Namer).TableName()
	case reflect.PointerTo(t).Implements(namerType):
		return reflect.New(t).Interface().(Namer).TableName()
	}
	return ""
}

func fromDefinition(t reflect.Type, def Definition) (*Table, error) {
	if def.Table == "" {
		return nil, dal.NewUnmappedEntityError(t.String())
	}
	entries := make([]Entry, 1, max(1, len(def.Fields)))
	identities := 0
	for _, fd := range def.Fields {
		sf, ok := t.FieldByName(fd.Field)
		if !ok {
			return nil, dal.NewCompileError(t.String(), fd.Field, "no such field", nil)
		}
		e := Entry{
			Column:   fd.Column,
			Property: PropertyName(sf.Name),
			Index:    sf.Index,
		}
		if e.Column == "" {
			e.Column = e.Property
		}
		if !fd.Identity {
			if fd.Sequence != "" {
				return nil, dal.NewCompileError(t.String(), fd.Field, "sequence is only valid on the identity field", nil)
			}
			entries = append(entries, e)
			continue
		}
		if identities++; identities > 1 {
			return nil, dal.NewCompileError(t.String(), fd.Field, "more than one identity field", nil)
		}
		e.Sequence, e.Assigned = fd.Sequence, fd.Assigned
		entries[0] = e
	}
	if identities == 0 {
		return nil, dal.NewMissingIdentityError(t.String())
	}
	return &Table{Name: def.Table, Type: t, Entries: entries}, nil
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	if e.Sequence != "" {
		return fmt.Sprintf("%s(:%s, seq %s)", e.Column, e.Property, e.Sequence)
	}
	return fmt.Sprintf("%s(:%s)", e.Column, e.Property)
}
