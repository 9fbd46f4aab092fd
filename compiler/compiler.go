package compiler

import (
	"reflect"
	"strings"

	"github.com/syssam/dal/dialect"
	"github.com/syssam/dal/schema"
)

// IdentitiesParam is the parameter SelectIn binds the identity list to.
const IdentitiesParam = "_ids"

// Holder is the compiled statement set of a record type. A Holder is
// immutable once returned.
type Holder struct {
	// Table is the mapped table name.
	Table string
	// Type is the struct type the holder was compiled from.
	Type reflect.Type
	// Insert, Update, Delete and Select are the CRUD templates. Update is
	// empty when the type maps no column besides its identity.
	Insert string
	Update string
	Delete string
	Select string
	// SelectIn loads every record whose identity is in :_ids.
	SelectIn string
	// Entries are the field descriptors, identity first.
	Entries []schema.Entry
}

// Identity returns the identity descriptor.
func (h *Holder) Identity() schema.Entry {
	return h.Entries[0]
}

// GeneratesKey reports whether inserts leave the identity to the database,
// either through a sequence or through auto-increment.
func (h *Holder) GeneratesKey() bool {
	return !h.Entries[0].Assigned
}

// Compile builds the statement set of the struct type t for dialect d.
// Compilation is deterministic: the same type and dialect always yield the
// same statement text.
func Compile(t reflect.Type, d dialect.Dialect) (*Holder, error) {
	tbl, err := schema.Extract(t)
	if err != nil {
		return nil, err
	}
	id := tbl.Identity()
	cols := tbl.Columns()
	h := &Holder{
		Table:    tbl.Name,
		Type:     tbl.Type,
		Entries:  tbl.Entries,
		Insert:   insertSQL(tbl.Name, id, cols, d),
		Delete:   "DELETE FROM " + tbl.Name + " WHERE " + where(id),
		Select:   selectSQL(tbl.Name, id, cols, where(id)),
		SelectIn: selectSQL(tbl.Name, id, cols, id.Column+" IN (:"+IdentitiesParam+")"),
	}
	if len(cols) > 0 {
		h.Update = updateSQL(tbl.Name, id, cols)
	}
	return h, nil
}

func where(id schema.Entry) string {
	return id.Column + " = :" + id.Property
}

// insertSQL assembles the insert template. Sequence dialects prepend the
// identity with its next-value expression; auto-increment dialects, and
// identities without a sequence, leave the identity out. Assigned
// identities are bound like any other column.
func insertSQL(table string, id schema.Entry, cols []schema.Entry, d dialect.Dialect) string {
	names := make([]string, 0, len(cols)+1)
	values := make([]string, 0, len(cols)+1)
	switch {
	case id.Assigned:
		names = append(names, id.Column)
		values = append(values, ":"+id.Property)
	case d.SequenceIdentity() && id.Sequence != "":
		names = append(names, id.Column)
		values = append(values, d.NextVal(id.Sequence))
	}
	for _, c := range cols {
		names = append(names, c.Column)
		values = append(values, ":"+c.Property)
	}
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(values, ", "))
	b.WriteString(")")
	return b.String()
}

func updateSQL(table string, id schema.Entry, cols []schema.Entry) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c.Column + " = :" + c.Property
	}
	return "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE " + where(id)
}

func selectSQL(table string, id schema.Entry, cols []schema.Entry, cond string) string {
	names := make([]string, 0, len(cols)+1)
	names = append(names, id.Column)
	for _, c := range cols {
		names = append(names, c.Column)
	}
	return "SELECT " + strings.Join(names, ", ") + " FROM " + table + " WHERE " + cond
}
