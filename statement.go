package dal

import (
	"fmt"
	"reflect"
)

// Statement carries one statement through a single call: the raw text as
// declared or compiled, the text after template rendering, and the final
// text handed to the substrate. It is never cached across calls.
type Statement struct {
	ID       string
	Raw      string
	Rendered string
	Final    string
	// Entity is the record type of a compiled entity statement, nil for
	// named statements.
	Entity reflect.Type
}

// String implements fmt.Stringer.
func (s Statement) String() string {
	return fmt.Sprintf("Statement[id=%s raw=%q rendered=%q final=%q]", s.ID, s.Raw, s.Rendered, s.Final)
}
