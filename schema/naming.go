package schema

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lowerString lowers s. A cases.Caser is stateful and is never shared.
func lowerString(s string) string {
	return cases.Lower(language.Und).String(s)
}

// PropertyName returns the parameter name bound to a Go field: the field
// name with its leading upper-case run lowered.
//
//	UserName -> userName
//	ID       -> id
//	URLPath  -> urlPath
func PropertyName(field string) string {
	if field == "" {
		return ""
	}
	runes := []rune(field)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return field
	case n == len(runes):
		return lowerString(field)
	case n > 1:
		// Keep the last upper-case rune of an acronym as the next word start.
		n--
	}
	return lowerString(string(runes[:n])) + string(runes[n:])
}

// ColumnToProperty transliterates a delimited upper-case column name to a
// camel-case property name.
//
//	USER_NAME -> userName
//	user_id   -> userId
//	NAME      -> name
func ColumnToProperty(column string) string {
	column = strings.Trim(column, "_ ")
	if column == "" {
		return ""
	}
	return inflect.CamelizeDownFirst(lowerString(column))
}

// TableNameOf returns the default table name for a Go type name:
// UserAccount -> user_account.
func TableNameOf(typeName string) string {
	return inflect.Underscore(typeName)
}
