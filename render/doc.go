// Package render expands dynamic statement text into plain SQL.
//
// Statements may carry two dynamic idioms: conditional fragments and
// iteration over sequence-valued parameters. Both survive as ordinary SQL
// with :name placeholders, which the driver binds afterwards:
//
//	SELECT * FROM ORDERS WHERE 1 = 1
//	{{if has "status"}} AND STATUS = :status{{end}}
//	{{range $i, $c := get "columns"}}{{if $i}},{{end}}{{upper $c}}{{end}}
//
// Slices bound to a single placeholder expand at bind time, so IN (:ids)
// needs no template logic at all.
package render
