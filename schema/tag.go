package schema

import (
	"fmt"
	"strings"
)

// TagName is the struct tag key read by Extract.
const TagName = "dal"

// tagSpec is the parsed form of a `dal:"..."` tag.
type tagSpec struct {
	skip     bool
	identity bool
	column   string
	sequence string
	prop     string
	table    string
	assigned bool

	hasColumn bool
}

// parseTag parses a comma separated list of options:
//
//	"-"               skip the field
//	id                mark the field as the identity
//	assigned          identity values are supplied by the application
//	column=NAME       target column
//	sequence=NAME     identity sequence
//	prop=NAME         parameter and property name
//	table=NAME        table name (only on a blank `_` field)
func parseTag(tag string) (tagSpec, error) {
	var spec tagSpec
	tag = strings.TrimSpace(tag)
	if tag == "-" {
		spec.skip = true
		return spec, nil
	}
	for part := range strings.SplitSeq(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
		switch key {
		case "id", "identity", "pk":
			if hasValue {
				return spec, fmt.Errorf("option %q takes no value", key)
			}
			spec.identity = true
		case "assigned":
			spec.assigned = true
		case "column", "col":
			spec.column, spec.hasColumn = value, true
		case "sequence", "seq":
			spec.sequence = value
		case "prop", "property":
			spec.prop = value
		case "table":
			spec.table = value
		default:
			return spec, fmt.Errorf("unknown option %q", key)
		}
	}
	return spec, nil
}
