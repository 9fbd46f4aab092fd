package sql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Bind resolves the :named parameters of query against params and rewrites
// them to positional placeholders produced by placeholder.
//
// Quoted strings, quoted identifiers, comments, PostgreSQL dollar-quoted
// blocks and :: casts are left untouched. Slice and array values expand to a
// comma separated placeholder list (an empty one becomes NULL); []byte and
// driver.Valuer values bind as scalars. Referencing a name that is missing
// from params is an error.
func Bind(query string, params map[string]any, placeholder func(int) string) (string, []any, error) {
	toks, err := findNamedParams(query)
	if err != nil {
		return "", nil, err
	}
	if len(toks) == 0 {
		return query, nil, nil
	}
	var (
		b     strings.Builder
		last  int
		n     = 1
		args  = make([]any, 0, len(toks))
		lower map[string]any
	)
	b.Grow(len(query))
	for _, t := range toks {
		b.WriteString(query[last:t.start])
		val, ok := params[t.name]
		if !ok {
			if lower == nil {
				lower = make(map[string]any, len(params))
				for k, v := range params {
					lower[strings.ToLower(k)] = v
				}
			}
			if val, ok = lower[strings.ToLower(t.name)]; !ok {
				return "", nil, fmt.Errorf("dialect/sql: bind: missing value for :%s", t.name)
			}
		}
		if rv, expand := expandable(val); expand {
			if rv.Len() == 0 {
				b.WriteString("NULL")
			}
			for i := 0; i < rv.Len(); i++ {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(placeholder(n))
				n++
				args = append(args, rv.Index(i).Interface())
			}
		} else {
			b.WriteString(placeholder(n))
			n++
			args = append(args, val)
		}
		last = t.end
	}
	b.WriteString(query[last:])
	return b.String(), args, nil
}

// NamedParams returns the distinct parameter names referenced by query in
// order of first appearance.
func NamedParams(query string) ([]string, error) {
	toks, err := findNamedParams(query)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(toks))
	names := make([]string, 0, len(toks))
	for _, t := range toks {
		if _, ok := seen[t.name]; ok {
			continue
		}
		seen[t.name] = struct{}{}
		names = append(names, t.name)
	}
	return names, nil
}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

func expandable(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type().Implements(valuerType) {
		return rv, false
	}
	switch rv.Kind() {
	case reflect.Slice:
		return rv, rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return rv, true
	default:
		return rv, false
	}
}

type nameToken struct {
	name  string
	start int
	end   int
}

func findNamedParams(query string) ([]nameToken, error) {
	var out []nameToken
	i := 0
	for i < len(query) {
		r, w := utf8.DecodeRuneInString(query[i:])
		switch r {
		case '\'', '"', '`':
			j, err := skipQuoted(query, i+w, byte(r))
			if err != nil {
				return nil, err
			}
			i = j
			continue
		case '-':
			if strings.HasPrefix(query[i:], "--") {
				i = skipLineComment(query, i+2)
				continue
			}
		case '/':
			if strings.HasPrefix(query[i:], "/*") {
				j, err := skipBlockComment(query, i+2)
				if err != nil {
					return nil, err
				}
				i = j
				continue
			}
		case '$':
			if j, ok, err := skipDollarQuoted(query, i); err != nil {
				return nil, err
			} else if ok {
				i = j
				continue
			}
		case ':':
			if strings.HasPrefix(query[i:], "::") {
				i += 2
				continue
			}
			// Skip PL/SQL assignment.
			if strings.HasPrefix(query[i:], ":=") {
				i += 2
				continue
			}
			name, end := parseIdent(query, i+1)
			if name != "" {
				out = append(out, nameToken{name: name, start: i, end: end})
				i = end
				continue
			}
		}
		i += w
	}
	return out, nil
}

func skipQuoted(s string, i int, quote byte) (int, error) {
	for i < len(s) {
		c := s[i]
		i++
		if c == quote {
			if i < len(s) && s[i] == quote {
				i++
				continue
			}
			return i, nil
		}
	}
	return 0, fmt.Errorf("dialect/sql: bind: unterminated %c quote", quote)
}

func skipLineComment(s string, i int) int {
	if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(s)
}

func skipBlockComment(s string, i int) (int, error) {
	if j := strings.Index(s[i:], "*/"); j >= 0 {
		return i + j + 2, nil
	}
	return 0, fmt.Errorf("dialect/sql: bind: unterminated block comment")
}

// skipDollarQuoted handles $$...$$ and $tag$...$tag$ (PostgreSQL).
func skipDollarQuoted(s string, i int) (int, bool, error) {
	j := i + 1
	for j < len(s) && s[j] != '$' && isIdentRune(rune(s[j])) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return 0, false, nil
	}
	tag := s[i : j+1]
	k := strings.Index(s[j+1:], tag)
	if k < 0 {
		return 0, true, fmt.Errorf("dialect/sql: bind: unterminated dollar-quoted string")
	}
	return j + 1 + k + len(tag), true, nil
}

func isIdentRune(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func parseIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if !isIdentRune(r) {
			break
		}
		i += w
	}
	return s[start:i], i
}
