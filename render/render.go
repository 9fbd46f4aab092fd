package render

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/dal"
)

// Renderer turns raw statement text into plain SQL for one parameter set.
// Implementations must be pure: the same text and params always produce
// the same output. A renderer may add entries to params for placeholders
// it emits; it never changes existing ones.
type Renderer interface {
	Render(text string, params map[string]any) (string, error)
}

// Func adapts an ordinary function to the Renderer interface.
type Func func(text string, params map[string]any) (string, error)

// Render calls f(text, params).
func (f Func) Render(text string, params map[string]any) (string, error) {
	return f(text, params)
}

// Nop returns text unchanged.
var Nop Renderer = Func(func(text string, _ map[string]any) (string, error) {
	return text, nil
})

// Text renders statements with text/template. The parameter map is the
// template's dot, so {{.name}} fails on a missing key; optional fragments
// test presence with has:
//
//	SELECT * FROM TMS_USER WHERE 1 = 1
//	{{if has "name"}} AND USER_NAME = :name{{end}}
//	{{if has "ids"}} AND USER_ID IN (:ids){{end}}
//
// bind names one element of a sequence parameter. It stores the element in
// the parameter map under name_i and emits its placeholder:
//
//	WHERE USER_ID IN ({{range $i, $v := get "ids"}}{{if $i}}, {{end}}{{bind "ids" $i}}{{end}})
//
// renders, for three ids, "WHERE USER_ID IN (:ids_0, :ids_1, :ids_2)".
//
// Parsed templates are cached per text. Rendered output never is.
type Text struct {
	store dal.Store[string, *template.Template]
	funcs template.FuncMap
	// custom holds the per-call helpers replaced through WithFuncs.
	custom map[string]bool
}

// callFuncs are the helpers bound to the parameters of each call.
var callFuncs = []string{"get", "has", "bind"}

// Option configures a Text renderer.
type Option func(*Text)

// WithFuncs adds template functions. They override the built-in helpers of
// the same name, get, has and bind included.
func WithFuncs(funcs template.FuncMap) Option {
	return func(t *Text) {
		for k, v := range funcs {
			t.funcs[k] = v
			t.custom[k] = true
		}
	}
}

// WithStore sets the store holding parsed templates.
func WithStore(s dal.Store[string, *template.Template]) Option {
	return func(t *Text) {
		t.store = s
	}
}

// NewText returns a text/template backed renderer.
func NewText(opts ...Option) *Text {
	t := &Text{
		store: dal.NewSyncStore[string, *template.Template](),
		funcs: template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": title,
			"join":  join,
			// Placeholders; bound to the call's parameters at execution.
			"get":  func(string) any { return nil },
			"has":  func(string) bool { return false },
			"bind": func(string, int) (string, error) { return "", nil },
		},
		custom: map[string]bool{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render implements Renderer. Text holding no action delimiters is
// returned as is. On failure no partial output is returned.
func (t *Text) Render(text string, params map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := t.parse(text)
	if err != nil {
		return "", dal.NewTemplateRenderError(err)
	}
	exec, err := tmpl.Clone()
	if err != nil {
		return "", dal.NewTemplateRenderError(err)
	}
	if params == nil {
		params = map[string]any{}
	}
	bound := template.FuncMap{
		"get":  func(name string) any { return params[name] },
		"has":  func(name string) bool { return present(params, name) },
		"bind": func(name string, i int) (string, error) { return bindElem(params, name, i) },
	}
	for _, name := range callFuncs {
		if t.custom[name] {
			delete(bound, name)
		}
	}
	exec.Option("missingkey=error").Funcs(bound)
	var b strings.Builder
	if err := exec.Execute(&b, params); err != nil {
		return "", dal.NewTemplateRenderError(err)
	}
	return b.String(), nil
}

// Len returns the number of cached templates.
func (t *Text) Len() int {
	return t.store.Len()
}

func (t *Text) parse(text string) (*template.Template, error) {
	if tmpl, ok := t.store.Load(text); ok {
		return tmpl, nil
	}
	tmpl, err := template.New("statement").
		Option("missingkey=error").
		Funcs(t.funcs).
		Parse(text)
	if err != nil {
		return nil, err
	}
	tmpl, _ = t.store.LoadOrStore(text, tmpl)
	return tmpl, nil
}

// present reports whether params holds a non-nil, non-empty value for name.
func present(params map[string]any, name string) bool {
	v, ok := params[name]
	if !ok || v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// bindElem stores element i of the sequence parameter name as name_i and
// returns its placeholder.
func bindElem(params map[string]any, name string, i int) (string, error) {
	rv := reflect.ValueOf(params[name])
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return "", fmt.Errorf("bind: parameter %q is not a sequence", name)
	}
	if i < 0 || i >= rv.Len() {
		return "", fmt.Errorf("bind: index %d out of range for parameter %q of length %d", i, name, rv.Len())
	}
	key := name + "_" + strconv.Itoa(i)
	params[key] = rv.Index(i).Interface()
	return ":" + key, nil
}

// title is stateful, so every call gets its own caser.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// join renders the elements of a slice or array separated by sep. Other
// values are rendered as a single element.
func join(sep string, v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes())
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(rv.Index(i).Interface())
		}
		return strings.Join(parts, sep)
	case reflect.Invalid:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

var _ Renderer = (*Text)(nil)
