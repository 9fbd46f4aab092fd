package gen

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/tools/imports"

	"github.com/syssam/dal/registry"
)

var (
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	separators = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// ConstName returns the exported identifier declared for a statement id:
//
//	user.findByName -> UserFindByName
//	order-v2.list   -> OrderV2List
func ConstName(id string) string {
	var b strings.Builder
	for part := range strings.SplitSeq(separators.ReplaceAllString(id, " "), " ") {
		if part == "" {
			continue
		}
		b.WriteString(inflect.Capitalize(part))
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "S" + name
	}
	return name
}

// Generate returns the formatted source declaring every statement of reg.
// Two ids mapping to the same identifier are an error.
func Generate(reg *registry.Registry, opts ...Option) ([]byte, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	f := jen.NewFile(cfg.Package)
	if cfg.Header != "" {
		f.HeaderComment(cfg.Header)
	}

	groups := make(map[string][]registry.Entry)
	for _, e := range reg.Entries() {
		groups[e.Namespace] = append(groups[e.Namespace], e)
	}
	seen := make(map[string]string, reg.Len())
	names := make([]jen.Code, 0, reg.Len())
	for _, ns := range slices.Sorted(maps.Keys(groups)) {
		var defs []jen.Code
		for _, e := range groups[ns] {
			name := ConstName(e.ID)
			if prev, ok := seen[name]; ok {
				return nil, fmt.Errorf("gen: statements %q and %q both map to %s", prev, e.ID, name)
			}
			seen[name] = e.ID
			names = append(names, jen.Id(name))
			defs = append(defs, constDoc(name, e), jen.Id(name).Op("=").Lit(e.ID))
		}
		if ns == "" {
			f.Comment("Statements without namespace.")
		} else {
			f.Commentf("Statements of namespace %q.", ns)
		}
		f.Const().Defs(defs...)
	}
	f.Comment("IDs lists every statement id.")
	f.Var().Id("IDs").Op("=").Index().String().Values(names...)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("gen: render: %w", err)
	}
	out, err := imports.Process(cfg.Filename, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("gen: format %s: %w", cfg.Filename, err)
	}
	return out, nil
}

// WriteFile generates the source for reg and writes it to path. The
// package defaults to the name of the directory holding path.
func WriteFile(path string, reg *registry.Registry, opts ...Option) error {
	base := []Option{WithFilename(filepath.Base(path))}
	if dir := filepath.Base(filepath.Dir(path)); identifier.MatchString(dir) {
		base = append(base, WithPackage(dir))
	}
	src, err := Generate(reg, append(base, opts...)...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gen: create output directory: %w", err)
	}
	return os.WriteFile(path, src, 0o644)
}

func constDoc(name string, e registry.Entry) jen.Code {
	doc := fmt.Sprintf("%s is declared in %s", name, filepath.Base(e.Source))
	if e.Source == "" {
		doc = name + " is a registered statement"
	}
	if e.Dialect != "" {
		doc += " for " + e.Dialect
	}
	return jen.Comment(doc + ".")
}
