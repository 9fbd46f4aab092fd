package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
)

// Entry is one named statement.
type Entry struct {
	// ID is the composite key Namespace + "." + LocalID.
	ID        string `msgpack:"id" yaml:"-"`
	Namespace string `msgpack:"namespace" yaml:"-"`
	LocalID   string `msgpack:"local_id" yaml:"id"`
	// SQL is the raw statement text, possibly holding template directives.
	SQL string `msgpack:"sql" yaml:"sql"`
	// Dialect is the declared target dialect name, empty when none.
	Dialect string `msgpack:"dialect,omitempty" yaml:"dialect,omitempty"`
	// Source is the resource the entry was loaded from.
	Source string `msgpack:"source" yaml:"-"`
}

// Registry maps statement ids to entries. It is immutable once built and
// safe for concurrent use.
type Registry struct {
	entries map[string]*Entry
	ids     []string
}

// Option configures Load.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	workers int
}

// WithLogger sets the logger used while loading.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithWorkers limits the number of resources parsed concurrently.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: slog.Default(), workers: 8}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New builds a registry from entries. Entries with the same id are
// rejected with a DuplicateStatementError.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]*Entry, len(entries))}
	for _, e := range entries {
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	slices.Sort(r.ids)
	return r, nil
}

func (r *Registry) add(e Entry) error {
	if e.ID == "" {
		e.ID = ID(e.Namespace, e.LocalID)
	}
	if prev, ok := r.entries[e.ID]; ok {
		return &dal.DuplicateStatementError{ID: e.ID, First: prev.Source, Second: e.Source}
	}
	r.entries[e.ID] = &e
	r.ids = append(r.ids, e.ID)
	return nil
}

// ID returns the composite statement id of a local id within namespace.
func ID(namespace, localID string) string {
	if namespace == "" {
		return localID
	}
	return namespace + "." + localID
}

// Load walks dir recursively and loads every statement resource in it.
// Resources are parsed concurrently and merged in lexical path order, so
// the outcome never depends on scheduling. A statement id declared twice
// fails the load. A missing directory or one without resources yields
// dal.ErrNoResources.
func Load(ctx context.Context, dir string, opts ...Option) (*Registry, error) {
	o := newOptions(opts)
	paths, err := resources(dir)
	if err != nil {
		return nil, err
	}
	parsed := make([][]Entry, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entries, err := parseFile(path)
			if err != nil {
				return err
			}
			o.logger.DebugContext(ctx, "statement resource parsed", "source", path, "statements", len(entries))
			parsed[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r := &Registry{entries: make(map[string]*Entry)}
	for _, entries := range parsed {
		for _, e := range entries {
			if err := r.add(e); err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(r.ids)
	o.logger.InfoContext(ctx, "statement registry loaded", "dir", dir, "resources", len(paths), "statements", len(r.ids))
	return r, nil
}

// resources returns the sorted paths of all supported files under dir.
func resources(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s does not exist", dal.ErrNoResources, dir)
	case err != nil:
		return nil, dal.NewResourceError(dir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", dal.ErrNoResources, dir)
	}
	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, dal.NewResourceError(dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", dal.ErrNoResources, dir)
	}
	slices.Sort(paths)
	return paths, nil
}

// Supported reports whether path has a resource extension.
func Supported(path string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Lookup returns a copy of the entry registered under id.
func (r *Registry) Lookup(id string) (*Entry, error) {
	if e, ok := r.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, dal.NewStatementNotFoundError(id)
}

// SQL returns the raw text of statement id.
func (r *Registry) SQL(id string) (string, error) {
	e, err := r.Lookup(id)
	if err != nil {
		return "", err
	}
	return e.SQL, nil
}

// DialectOf returns the dialect declared for statement id, or nil when the
// statement declares none.
func (r *Registry) DialectOf(id string) (dialect.Dialect, error) {
	e, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if e.Dialect == "" {
		return nil, nil
	}
	return dialect.For(e.Dialect)
}

// IDs returns all statement ids in sorted order.
func (r *Registry) IDs() []string {
	return slices.Clone(r.ids)
}

// Entries returns all entries ordered by id.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.ids))
	for i, id := range r.ids {
		out[i] = *r.entries[id]
	}
	return out
}

// Len returns the number of statements.
func (r *Registry) Len() int {
	return len(r.ids)
}
