// Package dataloader batches identity lookups of mapped records.
//
// A Loader collects the keys requested by one unit of work (typically a
// request), loads the missing ones with as few SELECT ... WHERE ID IN (...)
// statements as the batch size allows and caches the results:
//
//	users, err := dataloader.New(c, func(u User) int64 { return u.ID })
//	ctx = dataloader.WithLoaders(ctx, &Loaders{Users: users})
//	...
//	loaders := dataloader.For[*Loaders](ctx)
//	u, err := loaders.Users.Load(ctx, 42)
//
// A Loader never expires entries; create one per unit of work.
package dataloader

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/dal"
	"github.com/syssam/dal/client"
)

// ErrNotFound is returned for keys no record matched.
var ErrNotFound = errors.New("dataloader: record not found")

// KeyFunc extracts the identity of a record.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys arranges values in the order of keys. The result has one
// element per key; keys without a value get the zero value and ErrNotFound.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups values sharing a key, e.g. child records by their
// parent identity.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// DefaultMaxBatch bounds the identities bound to one statement.
const DefaultMaxBatch = 500

// Loader loads and caches records of type T by identity. It is safe for
// concurrent use.
type Loader[K comparable, T any] struct {
	client   *client.Client
	key      KeyFunc[K, T]
	maxBatch int
	workers  int

	mu    sync.Mutex
	cache map[K]T
}

// Option configures a Loader.
type Option func(*options) error

type options struct {
	maxBatch int
	workers  int
}

// WithMaxBatch sets the maximum number of identities per statement.
func WithMaxBatch(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return dal.NewConfigError("MaxBatch", n, "batch size must be positive")
		}
		o.maxBatch = n
		return nil
	}
}

// WithWorkers sets the number of batches loaded concurrently.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return dal.NewConfigError("Workers", n, "worker count must be positive")
		}
		o.workers = n
		return nil
	}
}

// New returns a Loader of T records read through c.
func New[K comparable, T any](c *client.Client, key KeyFunc[K, T], opts ...Option) (*Loader[K, T], error) {
	o := options{maxBatch: DefaultMaxBatch, workers: 4}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if c == nil || key == nil {
		return nil, dal.NewConfigError("Loader", nil, "client and key function are required")
	}
	return &Loader[K, T]{
		client:   c,
		key:      key,
		maxBatch: o.maxBatch,
		workers:  o.workers,
		cache:    make(map[K]T),
	}, nil
}

// Load returns the record identified by key.
func (l *Loader[K, T]) Load(ctx context.Context, key K) (T, error) {
	values, errs, err := l.LoadMany(ctx, []K{key})
	if err != nil {
		var zero T
		return zero, err
	}
	return values[0], errs[0]
}

// LoadMany returns one record per key, in key order. Per-key misses are
// reported in the error slice; err is set when a statement failed.
func (l *Loader[K, T]) LoadMany(ctx context.Context, keys []K) ([]T, []error, error) {
	if err := l.fetch(ctx, l.missing(keys)); err != nil {
		return nil, nil, err
	}
	l.mu.Lock()
	values := make([]T, 0, len(keys))
	for _, k := range keys {
		if v, ok := l.cache[k]; ok {
			values = append(values, v)
		}
	}
	l.mu.Unlock()
	result, errs := OrderByKeys(keys, values, l.key)
	return result, errs, nil
}

// Prime stores a known record, e.g. one just persisted.
func (l *Loader[K, T]) Prime(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[l.key(v)] = v
}

// Clear drops cached records so that the next load reads them again.
func (l *Loader[K, T]) Clear(keys ...K) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range keys {
		delete(l.cache, k)
	}
}

// missing returns the distinct uncached keys.
func (l *Loader[K, T]) missing(keys []K) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[K]struct{}, len(keys))
	var ids []any
	for _, k := range keys {
		if _, ok := l.cache[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		ids = append(ids, k)
	}
	return ids
}

func (l *Loader[K, T]) fetch(ctx context.Context, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for chunk := range slices.Chunk(ids, l.maxBatch) {
		g.Go(func() error {
			records, err := client.FindAll[T](ctx, l.client, chunk...)
			if err != nil {
				return err
			}
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, v := range records {
				l.cache[l.key(v)] = v
			}
			return nil
		})
	}
	return g.Wait()
}

type ctxKey struct{}

// WithLoaders returns a context carrying loaders, typically a struct of
// Loader fields built per request.
func WithLoaders[T any](ctx context.Context, loaders T) context.Context {
	return context.WithValue(ctx, ctxKey{}, loaders)
}

// For returns the loaders stored by WithLoaders, or the zero T.
func For[T any](ctx context.Context) T {
	v, _ := ctx.Value(ctxKey{}).(T)
	return v
}
