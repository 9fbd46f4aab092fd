package compiler

import (
	"reflect"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
)

// Cache memoizes compiled holders per record type for one dialect.
// Concurrent first use of a type compiles it once; holders are published
// fully built and never replaced. Failed compilations are not cached.
type Cache struct {
	dialect dialect.Dialect
	store   dal.TypeStore[*Holder]
	group   singleflight.Group
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore sets the store backing the cache. The default is a
// dal.SyncStore.
func WithStore(s dal.TypeStore[*Holder]) CacheOption {
	return func(c *Cache) {
		c.store = s
	}
}

// NewCache returns an empty cache compiling for dialect d.
func NewCache(d dialect.Dialect, opts ...CacheOption) *Cache {
	c := &Cache{dialect: d}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = dal.NewSyncStore[reflect.Type, *Holder]()
	}
	return c
}

// Dialect returns the dialect the cache compiles for.
func (c *Cache) Dialect() dialect.Dialect {
	return c.dialect
}

// Len returns the number of compiled types.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Get returns the holder of the struct type t, compiling it on first use.
// Pointer types resolve to their element type.
func (c *Cache) Get(t reflect.Type) (*Holder, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if h, ok := c.store.Load(t); ok {
		return h, nil
	}
	// Distinct types can share a name, so the shared result is checked
	// against t before use.
	v, err, _ := c.group.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
		return c.compile(t)
	})
	if err != nil {
		return nil, err
	}
	if h := v.(*Holder); h.Type == t {
		return h, nil
	}
	return c.compile(t)
}

// Of returns the holder of the record v.
func (c *Cache) Of(v any) (*Holder, error) {
	if v == nil {
		return nil, dal.NewCompileError("<nil>", "", "nil record", nil)
	}
	return c.Get(reflect.TypeOf(v))
}

func (c *Cache) compile(t reflect.Type) (*Holder, error) {
	if h, ok := c.store.Load(t); ok {
		return h, nil
	}
	h, err := Compile(t, c.dialect)
	if err != nil {
		return nil, err
	}
	h, _ = c.store.LoadOrStore(t, h)
	return h, nil
}
