package client

import (
	"context"
	"reflect"

	"github.com/syssam/dal"
	"github.com/syssam/dal/compiler"
	"github.com/syssam/dal/dialect"
	"github.com/syssam/dal/marshal"
)

// entity compiles the type of v and marshals v into parameters.
func (c *Client) entity(v any) (*compiler.Holder, map[string]any, error) {
	h, err := c.entities.Of(v)
	if err != nil {
		return nil, nil, err
	}
	args, err := c.marshal.ToParamMap(v)
	if err != nil {
		return nil, nil, err
	}
	return h, args, nil
}

func entityStatement(h *compiler.Holder, sql string) dal.Statement {
	return dal.Statement{ID: h.Type.String(), Raw: sql, Rendered: sql, Final: sql, Entity: h.Type}
}

// Persist inserts entity and returns its key: the value generated by the
// database, or the entity's own identity value when it is assigned by the
// application.
func (c *Client) Persist(ctx context.Context, entity any) (any, error) {
	h, args, err := c.entity(entity)
	if err != nil {
		return nil, err
	}
	stmt := entityStatement(h, h.Insert)
	t, err := c.begin(ctx, "persist", stmt, args)
	if err != nil {
		return nil, err
	}
	var key any
	if id := h.Identity(); h.GeneratesKey() {
		key, err = c.driver.InsertReturningKey(ctx, h.Insert, args, id.Column)
	} else {
		_, err = c.driver.Exec(ctx, h.Insert, args)
		key = args[id.Property]
	}
	if err = t.end(err); err != nil {
		return nil, err
	}
	return key, nil
}

// Merge updates every mapped column of entity by its identity and returns
// the number of affected rows.
func (c *Client) Merge(ctx context.Context, entity any) (int64, error) {
	h, args, err := c.entity(entity)
	if err != nil {
		return 0, err
	}
	if h.Update == "" {
		return 0, dal.NewCompileError(h.Type.String(), "", "no columns to update besides the identity", nil)
	}
	stmt := entityStatement(h, h.Update)
	t, err := c.begin(ctx, "merge", stmt, args)
	if err != nil {
		return 0, err
	}
	n, err := c.driver.Exec(ctx, h.Update, args)
	return n, t.end(err)
}

// Remove deletes entity by its identity and returns the number of
// affected rows.
func (c *Client) Remove(ctx context.Context, entity any) (int64, error) {
	h, args, err := c.entity(entity)
	if err != nil {
		return 0, err
	}
	stmt := entityStatement(h, h.Delete)
	t, err := c.begin(ctx, "remove", stmt, args)
	if err != nil {
		return 0, err
	}
	n, err := c.driver.Exec(ctx, h.Delete, args)
	return n, t.end(err)
}

// Find loads the record whose identity equals that of entity. It returns
// nil when no row matches.
func Find[T any](ctx context.Context, c *Client, entity *T) (*T, error) {
	h, err := c.entities.Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	args, err := c.marshal.ToParamMap(entity)
	if err != nil {
		return nil, err
	}
	stmt := entityStatement(h, h.Select)
	t, err := c.begin(ctx, "find", stmt, args)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, h.Select, args, marshal.BeanMapper[T](c.marshal))
	if err = t.end(err); err != nil {
		return nil, err
	}
	return marshal.SingleResult(items, c.logger), nil
}

// FindAll loads the records whose identity is one of ids with a single
// query. Row order is unspecified and unknown identities are skipped.
func FindAll[T any](ctx context.Context, c *Client, ids ...any) ([]T, error) {
	h, err := c.entities.Get(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}
	args := map[string]any{compiler.IdentitiesParam: ids}
	stmt := entityStatement(h, h.SelectIn)
	t, err := c.begin(ctx, "findAll", stmt, args)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, h.SelectIn, args, marshal.BeanMapper[T](c.marshal))
	if err = t.end(err); err != nil {
		return nil, err
	}
	return items, nil
}

// collect runs query and maps every row.
func collect[T any](ctx context.Context, drv dialect.Driver, query string, args map[string]any, mapper marshal.RowMapper[T]) ([]T, error) {
	var items []T
	err := drv.Query(ctx, query, args, func(r dialect.Row) error {
		v, err := mapper(r, len(items))
		if err != nil {
			return err
		}
		items = append(items, v)
		return nil
	})
	return items, err
}
