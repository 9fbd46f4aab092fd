package client

import (
	"context"

	"github.com/syssam/dal/dialect"
	"github.com/syssam/dal/marshal"
)

// QueryForObject runs statement id bounded to one row and maps it to a T.
// It returns nil when the query yields no row.
func QueryForObject[T any](ctx context.Context, c *Client, id string, params any) (*T, error) {
	return QueryForObjectWith(ctx, c, id, params, marshal.BeanMapper[T](c.marshal))
}

// QueryForObjectWith is like QueryForObject with a custom row mapper.
func QueryForObjectWith[T any](ctx context.Context, c *Client, id string, params any, mapper marshal.RowMapper[T]) (*T, error) {
	p, err := c.prepare(id, params, false)
	if err != nil {
		return nil, err
	}
	p.stmt.Final = p.dialect.LimitOne(p.stmt.Rendered)
	t, err := c.begin(ctx, "queryForObject", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, p.stmt.Final, p.params, mapper)
	if err = t.end(err); err != nil {
		return nil, err
	}
	return marshal.SingleResult(items, c.logger), nil
}

// QueryForList runs statement id and maps every row to a T. Nil and empty
// string parameters are dropped after rendering.
func QueryForList[T any](ctx context.Context, c *Client, id string, params any) ([]T, error) {
	return QueryForListWith(ctx, c, id, params, marshal.BeanMapper[T](c.marshal))
}

// QueryForListWith is like QueryForList with a custom row mapper.
func QueryForListWith[T any](ctx context.Context, c *Client, id string, params any, mapper marshal.RowMapper[T]) ([]T, error) {
	p, err := c.prepare(id, params, true)
	if err != nil {
		return nil, err
	}
	t, err := c.begin(ctx, "queryForList", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, p.stmt.Final, p.params, mapper)
	if err = t.end(err); err != nil {
		return nil, err
	}
	return items, nil
}

// QueryForMap runs statement id bounded to one row and returns it keyed by
// column name, or nil when the query yields no row.
func (c *Client) QueryForMap(ctx context.Context, id string, params any) (map[string]any, error) {
	p, err := c.prepare(id, params, false)
	if err != nil {
		return nil, err
	}
	p.stmt.Final = p.dialect.LimitOne(p.stmt.Rendered)
	t, err := c.begin(ctx, "queryForMap", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, p.stmt.Final, p.params, marshal.MapMapper())
	if err = t.end(err); err != nil {
		return nil, err
	}
	if m := marshal.SingleResult(items, c.logger); m != nil {
		return *m, nil
	}
	return nil, nil
}

// QueryForMaps runs statement id and returns every row keyed by column
// name.
func (c *Client) QueryForMaps(ctx context.Context, id string, params any) ([]map[string]any, error) {
	p, err := c.prepare(id, params, true)
	if err != nil {
		return nil, err
	}
	t, err := c.begin(ctx, "queryForMaps", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, p.stmt.Final, p.params, marshal.MapMapper())
	if err = t.end(err); err != nil {
		return nil, err
	}
	return items, nil
}

// QueryScalar runs statement id and scans the first column of its first
// row into dest. A query without rows fails with an error wrapping
// sql.ErrNoRows.
func (c *Client) QueryScalar(ctx context.Context, id string, params any, dest any) error {
	p, err := c.prepare(id, params, false)
	if err != nil {
		return err
	}
	t, err := c.begin(ctx, "queryScalar", p.stmt, p.params)
	if err != nil {
		return err
	}
	return t.end(c.driver.QueryScalar(ctx, p.stmt.Final, p.params, dest))
}

// Execute runs statement id and returns the number of affected rows. Nil
// and empty string parameters are dropped after rendering.
func (c *Client) Execute(ctx context.Context, id string, params any) (int64, error) {
	p, err := c.prepare(id, params, true)
	if err != nil {
		return 0, err
	}
	t, err := c.begin(ctx, "execute", p.stmt, p.params)
	if err != nil {
		return 0, err
	}
	n, err := c.driver.Exec(ctx, p.stmt.Final, p.params)
	return n, t.end(err)
}

// BatchUpdate runs statement id once per batch item and returns the
// affected row counts in order. Items are maps or records; the statement
// is rendered once, against the first item.
func (c *Client) BatchUpdate(ctx context.Context, id string, batch ...any) ([]int64, error) {
	var first any
	if len(batch) > 0 {
		first = batch[0]
	}
	p, err := c.prepare(id, first, false)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return []int64{}, nil
	}
	args := make([]map[string]any, len(batch))
	args[0] = p.params
	for i, item := range batch[1:] {
		if args[i+1], err = c.marshal.ToParamMap(item); err != nil {
			return nil, err
		}
	}
	t, err := c.begin(ctx, "batchUpdate", p.stmt, map[string]any{"batch": len(batch)})
	if err != nil {
		return nil, err
	}
	counts, err := c.driver.BatchExec(ctx, p.stmt.Final, args)
	return counts, t.end(err)
}

// Call invokes the stored procedure of statement id and returns its Out and
// InOut values keyed by parameter name. Nil and empty string parameters
// are dropped after rendering.
func (c *Client) Call(ctx context.Context, id string, params any, specs ...dialect.ParamSpec) (map[string]any, error) {
	p, err := c.prepare(id, params, true)
	if err != nil {
		return nil, err
	}
	t, err := c.begin(ctx, "call", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	out, err := c.driver.Call(ctx, p.stmt.Final, p.params, specs)
	if err = t.end(err); err != nil {
		return nil, err
	}
	return out, nil
}
