package client

import (
	"context"

	"github.com/syssam/dal"
	"github.com/syssam/dal/dialect"
	"github.com/syssam/dal/marshal"
)

// QueryPage runs statement id for one page of rows.
//
// A page with a non-positive size is reset to the client's unbounded page
// size at page 1. The total row count is queried only when page does not
// carry one; page is updated in place and copied into the result.
func QueryPage[T any](ctx context.Context, c *Client, id string, params any, page *dal.Page) (*dal.PageResult[T], error) {
	return QueryPageWith(ctx, c, id, params, page, marshal.BeanMapper[T](c.marshal))
}

// QueryPageWith is like QueryPage with a custom row mapper.
func QueryPageWith[T any](ctx context.Context, c *Client, id string, params any, page *dal.Page, mapper marshal.RowMapper[T]) (*dal.PageResult[T], error) {
	p, err := c.prepare(id, params, false)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = dal.NewPage(1, 0)
	}
	if page.Unbounded() {
		page.Size = c.unbounded
		page.Current = 1
	}
	if page.RowCountKnown() {
		page.SetRowCount(page.RowCount)
	} else {
		count := p.stmt
		count.Final = p.dialect.RowCountSQL(p.stmt.Rendered)
		var total int64
		t, err := c.begin(ctx, "queryPage", count, p.params)
		if err != nil {
			return nil, err
		}
		if err := t.end(c.driver.QueryScalar(ctx, count.Final, p.params, &total)); err != nil {
			return nil, err
		}
		page.SetRowCount(int(total))
	}
	// The window follows the count: SetRowCount may have clamped Current.
	p.params[dialect.LimitParam] = page.Size
	p.params[dialect.OffsetParam] = page.Offset()
	if page.RowCount == 0 {
		return dal.NewPageResult([]T{}, page), nil
	}
	p.stmt.Final = p.dialect.LimitString(p.stmt.Rendered)
	t, err := c.begin(ctx, "queryPage", p.stmt, p.params)
	if err != nil {
		return nil, err
	}
	items, err := collect(ctx, c.driver, p.stmt.Final, p.params, mapper)
	if err = t.end(err); err != nil {
		return nil, err
	}
	return dal.NewPageResult(items, page), nil
}
