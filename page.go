package dal

import "fmt"

// Pagination defaults.
const (
	// DefaultPageSize is the page size of a zero Page.
	DefaultPageSize = 20

	// DefaultUnboundedPageSize replaces a non-positive page size on paged
	// queries.
	DefaultUnboundedPageSize = 1000

	// UnknownRowCount marks a page whose total row count has not been computed.
	UnknownRowCount = -1
)

// Page is the request-scoped pagination state. The orchestrator mutates it
// once the total row count is known; dialects read it through Offset and Size.
type Page struct {
	// Current is the 1-based page number.
	Current int
	// Size is the page size. Zero or negative means no limit.
	Size int
	// RowCount is the total row count. 0 or UnknownRowCount means unknown.
	RowCount int
	// PageCount is ceil(RowCount/Size).
	PageCount int
}

// NewPage returns a page positioned at current with the given size and an
// unknown row count.
func NewPage(current, size int) *Page {
	if current < 1 {
		current = 1
	}
	return &Page{Current: current, Size: size, RowCount: UnknownRowCount}
}

// Offset returns the zero-based index of the first row of the current page.
func (p *Page) Offset() int {
	if p.Current < 1 || p.Size <= 0 {
		return 0
	}
	return (p.Current - 1) * p.Size
}

// Unbounded reports whether the page size is the "no limit" sentinel.
func (p *Page) Unbounded() bool {
	return p.Size <= 0
}

// RowCountKnown reports whether RowCount holds a computed total.
func (p *Page) RowCountKnown() bool {
	return p.RowCount != 0 && p.RowCount != UnknownRowCount
}

// SetRowCount records the total row count, derives the page count and clamps
// the current page down to the last page.
func (p *Page) SetRowCount(total int) {
	if total < 0 {
		total = 0
	}
	p.RowCount = total
	if p.Size <= 0 {
		p.Size = total
	}
	if p.Size <= 0 {
		p.PageCount = 0
	} else {
		p.PageCount = (total + p.Size - 1) / p.Size
	}
	if p.Current > p.PageCount {
		p.Current = p.PageCount
	}
	if p.Current < 1 {
		p.Current = 1
	}
}

// String implements fmt.Stringer.
func (p Page) String() string {
	return fmt.Sprintf("page %d/%d (size=%d rows=%d)", p.Current, p.PageCount, p.Size, p.RowCount)
}

// PageResult is the read-only result of a paged query.
type PageResult[T any] struct {
	Items []T
	Page  Page
}

// NewPageResult returns a PageResult holding items and a copy of page.
func NewPageResult[T any](items []T, page *Page) *PageResult[T] {
	return &PageResult[T]{Items: items, Page: *page}
}

// Len returns the number of items on the page.
func (r *PageResult[T]) Len() int {
	return len(r.Items)
}
