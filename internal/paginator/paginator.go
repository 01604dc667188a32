// Package paginator slices ordered result sets into fixed-size pages.
package paginator

import (
	"context"
	"strconv"
)

// PageParam is the query parameter carrying the page number.
const PageParam = "page"

// Page is one window of a result set.
type Page[T any] struct {
	Items    []T
	Number   int // 1-based
	NumPages int
	Count    int
	PerPage  int
}

// Paginator knows the total size of a result set and resolves page numbers.
type Paginator struct {
	Count   int
	PerPage int
}

// New builds a paginator; perPage below one is treated as one.
func New(count, perPage int) Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if count < 0 {
		count = 0
	}
	return Paginator{Count: count, PerPage: perPage}
}

// NumPages is never less than one, an empty set still has one empty page.
func (p Paginator) NumPages() int {
	if p.Count == 0 {
		return 1
	}
	return (p.Count + p.PerPage - 1) / p.PerPage
}

// Number resolves a raw page parameter. A value that is not an integer
// yields the first page; an integer outside [1, NumPages] yields the last.
func (p Paginator) Number(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	if n < 1 || n > p.NumPages() {
		return p.NumPages()
	}
	return n
}

// Bounds returns the limit and offset of page number.
func (p Paginator) Bounds(number int) (limit, offset int) {
	return p.PerPage, (number - 1) * p.PerPage
}

// Paginate counts the result set, resolves raw and fetches the single window
// that page covers.
func Paginate[T any](
	ctx context.Context,
	raw string,
	perPage int,
	count func(ctx context.Context) (int, error),
	fetch func(ctx context.Context, limit, offset int) ([]T, error),
) (*Page[T], error) {
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	p := New(total, perPage)
	number := p.Number(raw)
	limit, offset := p.Bounds(number)

	items := []T{}
	if total > 0 {
		if items, err = fetch(ctx, limit, offset); err != nil {
			return nil, err
		}
	}

	return &Page[T]{
		Items:    items,
		Number:   number,
		NumPages: p.NumPages(),
		Count:    total,
		PerPage:  p.PerPage,
	}, nil
}

// FromSlice pages an in-memory slice.
func FromSlice[T any](items []T, raw string, perPage int) *Page[T] {
	page, _ := Paginate(context.Background(), raw, perPage,
		func(context.Context) (int, error) { return len(items), nil },
		func(_ context.Context, limit, offset int) ([]T, error) {
			end := offset + limit
			if end > len(items) {
				end = len(items)
			}
			return items[offset:end], nil
		},
	)
	return page
}

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasOtherPages() bool { return p.HasPrevious() || p.HasNext() }

func (p *Page[T]) PreviousPageNumber() int { return p.Number - 1 }

func (p *Page[T]) NextPageNumber() int { return p.Number + 1 }

// PageRange lists every page number, for the page links.
func (p *Page[T]) PageRange() []int {
	pages := make([]int, p.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// StartIndex is the 1-based index of the first item on the page, 0 when empty.
func (p *Page[T]) StartIndex() int {
	if p.Count == 0 {
		return 0
	}
	return (p.Number-1)*p.PerPage + 1
}
