package gateway

import (
	"context"

	"youthsessions/internal/sessions/partner"
)

type pageFetcher func(ctx context.Context, page int) (*partner.SessionPage, error)

// pageIterator walks a paginated listing strictly in order.
// The page count is fixed by the total reported on the first page; later
// totals are ignored so a listing that grows mid-walk cannot loop.
type pageIterator struct {
	fetch      pageFetcher
	next       int
	totalPages int
	current    []partner.SessionDetailDTO
	err        error
}

func newPageIterator(fetch pageFetcher) *pageIterator {
	return &pageIterator{fetch: fetch, next: 1, totalPages: -1}
}

// Next fetches the following page. It returns false when every page was read or a fetch failed.
func (it *pageIterator) Next(ctx context.Context) bool {
	if it.err != nil {
		return false
	}
	if it.totalPages >= 0 && it.next > it.totalPages {
		return false
	}
	page, err := it.fetch(ctx, it.next)
	if err != nil {
		it.err = err
		it.current = nil
		return false
	}
	if it.totalPages < 0 {
		it.totalPages = pageCount(page.TotalCount, partner.PageSize)
	}
	it.current = page.Sessions
	it.next++
	return true
}

func (it *pageIterator) Sessions() []partner.SessionDetailDTO { return it.current }

func (it *pageIterator) Err() error { return it.err }

// Fetched is the number of pages read so far.
func (it *pageIterator) Fetched() int { return it.next - 1 }

func pageCount(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}
