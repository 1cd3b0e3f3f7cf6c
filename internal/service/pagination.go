package service

import (
	"strconv"
	"strings"

	"github.com/iliyamo/shop-management/internal/repository"
)

// Page size bounds for list endpoints.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is the parsed search/page/limit query.
type PageRequest struct {
	Search string
	Page   int
	Limit  int
}

// NewPageRequest parses raw query values.  Missing or invalid values fall
// back to page 1 and DefaultLimit; limit is capped at MaxLimit.
func NewPageRequest(search, page, limit string) PageRequest {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil || p < 1 {
		p = 1
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || l < 1 {
		l = DefaultLimit
	}
	if l > MaxLimit {
		l = MaxLimit
	}
	return PageRequest{Search: strings.TrimSpace(search), Page: p, Limit: l}
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }

func (p PageRequest) query(shopID string) repository.ListQuery {
	return repository.ListQuery{ShopID: shopID, Search: p.Search, Offset: p.Offset(), Limit: p.Limit}
}

// Pagination is the envelope's pagination block.
type Pagination struct {
	TotalPages   int  `json:"totalPages"`
	CurrentPage  int  `json:"currentPage"`
	PreviousPage *int `json:"previousPage"`
	NextPage     *int `json:"nextPage"`
}

// Paginate computes the pagination block for total matching rows.
func Paginate(p PageRequest, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	pg := Pagination{TotalPages: pages, CurrentPage: p.Page}
	if p.Page > 1 {
		prev := p.Page - 1
		pg.PreviousPage = &prev
	}
	if p.Page < pages {
		next := p.Page + 1
		pg.NextPage = &next
	}
	return pg
}

// Page is one page of a list result.
type Page[T any] struct {
	Items      []T
	Total      int
	Pagination Pagination
}

func newPage[T any](items []T, total int, p PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Pagination: Paginate(p, total)}
}
