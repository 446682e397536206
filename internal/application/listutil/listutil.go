// Package listutil parses paging, sorting and filter query parameters for admin list endpoints.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// PageParams carries pagination parameters parsed from a request.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// SortParams carries sorting parameters parsed from a request.
type SortParams struct {
	Sort string // one of the allowed keys, or empty for the default order
	Dir  string // "asc" or "desc"
}

// FilterParams carries search and filter parameters.
type FilterParams struct {
	Search  string            // free-text query from ?q=
	Filters map[string]string // exact-match filters, e.g. county=Kent
}

// PageInfo is the pagination block returned alongside a page of rows.
type PageInfo struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListParams combines all list parameters.
type ListParams struct {
	PageParams
	SortParams
	FilterParams
}

// DefaultPerPage is the page size used when per_page is absent or not allowed.
const DefaultPerPage = 20

// PerPageOptions are the allowed page sizes.
var PerPageOptions = []int{10, 20, 50, 100, 200}

// MaxSearchLength caps the free-text query.
const MaxSearchLength = 100

// ParsePageParams extracts page and per_page.
// POST: Page >= 1; PerPage is one of PerPageOptions
func ParsePageParams(q url.Values) PageParams {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// ParseSortParams extracts sort and dir. A leading "-" on sort is shorthand
// for dir=desc, so ?sort=-updated and ?sort=updated&dir=desc are equivalent.
// POST: Sort is empty or in allowed; Dir is "asc" or "desc"
func ParseSortParams(q url.Values, allowed []string) SortParams {
	sort := q.Get("sort")
	dir := strings.ToLower(q.Get("dir"))
	if rest, ok := strings.CutPrefix(sort, "-"); ok {
		sort = rest
		dir = "desc"
	}
	if !slices.Contains(allowed, sort) {
		sort = ""
	}
	if dir != "desc" {
		dir = "asc"
	}
	return SortParams{Sort: sort, Dir: dir}
}

// ParseFilterParams extracts the search query and the named filters.
// POST: Filters holds only non-empty values for keys in filterKeys
func ParseFilterParams(q url.Values, filterKeys []string) FilterParams {
	search := strings.TrimSpace(q.Get("q"))
	if r := []rune(search); len(r) > MaxSearchLength {
		search = string(r[:MaxSearchLength])
	}
	fp := FilterParams{Search: search, Filters: make(map[string]string)}
	for _, key := range filterKeys {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			fp.Filters[key] = v
		}
	}
	return fp
}

// ParseListParams parses all list parameters.
func ParseListParams(q url.Values, sortKeys, filterKeys []string) ListParams {
	return ListParams{
		PageParams:   ParsePageParams(q),
		SortParams:   ParseSortParams(q, sortKeys),
		FilterParams: ParseFilterParams(q, filterKeys),
	}
}

// NewPageInfo computes pagination metadata for total matching rows.
// POST: TotalPages >= 1; Page clamped to [1, TotalPages]
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := max((total+perPage-1)/perPage, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// Offset returns the SQL OFFSET for the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}
