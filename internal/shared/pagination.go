package shared

import "math"

// PageRequest describes a page of a filtered listing.
type PageRequest struct {
	Page  int
	Size  int
	Query string
}

// NewPageRequest normalizes raw query parameters into a PageRequest.
func NewPageRequest(page, size int, query string) PageRequest {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return PageRequest{Page: page, Size: size, Query: query}
}

// Offset returns the row offset for the requested page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// Page is a paginated listing result.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPage assembles a Page from a fetched slice and the total row count.
func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int(math.Ceil(float64(total) / float64(req.Size)))
	return Page[T]{Items: items, Page: req.Page, Size: req.Size, Total: total, Pages: pages}
}
