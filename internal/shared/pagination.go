package shared

import (
	"math"
	"net/http"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is a parsed ?page=&per_page= pair.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the SQL offset of the page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePageRequest reads paging params, defaulting to page 1 of 20 and capping
// per_page at 100.
func ParsePageRequest(r *http.Request) PageRequest {
	p := PageRequest{Page: 1, PerPage: 20}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		p.PerPage = v
	}
	if p.PerPage > 100 {
		p.PerPage = 100
	}
	return p
}
