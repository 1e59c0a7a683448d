package common

import (
	"net/http"
	"strconv"
)

// Pagination is the canonical pagination envelope returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
}

// ParsePagination reads page/perPage query parameters, clamping to sane
// positive values. defaultPerPage is used when perPage is absent or invalid.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page = 1
	perPage = defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("perPage")); err == nil && v > 0 {
		perPage = v
	}
	return page, perPage
}
