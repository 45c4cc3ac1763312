package handlers

import (
	"fmt"
	"net/http"
	"strconv"
)

// PaginatedResponse holds the common pagination fields.
type PaginatedResponse struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
	Prev     *string `json:"prev"`
	Next     *string `json:"next"`
}

// ReturnPaginatedData populates the total count and constructs absolute
// URLs for prev and next based on the request's scheme, host, and path.
func (p *PaginatedResponse) ReturnPaginatedData(r *http.Request, total int) {
	p.Total = total

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.Path)

	if p.Page > 1 {
		prev := fmt.Sprintf("%s?page=%d&page_size=%d", baseURL, p.Page-1, p.PageSize)
		p.Prev = &prev
	} else {
		p.Prev = nil
	}

	offsetEnd := (p.Page-1)*p.PageSize + p.PageSize
	if offsetEnd < total {
		next := fmt.Sprintf("%s?page=%d&page_size=%d", baseURL, p.Page+1, p.PageSize)
		p.Next = &next
	} else {
		p.Next = nil
	}
}

// ExtractPagination reads page and page_size from the query string and
// falls back to defaults when they are missing or invalid.
func ExtractPagination(r *http.Request) (int, int, error) {
	pageStr := r.URL.Query().Get("page")
	if pageStr == "" {
		pageStr = "1"
	}
	pageSizeStr := r.URL.Query().Get("page_size")
	if pageSizeStr == "" {
		pageSizeStr = "10"
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	return page, pageSize, err
}
