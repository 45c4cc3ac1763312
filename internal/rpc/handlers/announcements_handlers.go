package handlers

import (
	"database/sql"
	"net/http"

	"github.com/tokenfeed/salesbot/internal/store"
)

type AnnouncementsResponse struct {
	PaginatedResponse
	Data []*store.AnnouncedSale `json:"data"`
}

var salesDb store.SalesDb = store.NewSalesDb()

// AnnouncementsGetHandler serves the announcement history, newest first.
func AnnouncementsGetHandler(r *http.Request, sqlite *sql.DB) (interface{}, error) {
	page, pageSize, _ := ExtractPagination(r)

	total, sales, err := salesDb.GetRecent(sqlite, pageSize, page)
	if err != nil {
		return AnnouncementsResponse{}, err
	}

	resp := AnnouncementsResponse{
		PaginatedResponse: PaginatedResponse{
			Page:     page,
			PageSize: pageSize,
		},
		Data: sales,
	}
	resp.ReturnPaginatedData(r, total)

	return resp, nil
}
