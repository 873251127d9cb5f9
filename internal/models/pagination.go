package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page and size to the accepted range.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// NewPagination builds pagination metadata from the request and total row count.
func NewPagination(page, pageSize, total int) *Pagination {
	page, pageSize = NormalizePage(page, pageSize)
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
