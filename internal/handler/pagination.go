package handler

import "gorm.io/gorm"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PageMeta describes the position of a page within a listing.
type PageMeta struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPage assembles a page from already-fetched data.
func NewPage[T any](data []T, totalItems int64, page, limit int) Page[T] {
	return Page[T]{
		Data: data,
		Meta: PageMeta{
			TotalItems:  totalItems,
			TotalPages:  (int(totalItems) + limit - 1) / limit,
			CurrentPage: page,
			PageSize:    limit,
		},
	}
}

// Paginate runs a counted offset/limit query. Out-of-range page and limit
// values are clamped rather than rejected.
func Paginate[T any](db *gorm.DB, page, limit int) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	var totalItems int64
	if err := db.Model(new(T)).Count(&totalItems).Error; err != nil {
		return nil, err
	}

	var results []T
	if err := db.Offset((page - 1) * limit).Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}

	result := NewPage(results, totalItems, page, limit)
	return &result, nil
}
