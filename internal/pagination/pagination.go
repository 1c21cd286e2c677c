package pagination

import (
	"fmt"
	"math"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is bound from the page, page_size and limit query parameters.
// limit is an alias for page_size.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
	Limit    int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Defaults resolves the limit alias and fills in unset values.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = p.Limit
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageResponse is the envelope every list endpoint returns.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse builds the envelope. A nil slice is rendered as [].
func NewPageResponse[T any](data []T, page, pageSize int, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Paginate returns a GORM scope applying OFFSET and LIMIT.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}

// List counts the rows matched by q, then loads one ordered page of them.
// q must already carry its Model and filters; preload names associations
// to load on the page.
func List[T any](q *gorm.DB, page PageRequest, order string, preload ...string) (*PageResponse[T], error) {
	page.Defaults()

	var totalItems int64
	if err := q.Session(&gorm.Session{}).Count(&totalItems).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	find := q.Session(&gorm.Session{})
	for _, assoc := range preload {
		find = find.Preload(assoc)
	}

	var items []T
	if totalItems > 0 {
		if err := find.Order(order).Scopes(Paginate(page)).Find(&items).Error; err != nil {
			return nil, fmt.Errorf("find: %w", err)
		}
	}

	resp := NewPageResponse(items, page.Page, page.PageSize, totalItems)
	return &resp, nil
}
