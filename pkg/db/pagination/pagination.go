package pagination

// Pagination is the page/size pair accepted by list endpoints.
type Pagination struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"limit,default=10" validate:"gte=1,lte=100"` // Min 1, Max 100
}

// PageInfo describes the list window returned alongside records.
type PageInfo struct {
	Page     int   `json:"page"`
	PageSize int   `json:"limit"`
	Total    int64 `json:"total"`
	Pages    int64 `json:"pages"`
}

// Normalize clamps page/size to sane bounds.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	return p
}

// Offset returns the row offset for the normalized window.
func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// BuildPageInfo computes the page descriptor for a total row count.
func BuildPageInfo(p Pagination, total int64) PageInfo {
	n := p.Normalize()
	pages := total / int64(n.PageSize)
	if total%int64(n.PageSize) != 0 {
		pages++
	}
	return PageInfo{
		Page:     n.Page,
		PageSize: n.PageSize,
		Total:    total,
		Pages:    pages,
	}
}
