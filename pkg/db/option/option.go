// Package option provides composable gorm query modifiers for the generic store.
package option

import (
	"strings"

	"github.com/scribehq/scribe/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination limits the query to the requested page window.
func ApplyPagination(p pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		n := p.Normalize()
		return db.Offset(n.Offset()).Limit(n.PageSize)
	})
}

// QuerySortBy restricts ordering to an allow-listed column set.
type QuerySortBy struct {
	Allow map[string]bool
	Field string
	Desc  bool
}

// WithSortBy orders results, defaulting to created_at descending.
func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || !sort.Allow[field] {
			field = "created_at"
		}
		direction := "ASC"
		if sort.Desc || sort.Field == "" {
			direction = "DESC"
		}
		return db.Order(field + " " + direction)
	})
}

// Where appends a raw conditional expression.
func Where(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
