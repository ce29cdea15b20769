package pagination

import "github.com/adamanr/hcm_gateway/internal/entity"

const (
	DefaultPageSize = 5
	MaxPageSize     = 100
)

// Params normalizes a requested page and size. Non-positive values fall
// back to page 1 and the given default size, and sizes are capped at
// MaxPageSize.
func Params(page, pageSize, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	if pageSize < 1 {
		pageSize = defaultSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}

// Pages returns how many pages of size pageSize hold total items.
func Pages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}

	return (total + pageSize - 1) / pageSize
}

// Paginate slices an in-memory list. Pages past the end are empty, never
// nil, and the source list is not modified.
func Paginate[T any](items []T, page, pageSize int) entity.Page[T] {
	page, pageSize = Params(page, pageSize, DefaultPageSize)

	result := entity.Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
		TotalPages: Pages(len(items), pageSize),
	}

	if PastEnd(len(items), page, pageSize) {
		return result
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	result.Items = append(result.Items, items[start:end]...)
	return result
}

// PastEnd reports whether page starts at or after the last of total items.
// It does not multiply page by pageSize.
func PastEnd(total, page, pageSize int) bool {
	return page-1 >= Pages(total, pageSize)
}
