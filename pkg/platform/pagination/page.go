package pagination

// Default and maximum page sizes for list operations.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Page requests one window of an ordered listing. After is the opaque
// cursor returned as NextAfter by the previous page; empty starts at the
// beginning.
type Page struct {
	Size  int    `json:"size,omitempty"`
	After string `json:"after,omitempty"`
}

// Result is one window of an ordered listing. NextAfter is empty on the
// last page.
type Result[T any] struct {
	Items     []T    `json:"items"`
	NextAfter string `json:"next_after,omitempty"`
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageSize
}

// Normalize returns p with its size clamped.
func (p Page) Normalize() Page {
	p.Size = ClampPageSize(p.Size)
	return p
}

// Take cuts a window from items, which must already be ordered and start
// after the requested cursor. Callers fetch size+1 rows so the presence of
// a next page is known without a count query.
func Take[T any](items []T, size int, cursor func(T) string) Result[T] {
	size = ClampPageSize(size)
	if len(items) <= size {
		if items == nil {
			items = []T{}
		}
		return Result[T]{Items: items}
	}
	window := items[:size]
	return Result[T]{Items: window, NextAfter: cursor(window[size-1])}
}
