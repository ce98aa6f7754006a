package shared

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePagination 页码从 1 开始，每页条数限制在 [1, MaxPageSize]
func NormalizePagination(page, pageSize int) (int, int) {
	page = max(page, 1)
	if pageSize <= 0 {
		return page, DefaultPageSize
	}
	return page, min(pageSize, MaxPageSize)
}
