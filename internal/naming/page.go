package naming

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Page slices a fully materialized, already-ordered result set according
// to a page size and token. It returns the page plus the token for the
// next one, or an empty token when the listing is exhausted. A zero or
// negative size selects the default; oversized requests are clamped.
func Page[T any](items []T, pageSize int, token string) ([]T, string, error) {
	offset, err := DecodePageToken(token)
	if err != nil {
		return nil, "", err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if offset >= len(items) {
		return nil, "", nil
	}
	end := offset + pageSize
	if end >= len(items) {
		return items[offset:], "", nil
	}
	return items[offset:end], EncodePageToken(end), nil
}
