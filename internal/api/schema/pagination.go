package schema

// PaginatedResponse represents a unified paginated API response
type PaginatedResponse[T any] struct {
	Pagination *PaginationMetadata `json:"pagination"`
	Data       []T                 `json:"data"`
}

// PaginationMetadata represents the metadata present in a PaginatedResponse
type PaginationMetadata struct {
	Skip          int `json:"skip"`
	Limit         int `json:"limit"`
	TotalCount    int `json:"total_count"`
	IncludedCount int `json:"included_count"`
}

// Paginate cuts the window described by skip and limit out of all and wraps it into a unified paginated response.
// A limit of zero or less includes every remaining element.
func Paginate[T any](all []T, skip, limit int) *PaginatedResponse[T] {
	total := len(all)
	start := skip
	if start > total {
		start = total
	}
	end := total
	if limit > 0 && start+limit < total {
		end = start + limit
	}
	data := all[start:end]
	if data == nil {
		data = []T{}
	}
	return &PaginatedResponse[T]{
		Pagination: &PaginationMetadata{
			Skip:          skip,
			Limit:         limit,
			TotalCount:    total,
			IncludedCount: len(data),
		},
		Data: data,
	}
}
