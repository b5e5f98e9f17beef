package types

// PaginationResponse represents standardized pagination metadata.
// Total is approximate on index-backed listings and an undercount on
// bounded scans; callers must not treat it as exact.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPaginationResponse creates a new pagination response
func NewPaginationResponse(page, limit, total int) PaginationResponse {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PaginationResponse{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
