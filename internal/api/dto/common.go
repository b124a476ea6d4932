package dto

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps a page of items
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
