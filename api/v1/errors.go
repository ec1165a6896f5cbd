package v1

import "errors"

var (
	ErrRequestCtx   = errors.New("download request missing in context")
	ErrContentType  = errors.New("Content-Type must be application/json")
	ErrItemsURL     = errors.New("url query parameter is required")
	ErrHistoryLimit = errors.New("limit must be a non-negative integer")
)
