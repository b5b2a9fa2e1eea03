package dto

import "time"

// Response is the envelope every endpoint writes. Exactly one of Data and
// Error is meaningful, depending on Success.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo carries the API error code, a human message and, for binding
// failures, the offending fields.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta describes the page a list response holds
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newMeta(total int64, page, size int) *Meta {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + int64(size) - 1) / int64(size)
	return &Meta{Total: total, Page: page, PageSize: size, TotalPages: int(pages)}
}

// NewSuccessResponse wraps data in a success envelope
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps one page of a list
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	resp := NewSuccessResponse(data)
	resp.Meta = newMeta(total, page, pageSize)
	return resp
}

// NewErrorResponseWithRequestID builds a failure envelope. Domain codes are
// translated to their API form.
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	info := &ErrorInfo{
		Code:      NormalizeErrorCode(code),
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
	return Response{Error: info}
}

// NewValidationErrorResponse lists the rejected fields of a request
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// DefaultPageSize applies when a list request leaves page_size empty
const DefaultPageSize = 20

// ListRequest holds the paging and ordering query parameters shared by list endpoints
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DefaultListRequest is the first page, newest first
func DefaultListRequest() ListRequest {
	return ListRequest{Page: 1, PageSize: DefaultPageSize, OrderBy: "created_at", OrderDir: "desc"}
}
