package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/godecide/internal/rules"
)

// ErrorCode represents machine-readable error codes
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Rule-document error codes
	ErrCodeInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingField    ErrorCode = "MISSING_FIELD"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error     string    `json:"error"`                // HTTP status text
	Message   string    `json:"message"`              // Human-readable description
	Code      ErrorCode `json:"code"`                 // Machine-readable error code
	Path      string    `json:"path,omitempty"`       // Offending location in the rule document
	RequestID string    `json:"request_id,omitempty"` // Request ID for debugging
}

// NewErrorResponse creates a new error response
func NewErrorResponse(statusCode int, code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	}
}

// WithPath adds the offending document path to the response
func (e *ErrorResponse) WithPath(path string) *ErrorResponse {
	e.Path = path
	return e
}

// writeErrorResponse writes a structured error response to the http response writer
func writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errResp *ErrorResponse) {
	// Add request ID from chi middleware if available
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		errResp.RequestID = reqID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errResp)
}

// BadRequestError creates a bad request error response
func BadRequestError(w http.ResponseWriter, r *http.Request, code ErrorCode, message string) {
	writeErrorResponse(w, r, http.StatusBadRequest, NewErrorResponse(http.StatusBadRequest, code, message))
}

// UnauthorizedError creates an unauthorized error response
func UnauthorizedError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusUnauthorized, NewErrorResponse(http.StatusUnauthorized, ErrCodeUnauthorized, message))
}

// ForbiddenError creates a forbidden error response
func ForbiddenError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusForbidden, NewErrorResponse(http.StatusForbidden, ErrCodeForbidden, message))
}

// NotFoundError creates a not found error response
func NotFoundError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusNotFound, NewErrorResponse(http.StatusNotFound, ErrCodeNotFound, message))
}

// InternalError creates an internal server error response
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorResponse(w, r, http.StatusInternalServerError, NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, message))
}

// DocumentError maps a rule-document error from the parser or validator to
// its structured 400 response, carrying the offending path when known.
func DocumentError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		parseErr  *rules.ParseError
		schemaErr *rules.SchemaError
		valErr    *rules.ValidationError
	)
	switch {
	case errors.As(err, &schemaErr):
		resp := NewErrorResponse(http.StatusBadRequest, ErrCodeSchemaViolation, err.Error()).WithPath(schemaErr.Path)
		writeErrorResponse(w, r, http.StatusBadRequest, resp)
	case errors.As(err, &valErr):
		resp := NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, err.Error()).WithPath(valErr.Path)
		writeErrorResponse(w, r, http.StatusBadRequest, resp)
	case errors.As(err, &parseErr):
		BadRequestError(w, r, ErrCodeInvalidJSON, err.Error())
	default:
		BadRequestError(w, r, ErrCodeBadRequest, err.Error())
	}
}
