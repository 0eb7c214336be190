package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"costbook/pkg/costbook"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{Code: 0, Data: data})
}

func writeSuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Code: 0, Message: message, Data: data})
}

// writeError writes a plain error envelope with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	recordErrorMessage(w, message)
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Message:   message,
		RequestID: requestID(r),
	})
}

// writeErrorResponse writes err, replacing fallback with the status mapped
// from its code when err is a structured costbook error.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, fallback int, err error) {
	response := ErrorResponse{
		Code:      fallback,
		Message:   err.Error(),
		RequestID: requestID(r),
	}
	var cbErr *costbook.Error
	if errors.As(err, &cbErr) {
		response.ErrorCode = string(cbErr.Code)
		response.Code = mapErrorCodeToHTTPStatus(cbErr.Code)
	}
	recordErrorMessage(w, response.Message)
	writeJSON(w, response.Code, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code costbook.ErrorCode) int {
	switch code {
	case costbook.ErrCodeInvalidInput, costbook.ErrCodeValidation:
		return http.StatusBadRequest
	case costbook.ErrCodeNotFound:
		return http.StatusNotFound
	case costbook.ErrCodeDuplicate:
		return http.StatusConflict
	case costbook.ErrCodeUnorderedTransaction, costbook.ErrCodeRateNotFound:
		return http.StatusUnprocessableEntity
	case costbook.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func recordErrorMessage(w http.ResponseWriter, message string) {
	if lw, ok := w.(interface{ SetErrorMessage(string) }); ok {
		lw.SetErrorMessage(message)
	}
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return middleware.GetReqID(r.Context())
}
