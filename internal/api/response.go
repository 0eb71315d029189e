package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"simustock/pkg/simustock"
)

// ErrorResponse is the envelope for every failed API call. Message is the
// localized user-facing text; internal detail only goes to the logs.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(message string)
}

// writeErrorResponse maps err to its HTTP status and localized message.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, locale *simustock.Locale, err error) {
	code := simustock.CodeOf(err)
	status := mapErrorCodeToHTTPStatus(code)
	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(err.Error())
	}
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Message:   simustock.UserMessage(err, locale),
		ErrorCode: string(code),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeBadRequest reports a malformed request body.
func writeBadRequest(w http.ResponseWriter, r *http.Request, locale *simustock.Locale, err error) {
	writeErrorResponse(w, r, locale, simustock.WrapError(simustock.ErrCodeInvalidInput, "invalid request body", err))
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code simustock.ErrorCode) int {
	switch code {
	case simustock.ErrCodeInvalidInput, simustock.ErrCodeValidation:
		return http.StatusBadRequest
	case simustock.ErrCodeConfiguration:
		return http.StatusServiceUnavailable
	case simustock.ErrCodeUpstream:
		return http.StatusBadGateway
	case simustock.ErrCodeNormalization:
		return http.StatusUnprocessableEntity
	case simustock.ErrCodeStale:
		return http.StatusConflict
	case simustock.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
