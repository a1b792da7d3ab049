// Package response writes JSON bodies and maps domain errors to HTTP statuses.
package response

import (
	"encoding/json"
	"net/http"

	domainerrors "libracatalog/internal/errors"

	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    domainerrors.Code `json:"code"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	ItemID  int               `json:"item_id,omitempty"`
	From    string            `json:"from,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && log != nil {
		log.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// Success writes a 200 OK response.
func Success(w http.ResponseWriter, data any, log *zap.Logger) {
	JSON(w, http.StatusOK, data, log)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any, log *zap.Logger) {
	JSON(w, http.StatusCreated, data, log)
}

// BadRequest writes a 400 response that is not tied to a domain field.
func BadRequest(w http.ResponseWriter, message string, log *zap.Logger) {
	JSON(w, http.StatusBadRequest, ErrorBody{Code: domainerrors.CodeValidation, Message: message}, log)
}

// Error writes err with the status its domain code maps to. Errors without a
// domain code become 500 and are logged.
func Error(w http.ResponseWriter, err error, log *zap.Logger) {
	var domainErr *domainerrors.Error
	if !domainerrors.As(err, &domainErr) {
		if log != nil {
			log.Error("Unhandled error", zap.Error(err))
		}
		JSON(w, http.StatusInternalServerError, ErrorBody{
			Code:    domainerrors.CodeInternal,
			Message: "internal error",
		}, log)
		return
	}

	status := domainErr.HTTPStatus()
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("Request failed", zap.Error(err))
	}
	JSON(w, status, ErrorBody{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Field:   domainErr.Field,
		ItemID:  domainErr.ItemID,
		From:    domainErr.From,
	}, log)
}
