package handlers

import (
	"net/http"

	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// StatusForError maps an API error kind to its HTTP status
func StatusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps service errors to HTTP responses.
// Internal causes are logged and replaced by the curated reason.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := StatusForError(err)
	message := services.ReasonOf(err)

	if status == http.StatusInternalServerError {
		logger.Error("internal server error", zap.Error(err))
		if message == "" {
			message = "An internal error occurred"
		}
		if err := utils.WriteError(w, http.StatusInternalServerError, message, nil); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteError(w, status, message, services.DetailsOf(err)); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
