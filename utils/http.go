package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every non-GraphQL error
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps the data of REST style endpoints
type SuccessResponse struct {
	Data interface{} `json:"data,omitempty"`
}

// errorCodes maps the statuses this service emits to their error codes.
// Anything else is reported as internal_error.
var errorCodes = map[int]string{
	http.StatusBadRequest:         "bad_request",
	http.StatusUnauthorized:       "unauthorized",
	http.StatusForbidden:          "forbidden",
	http.StatusNotFound:           "not_found",
	http.StatusMethodNotAllowed:   "method_not_allowed",
	http.StatusServiceUnavailable: "service_unavailable",
}

// WriteJSON encodes data with the given status. A nil data writes no body.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes data wrapped in a SuccessResponse
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteNoContent writes a bare 204
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an ErrorResponse. An empty message falls back to the
// status text.
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	code, ok := errorCodes[status]
	if !ok {
		code = "internal_error"
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return WriteJSON(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}
