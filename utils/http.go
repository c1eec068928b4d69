package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorKinds maps the statuses the relay answers with to their error slug
// and the message used when the caller passes none.
var errorKinds = map[int]struct{ slug, message string }{
	http.StatusBadRequest:            {"bad_request", "Bad request"},
	http.StatusUnauthorized:          {"unauthorized", "Authentication required"},
	http.StatusForbidden:             {"forbidden", "Access forbidden"},
	http.StatusNotFound:              {"not_found", "Resource not found"},
	http.StatusMethodNotAllowed:      {"method_not_allowed", "Method not allowed"},
	http.StatusRequestEntityTooLarge: {"payload_too_large", "Request body too large"},
	http.StatusBadGateway:            {"bad_gateway", "Upstream provider failed"},
	http.StatusServiceUnavailable:    {"service_unavailable", "Service unavailable"},
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteText writes a plain text response
func WriteText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	return err
}

// WriteOK wraps data in a SuccessResponse with status 200
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteError writes an ErrorResponse. Statuses outside the table are
// reported as internal_error.
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	kind, ok := errorKinds[status]
	if !ok {
		kind.slug, kind.message = "internal_error", "Internal server error"
	}
	if message == "" {
		message = kind.message
	}

	return WriteJSON(w, status, ErrorResponse{
		Error:   kind.slug,
		Message: message,
		Details: details,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteError(w, http.StatusBadRequest, message, details)
}

func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message, nil)
}

func WriteForbidden(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusForbidden, message, nil)
}

func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, nil)
}

func WriteMethodNotAllowed(w http.ResponseWriter) error {
	return WriteError(w, http.StatusMethodNotAllowed, "", nil)
}

func WriteInternalServerError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, nil)
}
