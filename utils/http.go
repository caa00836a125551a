package utils

import (
	"encoding/json"
	"net/http"
)

// Payload holds the fields of a success response besides "success"
type Payload map[string]interface{}

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
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

// WriteSuccess writes {"success": true, ...payload}
func WriteSuccess(w http.ResponseWriter, status int, payload Payload) error {
	body := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	return WriteJSON(w, status, body)
}

// WriteOK writes a 200 OK success response
func WriteOK(w http.ResponseWriter, payload Payload) error {
	return WriteSuccess(w, http.StatusOK, payload)
}

// WriteCreated writes a 201 Created success response
func WriteCreated(w http.ResponseWriter, payload Payload) error {
	return WriteSuccess(w, http.StatusCreated, payload)
}

// WriteFailure writes {"success": false, "message": ..., "error": ...}
func WriteFailure(w http.ResponseWriter, status int, message, errText string, details map[string]interface{}) error {
	if len(details) == 0 {
		details = nil
	}
	return WriteJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   errText,
		Details: details,
	})
}

// WriteBadRequest writes a 400 Bad Request response with error details
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteFailure(w, http.StatusBadRequest, message, "bad_request", details)
}

// WriteUnauthorized writes a 401 Unauthorized response
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Authentication required"
	}
	return WriteFailure(w, http.StatusUnauthorized, message, "unauthorized", nil)
}

// WriteNotFound writes a 404 Not Found response
func WriteNotFound(w http.ResponseWriter, message string) error {
	if message == "" {
		message = "Resource not found"
	}
	return WriteFailure(w, http.StatusNotFound, message, "not_found", nil)
}

// WriteConflict writes a 409 Conflict response
func WriteConflict(w http.ResponseWriter, message string, details map[string]interface{}) error {
	return WriteFailure(w, http.StatusConflict, message, "conflict", details)
}

// WriteTooManyRequests writes a 429 Too Many Requests response
func WriteTooManyRequests(w http.ResponseWriter, message string, details map[string]interface{}) error {
	if message == "" {
		message = "Too many requests"
	}
	return WriteFailure(w, http.StatusTooManyRequests, message, "rate_limit_exceeded", details)
}

// WriteInternalServerError writes a 500 response. errText carries an
// operator-facing cause and may be empty.
func WriteInternalServerError(w http.ResponseWriter, message, errText string) error {
	if message == "" {
		message = "Internal server error"
	}
	if errText == "" {
		errText = "internal_error"
	}
	return WriteFailure(w, http.StatusInternalServerError, message, errText, nil)
}

// WriteError writes an error response based on the status code
func WriteError(w http.ResponseWriter, status int, message string, details map[string]interface{}) error {
	var errorType string
	switch status {
	case http.StatusBadRequest:
		errorType = "bad_request"
	case http.StatusUnauthorized:
		errorType = "unauthorized"
	case http.StatusNotFound:
		errorType = "not_found"
	case http.StatusMethodNotAllowed:
		errorType = "method_not_allowed"
	case http.StatusConflict:
		errorType = "conflict"
	case http.StatusRequestEntityTooLarge:
		errorType = "payload_too_large"
	case http.StatusTooManyRequests:
		errorType = "rate_limit_exceeded"
	default:
		errorType = "internal_error"
	}

	return WriteFailure(w, status, message, errorType, details)
}
