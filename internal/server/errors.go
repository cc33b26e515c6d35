package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "invalid credentials":
		return "AUTH_INVALID_CREDENTIALS"
	case message == "account disabled":
		return "AUTH_ACCOUNT_DISABLED"
	case message == "forbidden":
		return "AUTH_FORBIDDEN"
	case message == "email and password are required":
		return "AUTH_MISSING_CREDENTIALS"
	case message == "item not found":
		return "ITEM_NOT_FOUND"
	case message == "name is required":
		return "ITEM_NAME_REQUIRED"
	case message == "invalid export format":
		return "ITEM_INVALID_EXPORT_FORMAT"
	case message == "clear all failed":
		return "ITEM_CLEAR_ALL_FAILED"
	case message == "invalid form data":
		return "ITEM_INVALID_UPLOAD_FORM"
	case strings.Contains(message, "file is required"):
		return "ITEM_FILE_REQUIRED"
	case message == "image upload failed":
		return "ITEM_IMAGE_UPLOAD_FAILED"
	case message == "no data provided":
		return "EXTRACT_EMPTY_INPUT"
	case message == "openai api key not configured":
		return "EXTRACT_NO_CREDENTIAL"
	case message == "extraction not configured":
		return "EXTRACT_NOT_CONFIGURED"
	case message == "invalid json body":
		return "REQUEST_INVALID_BODY"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "REQUEST_ERROR"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "AUTH_FORBIDDEN"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
