package agent

import (
	"encoding/json"
	"net/http"
)

// APIError is a standardized error response body.
type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

const (
	// ErrCodeBadRequest flags a malformed query parameter.
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeBackendError flags a failure opening or reading the log glob.
	ErrCodeBackendError = "BACKEND_ERROR"
	// ErrCodeInternal flags a recovered panic.
	ErrCodeInternal = "INTERNAL_SERVER_ERROR"
)

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write json response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	s.writeJSON(w, statusCode, APIError{Code: code, Message: message})
}
