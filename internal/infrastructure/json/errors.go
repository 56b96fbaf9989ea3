package json

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	resp := ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func WriteNotFoundError(w http.ResponseWriter) {
	WriteError(w, http.StatusNotFound, "the requested resource could not be found")
}

func WriteMethodNotAllowedError(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "method is not allowed for this resource")
}
