package server

import (
	"encoding/json"
	"net/http"

	"github.com/gasfornuis/kitchenchat-auth/sanitize"
)

type errorResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeRejection(w http.ResponseWriter, rej *sanitize.Rejection) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:  rej.Error(),
		Field:  rej.Field,
		Reason: string(rej.Reason),
	})
}
