package handlers

import (
	"encoding/json"
	"net/http"

	"atr-bknd/internal/middleware"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the uniform failure envelope.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// currentUserID pulls the authenticated user id the JWT middleware attached.
func currentUserID(r *http.Request) (int64, bool) {
	return middleware.UserID(r.Context())
}
