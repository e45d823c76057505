package web

import (
	"encoding/json"
	"net/http"

	"github.com/ritzau/service-catalog/pkg/logging"
	"github.com/ritzau/service-catalog/pkg/validation"
)

type errorResponse struct {
	OK      bool               `json:"ok"`
	Message string             `json:"message"`
	Issues  []validation.Issue `json:"issues,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, issues []validation.Issue) {
	writeJSON(w, status, errorResponse{OK: false, Message: message, Issues: issues})
}
