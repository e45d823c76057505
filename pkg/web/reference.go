package web

import (
	"net/http"

	"github.com/ritzau/service-catalog/pkg/reference"
)

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reference.Teams())
}

func (s *Server) handlePillars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reference.Pillars())
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reference.Domains())
}

func (s *Server) handleDomainCheck(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":  name,
		"valid": reference.ValidServiceName(name),
	})
}
