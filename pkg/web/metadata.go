package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/ritzau/service-catalog/pkg/pubsub"
	"github.com/ritzau/service-catalog/pkg/source"
)

type refreshRequest struct {
	URL string `json:"url"`
}

type refreshResponse struct {
	OK      bool          `json:"ok"`
	Message string        `json:"message,omitempty"`
	Status  source.Status `json:"status"`
}

func (s *Server) handleMetadataStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loader.Status())
}

// handleMetadataRefresh fetches remote metadata. A failed fetch answers 502
// and leaves the current dataset in place.
func (s *Server) handleMetadataRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read request body", nil)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Body must be {\"url\": string}", nil)
			return
		}
	}
	if req.URL == "" {
		req.URL = r.URL.Query().Get("url")
	}

	status, err := s.loader.Refresh(r.Context(), req.URL)
	if errors.Is(err, source.ErrNoURL) {
		writeError(w, http.StatusBadRequest, "No metadata URL configured or supplied", nil)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, refreshResponse{OK: false, Message: status.FetchError, Status: status})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{OK: true, Status: status})
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !s.publisher.HasTopic(topic) {
		writeError(w, http.StatusNotFound, "Unknown topic '"+topic+"'", nil)
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		if errors.Is(err, pubsub.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "Server is shutting down", nil)
			return
		}
		s.internalError(w, r, err)
		return
	}
	defer sub.Close()

	s.log.DebugContext(r.Context(), "subscriber connected", "topic", topic)
	if err := pubsub.Stream(r.Context(), w, sub, s.keepAlive); err != nil {
		s.log.DebugContext(r.Context(), "event stream ended", "topic", topic, "error", err)
	}
}

func (s *Server) publishStatus(status source.Status) {
	if err := s.publisher.Publish(pubsub.TopicMetadataStatus, pubsub.TypeStatus, status); err != nil {
		s.log.Debug("metadata status not published", "error", err)
	}
}
