package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/service-catalog/pkg/model"
	"github.com/ritzau/service-catalog/pkg/store"
	"github.com/ritzau/service-catalog/pkg/validation"
)

type serviceResponse struct {
	OK      bool          `json:"ok"`
	Service model.Service `json:"service"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.store.Get(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeServiceBody(w, r)
	if !ok {
		return
	}

	created, err := s.store.Create(in)
	switch {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, fmt.Sprintf("Service '%s' already exists", in.Name), nil)
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	s.log.InfoContext(r.Context(), "service created", "name", created.Name)
	writeJSON(w, http.StatusCreated, serviceResponse{OK: true, Service: created})
}

func (s *Server) handleReplaceService(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	in, ok := s.decodeServiceBody(w, r)
	if !ok {
		return
	}

	replaced, err := s.store.Replace(name, in)
	switch {
	case errors.Is(err, store.ErrNameMismatch):
		writeError(w, http.StatusBadRequest, store.ErrNameMismatch.Error(), nil)
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Service '%s' not found", name), nil)
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	s.log.InfoContext(r.Context(), "service replaced", "name", name, "version", replaced.Metadata.Version)
	writeJSON(w, http.StatusOK, serviceResponse{OK: true, Service: replaced})
}

func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.store.Delete(name); err != nil {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}
	s.log.InfoContext(r.Context(), "service deleted", "name", name)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// decodeServiceBody reads and validates a service payload, writing the 4xx
// response itself when it fails. Client metadata is rejected before any
// other check.
func (s *Server) decodeServiceBody(w http.ResponseWriter, r *http.Request) (model.Service, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
		} else {
			writeError(w, http.StatusBadRequest, "Could not read request body", nil)
		}
		return model.Service{}, false
	}

	if err := validation.RejectMetadata(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return model.Service{}, false
	}

	in, err := validation.DecodeServiceInput(body)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Validation failed", verr.Issues)
		} else {
			s.internalError(w, r, err)
		}
		return model.Service{}, false
	}
	return in, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}
