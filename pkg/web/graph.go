package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/service-catalog/pkg/analytics"
	"github.com/ritzau/service-catalog/pkg/graph"
	"github.com/ritzau/service-catalog/pkg/metrics"
	"github.com/ritzau/service-catalog/pkg/model"
	"github.com/ritzau/service-catalog/pkg/pubsub"
	"github.com/ritzau/service-catalog/pkg/view"
)

// Datasets a graph can be built from
const (
	sourceMetadata = "metadata" // the loaded metadata file or URL
	sourceCatalog  = "catalog"  // services managed through /services
)

type analyticsResponse struct {
	Source      string `json:"source"`
	GeneratedAt string `json:"generatedAt"`
	analytics.Summary
}

// buildIndex indexes one dataset. Indexes are rebuilt per request so they
// always reflect the current data.
func (s *Server) buildIndex(dataset string) *graph.Index {
	var services []model.Service
	if dataset == sourceCatalog {
		services = s.store.List()
	} else {
		services = s.loader.Services()
	}

	start := time.Now()
	idx := graph.BuildAt(services, s.now())
	metrics.ObserveIndexBuild(dataset, time.Since(start))
	return idx
}

// indexFor resolves the source query parameter, writing a 400 for unknown values.
func (s *Server) indexFor(w http.ResponseWriter, r *http.Request) (*graph.Index, string, bool) {
	dataset := r.URL.Query().Get("source")
	switch dataset {
	case "":
		dataset = sourceMetadata
	case sourceMetadata, sourceCatalog:
	default:
		writeError(w, http.StatusBadRequest, "source must be 'metadata' or 'catalog'", nil)
		return nil, "", false
	}
	return s.buildIndex(dataset), dataset, true
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	showDeps, err := boolParam(q.Get("dependencies"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "dependencies must be a boolean", nil)
		return
	}
	showEvents, err := boolParam(q.Get("events"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "events must be a boolean", nil)
		return
	}

	idx, _, ok := s.indexFor(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, view.Apply(idx, view.Filter{
		Event:            q.Get("event"),
		Service:          q.Get("service"),
		HideDependencies: !showDeps,
		HideEvents:       !showEvents,
	}))
}

func (s *Server) handleNodeDetails(w http.ResponseWriter, r *http.Request) {
	idx, _, ok := s.indexFor(w, r)
	if !ok {
		return
	}

	details, found := view.DetailsOf(idx, mux.Vars(r)["id"])
	if !found {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "depth must be a non-negative integer", nil)
			return
		}
		depth = d
	}

	idx, _, ok := s.indexFor(w, r)
	if !ok {
		return
	}

	sub, found := view.Neighborhood(idx, mux.Vars(r)["id"], depth)
	if !found {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	limit := s.topN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	idx, dataset, ok := s.indexFor(w, r)
	if !ok {
		return
	}

	now := s.now()
	writeJSON(w, http.StatusOK, analyticsResponse{
		Source:      dataset,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Summary:     analytics.Summarize(idx, now, limit),
	})
}

// publishGraphChange diffs a dataset against its last published state and
// publishes the change, if any.
func (s *Server) publishGraphChange(dataset string) {
	sub := view.Full(s.buildIndex(dataset))

	s.mu.Lock()
	diff := view.ComputeDiff(s.snapshots[dataset], sub)
	s.snapshots[dataset] = view.NewSnapshot(sub)
	s.mu.Unlock()

	if diff.Empty() {
		return
	}

	change := pubsub.GraphChange{
		Source:        dataset,
		Nodes:         len(sub.Nodes),
		Edges:         len(sub.Edges),
		AddedNodes:    nodeIDs(diff.AddedNodes),
		RemovedNodes:  diff.RemovedNodes,
		ModifiedNodes: nodeIDs(diff.ModifiedNodes),
		AddedEdges:    edgeIDs(diff.AddedEdges),
		RemovedEdges:  diff.RemovedEdges,
		FullGraph:     diff.FullGraph,
		At:            s.now(),
	}
	if err := s.publisher.Publish(pubsub.TopicGraph, pubsub.TypeChanged, change); err != nil {
		s.log.Debug("graph change not published", "source", dataset, "error", err)
	}
}

func boolParam(raw string, fallback bool) (bool, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}

func nodeIDs(nodes []*graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func edgeIDs(edges []*graph.Edge) []string {
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.ID
	}
	return ids
}
