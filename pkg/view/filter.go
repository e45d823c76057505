// Package view computes the visible part of a catalog graph for a given filter state.
// Everything here is a pure function of the index and its inputs; selection and
// highlighting stay with the caller.
package view

import (
	"github.com/ritzau/service-catalog/pkg/graph"
)

// Filter is the graph filter state. Zero values mean "show everything".
type Filter struct {
	Event            string `json:"event,omitempty"`
	Service          string `json:"service,omitempty"`
	HideDependencies bool   `json:"hideDependencies,omitempty"`
	HideEvents       bool   `json:"hideEvents,omitempty"`
}

// Subgraph is the visible slice of an index
type Subgraph struct {
	Nodes      []*graph.Node `json:"nodes"`
	Edges      []*graph.Edge `json:"edges"`
	MaxWeight  int           `json:"maxWeight"`
	EventNames []string      `json:"eventNames"`
	ServiceIDs []string      `json:"serviceIds"`
}

// Full returns the whole index as a subgraph.
func Full(idx *graph.Index) *Subgraph {
	return Apply(idx, Filter{})
}

// Apply selects the nodes and edges visible under f.
//
// An event filter keeps nodes that produce or consume the event. A service
// filter keeps the service and every node sharing an edge with it. Edges are
// kept when both endpoints are visible and their kind is not hidden; under an
// event filter only that event's event edges remain.
func Apply(idx *graph.Index, f Filter) *Subgraph {
	allowed := make(map[string]bool, len(idx.Nodes))
	for _, node := range idx.Nodes {
		allowed[node.ID] = true
	}

	if f.Event != "" {
		for _, node := range idx.Nodes {
			if !contains(node.ProducedEvents, f.Event) && !contains(node.ConsumedEvents, f.Event) {
				delete(allowed, node.ID)
			}
		}
	}

	if f.Service != "" {
		nearby := map[string]bool{f.Service: true}
		for _, edge := range idx.Edges {
			if edge.Source == f.Service {
				nearby[edge.Target] = true
			}
			if edge.Target == f.Service {
				nearby[edge.Source] = true
			}
		}
		for id := range allowed {
			if !nearby[id] {
				delete(allowed, id)
			}
		}
	}

	sub := &Subgraph{
		Nodes:      make([]*graph.Node, 0, len(allowed)),
		Edges:      make([]*graph.Edge, 0),
		MaxWeight:  idx.MaxWeight,
		EventNames: idx.EventNames,
		ServiceIDs: idx.ServiceIDs,
	}
	for _, node := range idx.Nodes {
		if allowed[node.ID] {
			sub.Nodes = append(sub.Nodes, node)
		}
	}
	for _, edge := range idx.Edges {
		if edgeVisible(edge, f, allowed) {
			sub.Edges = append(sub.Edges, edge)
		}
	}
	return sub
}

func edgeVisible(edge *graph.Edge, f Filter, allowed map[string]bool) bool {
	if !allowed[edge.Source] || !allowed[edge.Target] {
		return false
	}

	switch edge.Kind {
	case graph.EdgeDependency:
		return !f.HideDependencies
	case graph.EdgeEvent:
		if f.HideEvents {
			return false
		}
		return f.Event == "" || edge.EventName == f.Event
	}
	return true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
