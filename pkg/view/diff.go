package view

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/ritzau/service-catalog/pkg/graph"
)

// Diff is the difference between two graph states
type Diff struct {
	AddedNodes    []*graph.Node `json:"addedNodes"`
	RemovedNodes  []string      `json:"removedNodes"`
	ModifiedNodes []*graph.Node `json:"modifiedNodes"`
	AddedEdges    []*graph.Edge `json:"addedEdges"`
	RemovedEdges  []string      `json:"removedEdges"`
	ModifiedEdges []*graph.Edge `json:"modifiedEdges"`
	FullGraph     bool          `json:"fullGraph"` // no previous snapshot existed
}

// Empty reports whether the diff carries no changes.
func (d *Diff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.ModifiedEdges) == 0
}

// Snapshot is a frozen graph state used for diffing
type Snapshot struct {
	Hash  string
	Nodes map[string]graph.Node
	Edges map[string]graph.Edge
}

// NewSnapshot copies the nodes and edges of sub.
func NewSnapshot(sub *Subgraph) *Snapshot {
	snapshot := &Snapshot{
		Nodes: make(map[string]graph.Node, len(sub.Nodes)),
		Edges: make(map[string]graph.Edge, len(sub.Edges)),
	}
	for _, node := range sub.Nodes {
		snapshot.Nodes[node.ID] = *node
	}
	for _, edge := range sub.Edges {
		snapshot.Edges[edge.ID] = *edge
	}

	data, err := json.Marshal(struct {
		Nodes []*graph.Node
		Edges []*graph.Edge
	}{sub.Nodes, sub.Edges})
	if err == nil {
		snapshot.Hash = fmt.Sprintf("%x", sha256.Sum256(data))
	}
	return snapshot
}

// ComputeDiff compares next against the previous snapshot. A nil previous
// snapshot yields the full graph.
func ComputeDiff(previous *Snapshot, next *Subgraph) *Diff {
	if previous == nil {
		return &Diff{
			AddedNodes:    next.Nodes,
			RemovedNodes:  []string{},
			ModifiedNodes: []*graph.Node{},
			AddedEdges:    next.Edges,
			RemovedEdges:  []string{},
			ModifiedEdges: []*graph.Edge{},
			FullGraph:     true,
		}
	}

	diff := &Diff{
		AddedNodes:    make([]*graph.Node, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]*graph.Node, 0),
		AddedEdges:    make([]*graph.Edge, 0),
		RemovedEdges:  make([]string, 0),
		ModifiedEdges: make([]*graph.Edge, 0),
	}

	seenNodes := make(map[string]bool, len(next.Nodes))
	for _, node := range next.Nodes {
		seenNodes[node.ID] = true
		old, exists := previous.Nodes[node.ID]
		switch {
		case !exists:
			diff.AddedNodes = append(diff.AddedNodes, node)
		case !reflect.DeepEqual(old, *node):
			diff.ModifiedNodes = append(diff.ModifiedNodes, node)
		}
	}
	for id := range previous.Nodes {
		if !seenNodes[id] {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	seenEdges := make(map[string]bool, len(next.Edges))
	for _, edge := range next.Edges {
		seenEdges[edge.ID] = true
		old, exists := previous.Edges[edge.ID]
		switch {
		case !exists:
			diff.AddedEdges = append(diff.AddedEdges, edge)
		case !edgesEqual(old, *edge):
			diff.ModifiedEdges = append(diff.ModifiedEdges, edge)
		}
	}
	for id := range previous.Edges {
		if !seenEdges[id] {
			diff.RemovedEdges = append(diff.RemovedEdges, id)
		}
	}

	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.RemovedEdges)
	return diff
}

func edgesEqual(a, b graph.Edge) bool {
	return a.Source == b.Source &&
		a.Target == b.Target &&
		a.Kind == b.Kind &&
		a.IsCritical() == b.IsCritical() &&
		a.Role == b.Role &&
		a.Protocol == b.Protocol &&
		a.EventName == b.EventName
}
