package view

import (
	"sort"

	"github.com/ritzau/service-catalog/pkg/graph"
)

type queueNode struct {
	id       string
	distance int
}

// Distances returns the hop count from the nearest selected node to every
// reachable node, treating all edges as undirected. Unreachable nodes are absent.
func Distances(idx *graph.Index, selected []string) map[string]int {
	distances := make(map[string]int)
	adjacency := buildAdjacency(idx)

	queue := make([]queueNode, 0, len(selected))
	for _, id := range selected {
		if _, ok := idx.Node(id); !ok {
			continue
		}
		distances[id] = 0
		queue = append(queue, queueNode{id: id})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current.id] {
			if _, seen := distances[neighbor]; !seen {
				distances[neighbor] = current.distance + 1
				queue = append(queue, queueNode{id: neighbor, distance: current.distance + 1})
			}
		}
	}
	return distances
}

// Neighborhood returns the nodes within depth hops of id and the edges among
// them. Depth 1 is the closed neighbourhood of the node. ok is false for an
// unknown id.
func Neighborhood(idx *graph.Index, id string, depth int) (*Subgraph, bool) {
	if _, ok := idx.Node(id); !ok {
		return nil, false
	}
	if depth < 0 {
		depth = 0
	}

	distances := Distances(idx, []string{id})
	allowed := make(map[string]bool, len(distances))
	for nodeID, d := range distances {
		if d <= depth {
			allowed[nodeID] = true
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
		if allowed[edge.Source] && allowed[edge.Target] {
			sub.Edges = append(sub.Edges, edge)
		}
	}
	return sub, true
}

func buildAdjacency(idx *graph.Index) map[string][]string {
	adjacency := make(map[string][]string)
	for _, edge := range idx.Edges {
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		adjacency[edge.Target] = append(adjacency[edge.Target], edge.Source)
	}
	return adjacency
}

// LinkedService is one end of a dependency edge as seen from a selected node
type LinkedService struct {
	ID       string `json:"id"`
	Critical bool   `json:"critical"`
}

// Details describes a single node with its dependency links and events.
type Details struct {
	Node           *graph.Node     `json:"node"`
	Inbound        []LinkedService `json:"inboundDeps"`
	Outbound       []LinkedService `json:"outboundDeps"`
	ProducedEvents []string        `json:"producedEvents"`
	ConsumedEvents []string        `json:"consumedEvents"`
}

// DetailsOf collects the details panel data for id.
func DetailsOf(idx *graph.Index, id string) (*Details, bool) {
	node, ok := idx.Node(id)
	if !ok {
		return nil, false
	}

	d := &Details{
		Node:           node,
		Inbound:        make([]LinkedService, 0),
		Outbound:       make([]LinkedService, 0),
		ProducedEvents: sortedCopy(node.ProducedEvents),
		ConsumedEvents: sortedCopy(node.ConsumedEvents),
	}
	for _, edge := range idx.Inbound(id) {
		if edge.Kind == graph.EdgeDependency {
			d.Inbound = append(d.Inbound, LinkedService{ID: edge.Source, Critical: edge.IsCritical()})
		}
	}
	for _, edge := range idx.Outbound(id) {
		if edge.Kind == graph.EdgeDependency {
			d.Outbound = append(d.Outbound, LinkedService{ID: edge.Target, Critical: edge.IsCritical()})
		}
	}
	sortLinks(d.Inbound)
	sortLinks(d.Outbound)
	return d, true
}

func sortLinks(links []LinkedService) {
	sort.SliceStable(links, func(i, j int) bool { return links[i].ID < links[j].ID })
}

func sortedCopy(list []string) []string {
	out := append(make([]string, 0, len(list)), list...)
	sort.Strings(out)
	return out
}
