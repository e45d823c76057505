package graph

import "gonum.org/v1/gonum/graph"

// Node returns the node with the given id.
func (idx *Index) Node(id string) (*Node, bool) {
	node, ok := idx.nodes[id]
	return node, ok
}

// Edge returns the edge with the given id.
func (idx *Index) Edge(id string) (*Edge, bool) {
	pos, ok := idx.edges[id]
	if !ok {
		return nil, false
	}
	return idx.Edges[pos], true
}

// Outbound returns the edges whose source is id.
func (idx *Index) Outbound(id string) []*Edge {
	var out []*Edge
	for _, edge := range idx.Edges {
		if edge.Source == id {
			out = append(out, edge)
		}
	}
	return out
}

// Inbound returns the edges whose target is id.
func (idx *Index) Inbound(id string) []*Edge {
	var in []*Edge
	for _, edge := range idx.Edges {
		if edge.Target == id {
			in = append(in, edge)
		}
	}
	return in
}

// Producers returns the services producing eventName, in first-seen order.
func (idx *Index) Producers(eventName string) []string {
	return idx.producers[eventName]
}

// Consumers returns the services consuming eventName, in first-seen order.
func (idx *Index) Consumers(eventName string) []string {
	return idx.consumers[eventName]
}

// Directed returns the service dependency graph (event flows excluded).
func (idx *Index) Directed() graph.Directed {
	return idx.directed
}

// IDOf returns the graph node id of a service.
func (idx *Index) IDOf(name string) (int64, bool) {
	id, ok := idx.ids[name]
	return id, ok
}

// NameOf returns the service behind a graph node id.
func (idx *Index) NameOf(id int64) (string, bool) {
	name, ok := idx.names[id]
	return name, ok
}

// DependsOnItself reports whether a service declares itself as a dependency.
func (idx *Index) DependsOnItself(name string) bool {
	return idx.selfLoops[name]
}

// DependenciesOf returns the distinct services name depends on.
func (idx *Index) DependenciesOf(name string) []string {
	id, ok := idx.ids[name]
	if !ok {
		return nil
	}

	var deps []string
	iter := idx.directed.From(id)
	for iter.Next() {
		if dep, ok := idx.names[iter.Node().ID()]; ok {
			deps = append(deps, dep)
		}
	}
	return deps
}
