package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/service-catalog/pkg/model"
)

// EdgeKind distinguishes declared dependencies from derived event flows
type EdgeKind string

const (
	EdgeDependency EdgeKind = "dependency" // service -> declared dependency
	EdgeEvent      EdgeKind = "event"      // producer -> consumer of a shared event
)

const (
	defaultServiceType  = "service"
	defaultExternalType = "external"
)

// Node is a service, or a dependency target that has no record of its own.
type Node struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Type           string    `json:"type"`
	Domain         string    `json:"domain,omitempty"`
	Team           string    `json:"team,omitempty"`
	Weight         int       `json:"weight"` // inbound dependency edges
	ProducedEvents []string  `json:"producedEvents"`
	ConsumedEvents []string  `json:"consumedEvents"`
	Missing        bool      `json:"missing"` // referenced but never defined
	UpdatedAt      string    `json:"updatedAt,omitempty"`
	Staleness      Staleness `json:"staleness,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	Kind      EdgeKind `json:"kind"`
	Critical  *bool    `json:"critical,omitempty"`
	Role      string   `json:"role,omitempty"`
	Protocol  string   `json:"protocol,omitempty"`
	EventName string   `json:"eventName,omitempty"`
}

// IsCritical reports whether a dependency edge is critical.
func (e *Edge) IsCritical() bool {
	return e.Critical != nil && *e.Critical
}

// Index is the graph derived from one pass over a list of services.
// It is rebuilt from scratch for every input and never mutated afterwards.
type Index struct {
	Nodes      []*Node  `json:"nodes"`
	Edges      []*Edge  `json:"edges"`
	MaxWeight  int      `json:"maxWeight"`
	EventNames []string `json:"eventNames"`
	ServiceIDs []string `json:"serviceIds"`

	nodes     map[string]*Node
	edges     map[string]int  // edge id -> position in Edges
	keys      map[edgeKey]int // declaration -> position in Edges
	producers map[string][]string
	consumers map[string][]string

	directed  *simple.DirectedGraph
	ids       map[string]int64
	names     map[int64]string
	selfLoops map[string]bool
}

// Build indexes services using the current time for staleness bands.
func Build(services []model.Service) *Index {
	return BuildAt(services, time.Now())
}

// BuildAt indexes services, classifying staleness relative to now.
func BuildAt(services []model.Service, now time.Time) *Index {
	idx := &Index{
		Nodes:     make([]*Node, 0, len(services)),
		Edges:     make([]*Edge, 0),
		nodes:     make(map[string]*Node),
		edges:     make(map[string]int),
		keys:      make(map[edgeKey]int),
		producers: make(map[string][]string),
		consumers: make(map[string][]string),
		directed:  simple.NewDirectedGraph(),
		ids:       make(map[string]int64),
		names:     make(map[int64]string),
		selfLoops: make(map[string]bool),
	}

	defined := make(map[string]bool, len(services))
	for i := range services {
		if name := services[i].Name; !blank(name) {
			defined[name] = true
		}
	}

	for i := range services {
		svc := &services[i]
		id := svc.Name
		if blank(id) {
			continue
		}

		node := idx.ensureNode(id)
		node.Label = id
		node.Type = firstNonEmpty(svc.PrimaryRole(), defaultServiceType)
		node.Domain = svc.Domain
		node.Team = svc.Team
		node.Missing = false
		node.UpdatedAt = ""
		if svc.Metadata != nil {
			node.UpdatedAt = svc.Metadata.UpdatedAt
		}
		node.Staleness = StalenessOf(node.UpdatedAt, now)

		for _, dep := range svc.AllDependencies() {
			target := dep.Name
			if blank(target) {
				continue
			}
			if _, exists := idx.nodes[target]; !exists {
				inferred := idx.ensureNode(target)
				inferred.Type = firstNonEmpty(dep.Role, defaultExternalType)
				inferred.Missing = !defined[target]
			}
			idx.addDependencyEdge(id, target, dep)
		}

		for _, ev := range svc.ProducedEvents() {
			name := ev.Name
			if blank(name) {
				continue
			}
			node.ProducedEvents = appendUnique(node.ProducedEvents, name)
			idx.producers[name] = appendUnique(idx.producers[name], id)
		}
		for _, ev := range svc.ConsumedEvents() {
			name := ev.Name
			if blank(name) {
				continue
			}
			node.ConsumedEvents = appendUnique(node.ConsumedEvents, name)
			idx.consumers[name] = appendUnique(idx.consumers[name], id)
		}
	}

	idx.EventNames = idx.collectEventNames()
	for _, eventName := range idx.EventNames {
		for _, p := range idx.producers[eventName] {
			for _, c := range idx.consumers[eventName] {
				if p == c {
					continue
				}
				idx.putEdge(edgeKey{EdgeEvent, p, c, eventName}, &Edge{
					ID:        "evt-" + eventName + "-" + p + "-" + c,
					Source:    p,
					Target:    c,
					Kind:      EdgeEvent,
					EventName: eventName,
				})
			}
		}
	}

	idx.computeWeights()

	idx.ServiceIDs = make([]string, 0, len(idx.nodes))
	for id := range idx.nodes {
		idx.ServiceIDs = append(idx.ServiceIDs, id)
	}
	sort.Strings(idx.ServiceIDs)

	return idx
}

func (idx *Index) ensureNode(id string) *Node {
	if node, exists := idx.nodes[id]; exists {
		return node
	}
	node := &Node{
		ID:             id,
		Label:          id,
		ProducedEvents: []string{},
		ConsumedEvents: []string{},
	}
	idx.nodes[id] = node
	idx.Nodes = append(idx.Nodes, node)

	gid := int64(len(idx.ids))
	idx.ids[id] = gid
	idx.names[gid] = id
	idx.directed.AddNode(simple.Node(gid))
	return node
}

func (idx *Index) addDependencyEdge(source, target string, dep model.DeclaredDependency) {
	critical := dep.Critical
	suffix := "noncritical"
	if critical {
		suffix = "critical"
	}
	idx.putEdge(edgeKey{EdgeDependency, source, target, suffix}, &Edge{
		ID:       "dep-" + source + "-" + target + "-" + suffix,
		Source:   source,
		Target:   target,
		Kind:     EdgeDependency,
		Critical: &critical,
		Role:     dep.Role,
		Protocol: dep.Protocol,
	})

	if source == target {
		// gonum's simple graphs reject self edges
		idx.selfLoops[source] = true
		return
	}
	from, to := idx.ids[source], idx.ids[target]
	if !idx.directed.HasEdgeFromTo(from, to) {
		idx.directed.SetEdge(idx.directed.NewEdge(idx.directed.Node(from), idx.directed.Node(to)))
	}
}

// edgeKey identifies a declaration. Only identical declarations collide;
// qualifier is the criticality of a dependency or the name of an event.
type edgeKey struct {
	kind      EdgeKind
	source    string
	target    string
	qualifier string
}

// putEdge inserts an edge; an existing edge with the same key is replaced in
// place and keeps its id. Different keys whose readable ids coincide, such as
// "a-b" -> "c" and "a" -> "b-c", get a numeric suffix in insertion order.
func (idx *Index) putEdge(key edgeKey, edge *Edge) {
	if pos, exists := idx.keys[key]; exists {
		edge.ID = idx.Edges[pos].ID
		idx.Edges[pos] = edge
		return
	}

	base := edge.ID
	for n := 2; ; n++ {
		if _, taken := idx.edges[edge.ID]; !taken {
			break
		}
		edge.ID = fmt.Sprintf("%s~%d", base, n)
	}

	pos := len(idx.Edges)
	idx.keys[key] = pos
	idx.edges[edge.ID] = pos
	idx.Edges = append(idx.Edges, edge)
}

func (idx *Index) computeWeights() {
	inbound := make(map[string]int)
	for _, edge := range idx.Edges {
		if edge.Kind == EdgeDependency {
			inbound[edge.Target]++
		}
	}
	idx.MaxWeight = 0
	for _, node := range idx.Nodes {
		node.Weight = inbound[node.ID]
		if node.Weight > idx.MaxWeight {
			idx.MaxWeight = node.Weight
		}
	}
}

func (idx *Index) collectEventNames() []string {
	seen := make(map[string]bool, len(idx.producers)+len(idx.consumers))
	names := make([]string, 0, len(seen))
	for name := range idx.producers {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range idx.consumers {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// blank names are skipped; any other name is used exactly as given
func blank(name string) bool {
	return strings.TrimSpace(name) == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
