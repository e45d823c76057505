// Package analytics derives read-only ranking views from an indexed catalog graph.
// Every function is pure and recomputed on demand.
package analytics

import (
	"sort"
	"time"

	"github.com/ritzau/service-catalog/pkg/cycles"
	"github.com/ritzau/service-catalog/pkg/graph"
)

// DefaultLimit is the length of the top-N lists
const DefaultLimit = 5

// Ranked is a service with the count it was ranked by
type Ranked struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Aged is a service with the whole days since its last update
type Aged struct {
	ID        string          `json:"id"`
	DaysAgo   int             `json:"daysAgo"`
	UpdatedAt string          `json:"updatedAt"`
	Staleness graph.Staleness `json:"staleness"`
}

// OrphanEvent is an event that is published but never consumed
type OrphanEvent struct {
	EventName string   `json:"eventName"`
	Producers []string `json:"producers"`
}

// TopByEventConsumers ranks services by how many other services consume the
// events they produce, summed over all produced events.
func TopByEventConsumers(idx *graph.Index, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(idx.Nodes))
	for _, node := range idx.Nodes {
		total := 0
		for _, eventName := range node.ProducedEvents {
			for _, consumer := range idx.Consumers(eventName) {
				if consumer != node.ID {
					total++
				}
			}
		}
		if total > 0 {
			ranked = append(ranked, Ranked{ID: node.ID, Count: total})
		}
	}
	return topN(ranked, limit)
}

// TopByDependents ranks services by inbound dependency edges.
func TopByDependents(idx *graph.Index, limit int) []Ranked {
	inbound := make(map[string]int, len(idx.Nodes))
	for _, edge := range idx.Edges {
		if edge.Kind == graph.EdgeDependency {
			inbound[edge.Target]++
		}
	}

	ranked := make([]Ranked, 0, len(inbound))
	for _, node := range idx.Nodes {
		if count := inbound[node.ID]; count > 0 {
			ranked = append(ranked, Ranked{ID: node.ID, Count: count})
		}
	}
	return topN(ranked, limit)
}

// OldestUpdated ranks services by days since metadata.updatedAt, oldest first.
// Services without a parseable date are left out.
func OldestUpdated(idx *graph.Index, now time.Time, limit int) []Aged {
	aged := make([]Aged, 0, len(idx.Nodes))
	for _, node := range idx.Nodes {
		days, ok := graph.DaysSince(node.UpdatedAt, now)
		if !ok {
			continue
		}
		aged = append(aged, Aged{
			ID:        node.ID,
			DaysAgo:   days,
			UpdatedAt: node.UpdatedAt,
			Staleness: graph.StalenessOf(node.UpdatedAt, now),
		})
	}

	sort.SliceStable(aged, func(i, j int) bool {
		if aged[i].DaysAgo != aged[j].DaysAgo {
			return aged[i].DaysAgo > aged[j].DaysAgo
		}
		return aged[i].ID < aged[j].ID
	})
	if limit > 0 && len(aged) > limit {
		aged = aged[:limit]
	}
	return aged
}

// OrphanPublishedEvents lists events with producers but no consumers.
func OrphanPublishedEvents(idx *graph.Index) []OrphanEvent {
	orphans := make([]OrphanEvent, 0)
	for _, eventName := range idx.EventNames {
		producers := idx.Producers(eventName)
		if len(producers) == 0 || len(idx.Consumers(eventName)) > 0 {
			continue
		}
		sorted := append([]string(nil), producers...)
		sort.Strings(sorted)
		orphans = append(orphans, OrphanEvent{EventName: eventName, Producers: sorted})
	}
	// EventNames is already sorted
	return orphans
}

func topN(ranked []Ranked, limit int) []Ranked {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ID < ranked[j].ID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Summary bundles every derived view for one index
type Summary struct {
	Services          int                   `json:"services"`
	MissingServices   int                   `json:"missingServices"`
	DependencyEdges   int                   `json:"dependencyEdges"`
	EventEdges        int                   `json:"eventEdges"`
	MaxWeight         int                   `json:"maxWeight"`
	TopEventConsumers []Ranked              `json:"topByEventConsumers"`
	TopDependents     []Ranked              `json:"topByDependents"`
	OldestUpdated     []Aged                `json:"oldestUpdated"`
	OrphanEvents      []OrphanEvent         `json:"orphanPublishedEvents"`
	Cycles            []cycles.ServiceCycle `json:"dependencyCycles"`
}

// Summarize computes all views with the given list limit (<= 0 means DefaultLimit).
func Summarize(idx *graph.Index, now time.Time, limit int) Summary {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s := Summary{
		MaxWeight:         idx.MaxWeight,
		TopEventConsumers: TopByEventConsumers(idx, limit),
		TopDependents:     TopByDependents(idx, limit),
		OldestUpdated:     OldestUpdated(idx, now, limit),
		OrphanEvents:      OrphanPublishedEvents(idx),
		Cycles:            DependencyCycles(idx),
	}
	for _, node := range idx.Nodes {
		if node.Missing {
			s.MissingServices++
		} else {
			s.Services++
		}
	}
	for _, edge := range idx.Edges {
		switch edge.Kind {
		case graph.EdgeDependency:
			s.DependencyEdges++
		case graph.EdgeEvent:
			s.EventEdges++
		}
	}
	return s
}
