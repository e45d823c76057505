package analytics

import (
	"time"

	"github.com/ritzau/service-catalog/pkg/cycles"
	"github.com/ritzau/service-catalog/pkg/graph"
)

// StalenessBand classifies updatedAt against now. Missing or unparseable
// dates count as infinitely old.
func StalenessBand(updatedAt string, now time.Time) graph.Staleness {
	return graph.StalenessOf(updatedAt, now)
}

// DaysSince returns whole days since updatedAt, or false when it is unknown.
func DaysSince(updatedAt string, now time.Time) (int, bool) {
	return graph.DaysSince(updatedAt, now)
}

// DependencyCycles lists the dependency cycles of the index.
func DependencyCycles(idx *graph.Index) []cycles.ServiceCycle {
	return cycles.FindServiceCycles(idx)
}
