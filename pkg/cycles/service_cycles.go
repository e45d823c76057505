package cycles

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/service-catalog/pkg/graph"
)

// ServiceCycle is a set of services that transitively depend on each other
type ServiceCycle struct {
	Services []string `json:"services"` // sorted
}

// FindServiceCycles returns the dependency cycles of the catalog, including
// services that list themselves as a dependency. Event flows are not considered.
func FindServiceCycles(idx *graph.Index) []ServiceCycle {
	sccs := topo.TarjanSCC(idx.Directed())

	cycles := make([]ServiceCycle, 0)
	for _, scc := range sccs {
		// Singletons are only cycles with a self-loop, handled below
		if len(scc) < 2 {
			continue
		}
		services := make([]string, 0, len(scc))
		for _, node := range scc {
			if name, ok := idx.NameOf(node.ID()); ok {
				services = append(services, name)
			}
		}
		sort.Strings(services)
		cycles = append(cycles, ServiceCycle{Services: services})
	}

	for _, id := range idx.ServiceIDs {
		if idx.DependsOnItself(id) {
			cycles = append(cycles, ServiceCycle{Services: []string{id}})
		}
	}

	// A self-dependent member of a larger cycle shares its first element
	sort.Slice(cycles, func(i, j int) bool {
		return slices.Compare(cycles[i].Services, cycles[j].Services) < 0
	})
	return cycles
}
