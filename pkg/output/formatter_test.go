package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/service-catalog/pkg/analytics"
	"github.com/ritzau/service-catalog/pkg/cycles"
	"github.com/ritzau/service-catalog/pkg/graph"
)

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintSummary(&buf, "bundled metadata", analytics.Summary{
		Services:          3,
		MissingServices:   1,
		DependencyEdges:   4,
		EventEdges:        2,
		TopEventConsumers: []analytics.Ranked{{ID: "orders", Count: 3}},
		OldestUpdated:     []analytics.Aged{{ID: "legacy", DaysAgo: 400, Staleness: graph.StalenessStale}},
		OrphanEvents:      []analytics.OrphanEvent{{EventName: "E", Producers: []string{"W", "X"}}},
		Cycles:            []cycles.ServiceCycle{{Services: []string{"a", "b"}}},
	})

	out := buf.String()
	for _, want := range []string{
		"Service Catalog - bundled metadata",
		"Services: 3 (+1 referenced but undefined)",
		"1. orders",
		"legacy",
		"400 days  (stale)",
		"Producers: W, X",
		"a -> b -> a",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "MOST DEPENDED ON\n  (none)") {
		t.Errorf("Expected empty ranking placeholder:\n%s", out)
	}
}
