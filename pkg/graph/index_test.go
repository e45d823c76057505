package graph

import (
	"reflect"
	"testing"
	"time"

	"github.com/ritzau/service-catalog/pkg/model"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func svc(name string) model.Service {
	return model.Service{Name: name}
}

func withDeps(s model.Service, critical, nonCritical []string) model.Service {
	deps := &model.Dependencies{}
	for _, n := range critical {
		deps.Critical = append(deps.Critical, model.Dependency{Name: n})
	}
	for _, n := range nonCritical {
		deps.NonCritical = append(deps.NonCritical, model.Dependency{Name: n})
	}
	s.Dependencies = deps
	return s
}

func withEvents(s model.Service, producing, consuming []string) model.Service {
	ev := &model.Events{}
	for _, n := range producing {
		ev.Producing = append(ev.Producing, model.Event{Name: n})
	}
	for _, n := range consuming {
		ev.Consuming = append(ev.Consuming, model.Event{Name: n})
	}
	s.Events = ev
	return s
}

func TestBuildEmpty(t *testing.T) {
	idx := BuildAt(nil, testNow)

	if len(idx.Nodes) != 0 || len(idx.Edges) != 0 {
		t.Errorf("Expected empty graph, got %d nodes and %d edges", len(idx.Nodes), len(idx.Edges))
	}
	if idx.MaxWeight != 0 {
		t.Errorf("Expected max weight 0, got %d", idx.MaxWeight)
	}
}

func TestWeightCountsInboundDependencies(t *testing.T) {
	services := []model.Service{
		withDeps(svc("A"), []string{"B"}, nil),
		withDeps(svc("C"), nil, []string{"B"}),
		svc("B"),
	}

	idx := BuildAt(services, testNow)

	b, ok := idx.Node("B")
	if !ok {
		t.Fatal("Node B not found")
	}
	if b.Weight != 2 {
		t.Errorf("Expected weight(B) = 2, got %d", b.Weight)
	}
	if idx.MaxWeight != 2 {
		t.Errorf("Expected max weight 2, got %d", idx.MaxWeight)
	}

	critical, ok := idx.Edge("dep-A-B-critical")
	if !ok || !critical.IsCritical() {
		t.Errorf("Expected critical edge A->B, got %+v", critical)
	}
	nonCritical, ok := idx.Edge("dep-C-B-noncritical")
	if !ok || nonCritical.IsCritical() {
		t.Errorf("Expected non-critical edge C->B, got %+v", nonCritical)
	}
}

func TestInferredDependencyNodes(t *testing.T) {
	services := []model.Service{
		withDeps(svc("A"), []string{"payments-gateway"}, nil),
		withDeps(svc("B"), nil, []string{"payments-gateway", "C"}),
		svc("C"),
	}

	idx := BuildAt(services, testNow)

	count := 0
	for _, n := range idx.Nodes {
		if n.ID == "payments-gateway" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Expected exactly one payments-gateway node, got %d", count)
	}

	ext, _ := idx.Node("payments-gateway")
	if !ext.Missing {
		t.Error("Expected external dependency to be marked missing")
	}
	if ext.Type != "external" {
		t.Errorf("Expected type external, got %s", ext.Type)
	}

	// C is referenced before its own record but is defined in the input
	c, _ := idx.Node("C")
	if c.Missing {
		t.Error("Expected C not to be missing")
	}
	if c.Type != "service" {
		t.Errorf("Expected C to take its own type, got %s", c.Type)
	}
}

func TestEventEdgesCrossProduct(t *testing.T) {
	services := []model.Service{
		withEvents(svc("P1"), []string{"OrderPlaced"}, nil),
		withEvents(svc("P2"), []string{"OrderPlaced"}, []string{"OrderPlaced"}),
		withEvents(svc("C1"), nil, []string{"OrderPlaced"}),
		withEvents(svc("C2"), nil, []string{"OrderPlaced"}),
	}

	idx := BuildAt(services, testNow)

	// producers {P1,P2} x consumers {P2,C1,C2} minus the P2->P2 self loop
	events := 0
	for _, e := range idx.Edges {
		if e.Kind == EdgeEvent {
			events++
			if e.Source == e.Target {
				t.Errorf("Unexpected self-loop event edge %s", e.ID)
			}
			if e.EventName != "OrderPlaced" {
				t.Errorf("Unexpected event name %q", e.EventName)
			}
		}
	}
	if events != 5 {
		t.Errorf("Expected 5 event edges, got %d", events)
	}
}

func TestEventNamesAreCaseSensitive(t *testing.T) {
	services := []model.Service{
		withEvents(svc("P"), []string{"UserCreated"}, nil),
		withEvents(svc("C"), nil, []string{"usercreated"}),
	}

	idx := BuildAt(services, testNow)

	for _, e := range idx.Edges {
		if e.Kind == EdgeEvent {
			t.Errorf("Expected no event edge between differently cased names, got %s", e.ID)
		}
	}
	want := []string{"UserCreated", "usercreated"}
	if !reflect.DeepEqual(idx.EventNames, want) {
		t.Errorf("EventNames = %v, want %v", idx.EventNames, want)
	}
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	nameless := withDeps(svc(""), []string{"X"}, nil)
	services := []model.Service{
		nameless,
		withDeps(svc("A"), []string{"", "B"}, nil),
		withEvents(svc("B"), []string{"", "  "}, []string{""}),
	}

	idx := BuildAt(services, testNow)

	if _, ok := idx.Node("X"); ok {
		t.Error("Dependencies of a nameless service should not be processed")
	}
	if len(idx.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(idx.Nodes))
	}
	if len(idx.Edges) != 1 {
		t.Errorf("Expected 1 edge, got %d", len(idx.Edges))
	}
	if len(idx.EventNames) != 0 {
		t.Errorf("Expected no events, got %v", idx.EventNames)
	}
}

func TestSelfReferences(t *testing.T) {
	s := withDeps(svc("A"), []string{"A"}, nil)
	s.Events = &model.Events{
		Producing: []model.Event{{Name: "Tick"}},
		Consuming: []model.Event{{Name: "Tick"}},
	}

	idx := BuildAt([]model.Service{s}, testNow)

	if len(idx.Nodes) != 1 {
		t.Fatalf("Expected one node, got %d", len(idx.Nodes))
	}
	for _, e := range idx.Edges {
		if e.Kind == EdgeEvent {
			t.Errorf("Unexpected self-loop event edge %s", e.ID)
		}
	}
	if !idx.DependsOnItself("A") {
		t.Error("Expected A to be recorded as depending on itself")
	}
	a, _ := idx.Node("A")
	if a.Weight != 1 {
		t.Errorf("Expected self dependency to count as inbound, got weight %d", a.Weight)
	}
}

func TestDuplicateDeclarationsCollide(t *testing.T) {
	s := withDeps(svc("A"), []string{"B", "B"}, []string{"B"})

	idx := BuildAt([]model.Service{s}, testNow)

	if len(idx.Edges) != 2 {
		t.Errorf("Expected 2 distinct edges, got %d", len(idx.Edges))
	}
	b, _ := idx.Node("B")
	if b.Weight != 2 {
		t.Errorf("Expected weight to follow the de-duplicated edges, got %d", b.Weight)
	}
}

func TestNamesAreExact(t *testing.T) {
	services := []model.Service{
		withDeps(svc("A"), []string{" B"}, nil),
		svc("B"),
		withEvents(svc(" A"), []string{"Paid "}, nil),
		withEvents(svc("C"), nil, []string{"Paid"}),
	}

	idx := BuildAt(services, testNow)

	if _, ok := idx.Node(" A"); !ok {
		t.Error("Expected \" A\" to be its own node")
	}
	inferred, ok := idx.Node(" B")
	if !ok || !inferred.Missing {
		t.Errorf("Expected \" B\" to be an inferred missing node, got %+v", inferred)
	}
	b, _ := idx.Node("B")
	if b.Weight != 0 {
		t.Errorf("Expected no dependency on \"B\", got weight %d", b.Weight)
	}
	for _, e := range idx.Edges {
		if e.Kind == EdgeEvent {
			t.Errorf("Expected no event edge between \"Paid \" and \"Paid\", got %s", e.ID)
		}
	}
}

func TestHyphenatedNamesDoNotCollide(t *testing.T) {
	services := []model.Service{
		withDeps(svc("a-b"), []string{"c"}, nil),
		withDeps(svc("a"), []string{"b-c"}, nil),
		withEvents(svc("b-c"), []string{"a"}, nil),
		withEvents(svc("c"), []string{"a-b"}, nil),
		withEvents(svc("x"), nil, []string{"a", "a-b"}),
	}

	idx := BuildAt(services, testNow)

	deps, events := 0, 0
	seen := make(map[string]bool)
	for _, e := range idx.Edges {
		if seen[e.ID] {
			t.Errorf("Duplicate edge id %q", e.ID)
		}
		seen[e.ID] = true
		switch e.Kind {
		case EdgeDependency:
			deps++
		case EdgeEvent:
			events++
		}
	}
	if deps != 2 {
		t.Errorf("Expected 2 dependency edges, got %d", deps)
	}
	if events != 2 {
		t.Errorf("Expected 2 event edges, got %d", events)
	}

	c, _ := idx.Node("c")
	if c.Weight != 1 {
		t.Errorf("Expected weight(c) = 1, got %d", c.Weight)
	}
	bc, _ := idx.Node("b-c")
	if bc.Weight != 1 {
		t.Errorf("Expected weight(b-c) = 1, got %d", bc.Weight)
	}

	first, ok := idx.Edge("dep-a-b-c-critical")
	if !ok || first.Source != "a-b" {
		t.Errorf("Expected the first declaration to keep the plain id, got %+v", first)
	}
	second, ok := idx.Edge("dep-a-b-c-critical~2")
	if !ok || second.Source != "a" || second.Target != "b-c" {
		t.Errorf("Expected the second declaration under a suffixed id, got %+v", second)
	}
}

func TestLaterRecordsOverwriteFields(t *testing.T) {
	first := svc("A")
	first.Domain = "old"
	second := svc("A")
	second.Domain = "new"
	second.Contracts = []model.Contract{{Role: "edge-gateway"}}

	idx := BuildAt([]model.Service{first, second}, testNow)

	if len(idx.Nodes) != 1 {
		t.Fatalf("Expected one node, got %d", len(idx.Nodes))
	}
	a, _ := idx.Node("A")
	if a.Domain != "new" || a.Type != "edge-gateway" {
		t.Errorf("Expected later record to win, got domain=%s type=%s", a.Domain, a.Type)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	services := []model.Service{
		withEvents(withDeps(svc("A"), []string{"B"}, []string{"ext"}), []string{"E1", "E2"}, nil),
		withEvents(svc("B"), nil, []string{"E1"}),
		withEvents(svc("C"), []string{"E2"}, []string{"E2", "E1"}),
	}

	first := BuildAt(services, testNow)
	second := BuildAt(services, testNow)

	if !reflect.DeepEqual(edgeIDs(first), edgeIDs(second)) {
		t.Errorf("Edge ids differ between builds:\n%v\n%v", edgeIDs(first), edgeIDs(second))
	}
	if !reflect.DeepEqual(first.ServiceIDs, second.ServiceIDs) {
		t.Errorf("Service ids differ: %v vs %v", first.ServiceIDs, second.ServiceIDs)
	}
	wantIDs := []string{"A", "B", "C", "ext"}
	if !reflect.DeepEqual(first.ServiceIDs, wantIDs) {
		t.Errorf("ServiceIDs = %v, want %v", first.ServiceIDs, wantIDs)
	}
}

func TestDependencyGraph(t *testing.T) {
	services := []model.Service{
		withDeps(svc("A"), []string{"B"}, []string{"B", "C"}),
		svc("B"),
	}

	idx := BuildAt(services, testNow)

	deps := idx.DependenciesOf("A")
	if len(deps) != 2 {
		t.Errorf("Expected A to depend on 2 services, got %v", deps)
	}
	if idx.directed.Edges().Len() != 2 {
		t.Errorf("Expected 2 edges in dependency graph, got %d", idx.directed.Edges().Len())
	}
}

func TestStalenessBands(t *testing.T) {
	tests := []struct {
		updatedAt string
		want      Staleness
	}{
		{"2025-06-30", StalenessFresh},
		{"2025-05-30", StalenessFresh}, // 31 days
		{"2025-05-29", StalenessAging},
		{"2024-12-29", StalenessAging}, // 183 days
		{"2024-12-28", StalenessStale},
		{"", StalenessStale},
		{"not-a-date", StalenessStale},
		{"2025-06-01T08:00:00Z", StalenessFresh},
	}

	for _, tt := range tests {
		if got := StalenessOf(tt.updatedAt, testNow); got != tt.want {
			t.Errorf("StalenessOf(%q) = %s, want %s", tt.updatedAt, got, tt.want)
		}
	}
}

func edgeIDs(idx *Index) []string {
	ids := make([]string, len(idx.Edges))
	for i, e := range idx.Edges {
		ids[i] = e.ID
	}
	return ids
}
