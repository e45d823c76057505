// Package output renders catalog reports for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/service-catalog/pkg/analytics"
	"github.com/ritzau/service-catalog/pkg/graph"
)

// PrintSummary writes a colorized analytics report. Colors follow
// color.NoColor, so redirected output stays plain.
func PrintSummary(w io.Writer, title string, s analytics.Summary) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Fprintln(w, "Service Catalog - "+title)
	bold.Fprintln(w, strings.Repeat("=", len("Service Catalog - "+title)))
	fmt.Fprintf(w, "Services: %d", s.Services)
	if s.MissingServices > 0 {
		yellow.Fprintf(w, " (+%d referenced but undefined)", s.MissingServices)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Edges: %d dependency, %d event\n", s.DependencyEdges, s.EventEdges)
	fmt.Fprintf(w, "Max inbound dependencies: %d\n\n", s.MaxWeight)

	printRanked(w, bold, cyan, "TOP EVENT PUBLISHERS (by consumers)", s.TopEventConsumers)
	printRanked(w, bold, cyan, "MOST DEPENDED ON", s.TopDependents)

	bold.Fprintln(w, "OLDEST UPDATED")
	if len(s.OldestUpdated) == 0 {
		fmt.Fprintln(w, "  (no dated services)")
	}
	for _, a := range s.OldestUpdated {
		c := green
		switch a.Staleness {
		case graph.StalenessStale:
			c = red
		case graph.StalenessAging:
			c = yellow
		}
		c.Fprintf(w, "  %-40s %5d days  (%s)\n", a.ID, a.DaysAgo, a.Staleness)
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "ORPHAN PUBLISHED EVENTS")
	if len(s.OrphanEvents) == 0 {
		green.Fprintln(w, "  ✓ Every published event has a consumer")
	}
	for _, o := range s.OrphanEvents {
		yellow.Fprintf(w, "  %s\n", o.EventName)
		cyan.Fprintf(w, "    Producers: %s\n", strings.Join(o.Producers, ", "))
	}
	fmt.Fprintln(w)

	bold.Fprintln(w, "DEPENDENCY CYCLES")
	if len(s.Cycles) == 0 {
		green.Fprintln(w, "  ✓ No dependency cycles")
	}
	for _, c := range s.Cycles {
		members := append(append([]string{}, c.Services...), c.Services[0])
		red.Fprintf(w, "  %s\n", strings.Join(members, " -> "))
	}
}

func printRanked(w io.Writer, bold, value *color.Color, heading string, ranked []analytics.Ranked) {
	bold.Fprintln(w, heading)
	if len(ranked) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, r := range ranked {
		fmt.Fprintf(w, "  %d. ", i+1)
		value.Fprintf(w, "%-40s", r.ID)
		fmt.Fprintf(w, " %d\n", r.Count)
	}
	fmt.Fprintln(w)
}
