// Package reference holds the static organisation data exposed under /reference.
package reference

import "strings"

// Team is a team and the pillar it belongs to
type Team struct {
	Name   string `json:"name"`
	Pillar string `json:"pillar"`
}

var pillarOrder = []string{"Account", "Data"}

var pillars = map[string][]string{
	"Account": {"Newton", "Einstein", "Curie", "Darwin", "Fermi"},
	"Data":    {"Data Science", "Data Insights", "Data Platforms", "Data Governance"},
}

var domains = []string{"domaina", "domainb", "engineering"}

// Pillars returns a copy of the pillar -> teams mapping.
func Pillars() map[string][]string {
	out := make(map[string][]string, len(pillars))
	for pillar, teams := range pillars {
		out[pillar] = append([]string(nil), teams...)
	}
	return out
}

// Teams lists every team with its pillar, pillar by pillar.
func Teams() []Team {
	var teams []Team
	for _, pillar := range pillarOrder {
		for _, name := range pillars[pillar] {
			teams = append(teams, Team{Name: name, Pillar: pillar})
		}
	}
	return teams
}

// Domains returns the known service name domains.
func Domains() []string {
	return append([]string(nil), domains...)
}

// IsTeamInPillar reports whether team belongs to pillar. Unknown pillars hold no teams.
func IsTeamInPillar(pillar, team string) bool {
	for _, t := range pillars[pillar] {
		if t == team {
			return true
		}
	}
	return false
}

// ValidServiceName reports whether name is prefixed with a known domain,
// as in "domaina.orders".
func ValidServiceName(name string) bool {
	for _, domain := range domains {
		if strings.HasPrefix(name, domain+".") {
			return true
		}
	}
	return false
}
