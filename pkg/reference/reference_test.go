package reference

import "testing"

func TestTeams(t *testing.T) {
	teams := Teams()
	if len(teams) != 9 {
		t.Fatalf("Expected 9 teams, got %d", len(teams))
	}
	if teams[0] != (Team{Name: "Newton", Pillar: "Account"}) {
		t.Errorf("Expected Newton first, got %+v", teams[0])
	}
	if last := teams[len(teams)-1]; last.Pillar != "Data" {
		t.Errorf("Expected Data teams last, got %+v", last)
	}
}

func TestIsTeamInPillar(t *testing.T) {
	tests := []struct {
		pillar, team string
		want         bool
	}{
		{"Account", "Curie", true},
		{"Data", "Data Science", true},
		{"Data", "Curie", false},
		{"Marketing", "Curie", false},
		{"account", "Curie", false},
	}
	for _, tt := range tests {
		if got := IsTeamInPillar(tt.pillar, tt.team); got != tt.want {
			t.Errorf("IsTeamInPillar(%q, %q) = %v, want %v", tt.pillar, tt.team, got, tt.want)
		}
	}
}

func TestValidServiceName(t *testing.T) {
	tests := map[string]bool{
		"domaina.orders":   true,
		"engineering.ci":   true,
		"domainb.":         true,
		"domaina":          false,
		"domainc.orders":   false,
		"xdomaina.orders":  false,
		"orders.domaina.x": false,
	}
	for name, want := range tests {
		if got := ValidServiceName(name); got != want {
			t.Errorf("ValidServiceName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPillarsIsACopy(t *testing.T) {
	p := Pillars()
	p["Account"][0] = "Changed"
	if Pillars()["Account"][0] != "Newton" {
		t.Error("Pillars() must not expose internal state")
	}
}
