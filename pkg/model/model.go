package model

import (
	"encoding/json"
	"strings"
)

// Service is a single record of the service catalog.
type Service struct {
	Name   string `json:"name" validate:"notblank"`
	Domain string `json:"domain,omitempty"`
	Team   string `json:"team,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Repo   string `json:"repo,omitempty"`
	Vision string `json:"vision,omitempty"` // Free text

	Contracts    []Contract    `json:"contracts,omitempty" validate:"omitempty,dive"`
	Dependencies *Dependencies `json:"dependencies,omitempty"`
	Events       *Events       `json:"events,omitempty"`

	// Metadata is server-owned in the catalog API and optional in metadata files
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Dependencies groups the declared service dependencies by criticality
type Dependencies struct {
	Critical    []Dependency `json:"critical,omitempty" validate:"omitempty,dive"`
	NonCritical []Dependency `json:"non-critical,omitempty" validate:"omitempty,dive"`
}

// Events groups the events a service emits and reacts to
type Events struct {
	Producing []Event `json:"producing,omitempty" validate:"omitempty,dive"`
	Consuming []Event `json:"consuming,omitempty" validate:"omitempty,dive"`
}

// Metadata holds server-assigned bookkeeping (dates are yyyy-mm-dd)
type Metadata struct {
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	Version   string `json:"version"` // "v1", "v2", ...
}

// Contract describes an interface a service exposes.
// Unknown members are kept in Extra and written back out.
type Contract struct {
	Role     string                     `json:"role,omitempty"`
	Protocol string                     `json:"protocol,omitempty"`
	URL      string                     `json:"url,omitempty"`
	Extra    map[string]json.RawMessage `json:"-"`
}

// Dependency is a declared edge from a service to another (possibly external) service.
type Dependency struct {
	Name     string                     `json:"name" validate:"notblank"`
	Role     string                     `json:"role,omitempty"`
	Protocol string                     `json:"protocol,omitempty"`
	Extra    map[string]json.RawMessage `json:"-"`
}

// Event is a named asynchronous signal.
type Event struct {
	Name        string                     `json:"name" validate:"notblank"`
	Description string                     `json:"description,omitempty"`
	Extra       map[string]json.RawMessage `json:"-"`
}

// DeclaredDependency is a dependency together with its criticality flag
type DeclaredDependency struct {
	Dependency
	Critical bool
}

// PrimaryRole returns the role of the first contract, or "" when there is none.
func (s *Service) PrimaryRole() string {
	if len(s.Contracts) == 0 {
		return ""
	}
	return s.Contracts[0].Role
}

// AllDependencies returns critical dependencies first, then non-critical ones.
func (s *Service) AllDependencies() []DeclaredDependency {
	if s.Dependencies == nil {
		return nil
	}
	all := make([]DeclaredDependency, 0, len(s.Dependencies.Critical)+len(s.Dependencies.NonCritical))
	for _, d := range s.Dependencies.Critical {
		all = append(all, DeclaredDependency{Dependency: d, Critical: true})
	}
	for _, d := range s.Dependencies.NonCritical {
		all = append(all, DeclaredDependency{Dependency: d, Critical: false})
	}
	return all
}

// ProducedEvents returns the producing list, or nil.
func (s *Service) ProducedEvents() []Event {
	if s.Events == nil {
		return nil
	}
	return s.Events.Producing
}

// ConsumedEvents returns the consuming list, or nil.
func (s *Service) ConsumedEvents() []Event {
	if s.Events == nil {
		return nil
	}
	return s.Events.Consuming
}

// Normalize trims the service name and the names of nested entries.
func (s *Service) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if s.Dependencies != nil {
		for i := range s.Dependencies.Critical {
			s.Dependencies.Critical[i].Name = strings.TrimSpace(s.Dependencies.Critical[i].Name)
		}
		for i := range s.Dependencies.NonCritical {
			s.Dependencies.NonCritical[i].Name = strings.TrimSpace(s.Dependencies.NonCritical[i].Name)
		}
	}
	if s.Events != nil {
		for i := range s.Events.Producing {
			s.Events.Producing[i].Name = strings.TrimSpace(s.Events.Producing[i].Name)
		}
		for i := range s.Events.Consuming {
			s.Events.Consuming[i].Name = strings.TrimSpace(s.Events.Consuming[i].Name)
		}
	}
}

// Clone returns a deep copy so stored records cannot be mutated through returned values.
func (s Service) Clone() Service {
	out := s
	if s.Contracts != nil {
		out.Contracts = make([]Contract, len(s.Contracts))
		for i, c := range s.Contracts {
			c.Extra = cloneExtra(c.Extra)
			out.Contracts[i] = c
		}
	}
	if s.Dependencies != nil {
		deps := Dependencies{
			Critical:    cloneDependencies(s.Dependencies.Critical),
			NonCritical: cloneDependencies(s.Dependencies.NonCritical),
		}
		out.Dependencies = &deps
	}
	if s.Events != nil {
		events := Events{
			Producing: cloneEvents(s.Events.Producing),
			Consuming: cloneEvents(s.Events.Consuming),
		}
		out.Events = &events
	}
	if s.Metadata != nil {
		md := *s.Metadata
		out.Metadata = &md
	}
	return out
}

func cloneDependencies(in []Dependency) []Dependency {
	if in == nil {
		return nil
	}
	out := make([]Dependency, len(in))
	for i, d := range in {
		d.Extra = cloneExtra(d.Extra)
		out[i] = d
	}
	return out
}

func cloneEvents(in []Event) []Event {
	if in == nil {
		return nil
	}
	out := make([]Event, len(in))
	for i, e := range in {
		e.Extra = cloneExtra(e.Extra)
		out[i] = e
	}
	return out
}

func cloneExtra(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
