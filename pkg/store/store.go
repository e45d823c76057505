// Package store keeps the in-memory service catalog managed through the HTTP API.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ritzau/service-catalog/pkg/model"
)

var (
	ErrConflict         = errors.New("service already exists")
	ErrNotFound         = errors.New("service not found")
	ErrNameMismatch     = errors.New("Service name in URL must match body.name")
	ErrMetadataProvided = errors.New("Do not send 'metadata' in the request body. Metadata is server-generated.")
)

const (
	firstVersion = "v1"
	dateLayout   = "2006-01-02"
)

var versionPattern = regexp.MustCompile(`^v(\d+)$`)

// Store is a name-keyed set of services that remembers insertion order.
type Store struct {
	mu       sync.RWMutex
	services map[string]model.Service
	order    []string
	now      func() time.Time
	onChange []func()
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for metadata dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		services: make(map[string]model.Service),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a callback run after every successful mutation.
// Callbacks run without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	callbacks := append([]func(){}, s.onChange...)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (s *Store) today() string {
	return s.now().UTC().Format(dateLayout)
}

// Create adds a new service with fresh metadata.
func (s *Store) Create(in model.Service) (model.Service, error) {
	if in.Metadata != nil {
		return model.Service{}, ErrMetadataProvided
	}

	s.mu.Lock()
	if _, exists := s.services[in.Name]; exists {
		s.mu.Unlock()
		return model.Service{}, fmt.Errorf("%w: %s", ErrConflict, in.Name)
	}

	today := s.today()
	created := in.Clone()
	created.Metadata = &model.Metadata{
		CreatedAt: today,
		UpdatedAt: today,
		Version:   firstVersion,
	}
	s.services[created.Name] = created
	s.order = append(s.order, created.Name)
	s.mu.Unlock()

	s.notify()
	return created.Clone(), nil
}

// Replace overwrites the service called name. The previous createdAt is kept
// and the version is bumped.
func (s *Store) Replace(name string, in model.Service) (model.Service, error) {
	if in.Metadata != nil {
		return model.Service{}, ErrMetadataProvided
	}
	if in.Name != name {
		return model.Service{}, ErrNameMismatch
	}

	s.mu.Lock()
	existing, ok := s.services[name]
	if !ok {
		s.mu.Unlock()
		return model.Service{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var createdAt, version string
	if existing.Metadata != nil {
		createdAt = existing.Metadata.CreatedAt
		version = existing.Metadata.Version
	}
	today := s.today()
	if createdAt == "" {
		createdAt = today
	}

	replaced := in.Clone()
	replaced.Metadata = &model.Metadata{
		CreatedAt: createdAt,
		UpdatedAt: today,
		Version:   NextVersion(version),
	}
	s.services[name] = replaced
	s.mu.Unlock()

	s.notify()
	return replaced.Clone(), nil
}

// Get returns a copy of the named service.
func (s *Store) Get(name string) (model.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[name]
	if !ok {
		return model.Service{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return svc.Clone(), nil
}

// List returns copies of all services in insertion order.
func (s *Store) List() []model.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Service, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.services[name].Clone())
	}
	return out
}

// Len returns the number of stored services.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Delete removes the named service.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	if _, ok := s.services[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.services, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify()
	return nil
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	s.services = make(map[string]model.Service)
	s.order = nil
	s.mu.Unlock()

	s.notify()
}

// Seed bulk-loads services, keeping any metadata they carry. Services without
// metadata get a fresh v1. Later entries overwrite earlier ones with the same name.
// It returns the number of services stored.
func (s *Store) Seed(services []model.Service) int {
	today := s.today()

	s.mu.Lock()
	for _, in := range services {
		if in.Name == "" {
			continue
		}
		svc := in.Clone()
		if svc.Metadata == nil {
			svc.Metadata = &model.Metadata{CreatedAt: today, UpdatedAt: today, Version: firstVersion}
		}
		if _, exists := s.services[svc.Name]; !exists {
			s.order = append(s.order, svc.Name)
		}
		s.services[svc.Name] = svc
	}
	n := len(s.order)
	s.mu.Unlock()

	s.notify()
	return n
}

// NextVersion bumps "v<n>" to "v<n+1>". Anything else restarts at v1.
func NextVersion(version string) string {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return firstVersion
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return firstVersion
	}
	return "v" + strconv.Itoa(n+1)
}
