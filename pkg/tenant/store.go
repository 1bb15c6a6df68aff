package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Store is the backing store of tenants.
// Lookup returns ErrNotFound when nothing matches; any other error is
// treated as a store failure.
type Store interface {
	Lookup(ctx context.Context, id Identifier) (*Tenant, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, id Identifier) (*Tenant, error)

func (f StoreFunc) Lookup(ctx context.Context, id Identifier) (*Tenant, error) {
	return f(ctx, id)
}

// StaticStore is an in-memory Store for development and tests.
type StaticStore struct {
	byKey map[string]*Tenant
	mu    sync.RWMutex
}

// NewStaticStore creates a store holding tenants.
func NewStaticStore(tenants ...*Tenant) *StaticStore {
	s := &StaticStore{byKey: make(map[string]*Tenant)}
	for _, t := range tenants {
		s.Put(t)
	}
	return s
}

// Put adds or replaces a tenant, indexed by slug, domain and id.
func (s *StaticStore) Put(t *Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range identifiersOf(t) {
		s.byKey[id.Key()] = t
	}
}

// Remove deletes a tenant from every index.
func (s *StaticStore) Remove(t *Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range identifiersOf(t) {
		delete(s.byKey, id.Key())
	}
}

// Lookup implements Store.
func (s *StaticStore) Lookup(_ context.Context, id Identifier) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byKey[id.Key()]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// identifiersOf returns every identifier t can be looked up by.
func identifiersOf(t *Tenant) []Identifier {
	ids := []Identifier{{Kind: KindSlug, Value: t.Slug}}
	if t.ID != uuid.Nil {
		ids = append(ids, ID(t.ID))
	}
	if t.Domain != "" {
		ids = append(ids, Identifier{Kind: KindHost, Value: NormalizeHost(t.Domain)})
	}
	return ids
}

type staticFile struct {
	Tenants []staticTenant `yaml:"tenants"`
}

type staticTenant struct {
	Settings map[string]any `yaml:"settings"`
	Tenant   `yaml:",inline"`
}

// LoadStaticStore reads tenants from a YAML file:
//
//	tenants:
//	  - id: 3f0c5b8e-8a57-4c55-9d55-0d8f9b7d3e10
//	    slug: acme
//	    name: Acme Inc.
//	    domain: acme.example.com
//	    active: true
//	    settings:
//	      theme: dark
func LoadStaticStore(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read static store: %w", err)
	}
	return ParseStaticStore(data)
}

// ParseStaticStore builds a StaticStore from YAML content.
// Every slug and domain is validated.
func ParseStaticStore(data []byte) (*StaticStore, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("tenant: parse static store: %w", err)
	}

	s := NewStaticStore()
	for i := range file.Tenants {
		st := file.Tenants[i]
		t := st.Tenant

		if _, err := Slug(t.Slug); err != nil {
			return nil, err
		}
		if t.Domain != "" {
			host, err := Host(t.Domain)
			if err != nil {
				return nil, err
			}
			t.Domain = host.Value
		}
		if len(st.Settings) > 0 {
			raw, err := json.Marshal(st.Settings)
			if err != nil {
				return nil, fmt.Errorf("tenant: encode settings of %q: %w", t.Slug, err)
			}
			t.Settings = raw
		}

		s.Put(&t)
	}
	return s, nil
}
