package tenant

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Tenant is the resolved identity and configuration of a tenant.
//
// Values are shared by pointer between every request that resolves the same
// tenant and must be treated as read-only. To change a tenant, update the
// store and invalidate the resolver.
type Tenant struct {
	Name     string          `json:"name" yaml:"name"`
	Slug     string          `json:"slug" yaml:"slug"`
	Domain   string          `json:"domain,omitempty" yaml:"domain"`
	Settings json.RawMessage `json:"settings,omitempty" yaml:"-"`
	ID       uuid.UUID       `json:"id" yaml:"id"`
	Active   bool            `json:"active" yaml:"active"`
}

// Setting decodes the settings entry under key into T.
// It reports false when the key is absent or does not decode into T.
func Setting[T any](t *Tenant, key string) (T, bool) {
	var zero T
	if t == nil || len(t.Settings) == 0 {
		return zero, false
	}

	var settings map[string]json.RawMessage
	if err := json.Unmarshal(t.Settings, &settings); err != nil {
		return zero, false
	}

	raw, ok := settings[key]
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}
