package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Kind is the kind of value a tenant is looked up by.
type Kind int

const (
	KindSlug Kind = iota
	KindHost
	KindID
)

func (k Kind) String() string {
	switch k {
	case KindSlug:
		return "slug"
	case KindHost:
		return "host"
	case KindID:
		return "id"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Identifier is a normalized lookup key for a tenant.
type Identifier struct {
	Value string
	Kind  Kind
}

// Key returns the cache key, for example "slug:acme".
func (id Identifier) Key() string {
	return id.Kind.String() + ":" + id.Value
}

func (id Identifier) String() string {
	return id.Key()
}

const (
	maxSlugLen = 64
	maxHostLen = 253
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	labelPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

	reservedSlugs = map[string]struct{}{
		"admin":   {},
		"api":     {},
		"www":     {},
		"static":  {},
		"assets":  {},
		"health":  {},
		"metrics": {},
	}
)

// Slug validates s as a tenant slug. Surrounding whitespace is trimmed.
func Slug(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxSlugLen || !slugPattern.MatchString(s) {
		return Identifier{}, fmt.Errorf("%w: slug %q", ErrInvalidIdentifier, s)
	}
	if _, ok := reservedSlugs[s]; ok {
		return Identifier{}, fmt.Errorf("%w: slug %q is reserved", ErrInvalidIdentifier, s)
	}
	return Identifier{Kind: KindSlug, Value: s}, nil
}

// Host validates and normalizes a host name: the port is stripped, the name
// is lowercased and a trailing dot removed.
func Host(host string) (Identifier, error) {
	h := NormalizeHost(host)
	if h == "" || len(h) > maxHostLen {
		return Identifier{}, fmt.Errorf("%w: host %q", ErrInvalidIdentifier, host)
	}
	for label := range strings.SplitSeq(h, ".") {
		if !labelPattern.MatchString(label) {
			return Identifier{}, fmt.Errorf("%w: host %q", ErrInvalidIdentifier, host)
		}
	}
	return Identifier{Kind: KindHost, Value: h}, nil
}

// ID wraps a tenant id.
func ID(id uuid.UUID) Identifier {
	return Identifier{Kind: KindID, Value: id.String()}
}

// ParseIdentifier classifies s: a UUID becomes an id identifier, anything
// else must be a valid slug.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if id, err := uuid.Parse(s); err == nil {
		return ID(id), nil
	}
	return Slug(s)
}

// NormalizeHost strips the port, lowercases and removes a trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		// IPv6 literals end with "]" when no port follows.
		if !strings.Contains(host[idx:], "]") {
			host = host[:idx]
		}
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}
