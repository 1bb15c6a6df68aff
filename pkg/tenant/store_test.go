package tenant_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

const staticYAML = `
tenants:
  - id: 3f0c5b8e-8a57-4c55-9d55-0d8f9b7d3e10
    slug: acme
    name: Acme Inc.
    domain: ACME.example.com
    active: true
    settings:
      theme: dark
      seats: 25
  - id: 7a1d7d0e-3c1e-4df4-8a43-5b0c5c7d9e21
    slug: globex
    name: Globex
    active: false
`

func TestParseStaticStore(t *testing.T) {
	t.Parallel()

	store, err := tenant.ParseStaticStore([]byte(staticYAML))
	require.NoError(t, err)

	ctx := context.Background()

	acme, err := store.Lookup(ctx, tenant.Identifier{Kind: tenant.KindSlug, Value: "acme"})
	require.NoError(t, err)
	require.Equal(t, "Acme Inc.", acme.Name)
	require.Equal(t, "acme.example.com", acme.Domain)
	require.True(t, acme.Active)
	require.Equal(t, uuid.MustParse("3f0c5b8e-8a57-4c55-9d55-0d8f9b7d3e10"), acme.ID)

	theme, ok := tenant.Setting[string](acme, "theme")
	require.True(t, ok)
	require.Equal(t, "dark", theme)

	seats, ok := tenant.Setting[int](acme, "seats")
	require.True(t, ok)
	require.Equal(t, 25, seats)

	_, ok = tenant.Setting[string](acme, "missing")
	require.False(t, ok)

	byHost, err := store.Lookup(ctx, tenant.Identifier{Kind: tenant.KindHost, Value: "acme.example.com"})
	require.NoError(t, err)
	require.Same(t, acme, byHost)

	byID, err := store.Lookup(ctx, tenant.ID(acme.ID))
	require.NoError(t, err)
	require.Same(t, acme, byID)

	globex, err := store.Lookup(ctx, tenant.Identifier{Kind: tenant.KindSlug, Value: "globex"})
	require.NoError(t, err)
	require.False(t, globex.Active)

	_, err = store.Lookup(ctx, tenant.Identifier{Kind: tenant.KindSlug, Value: "initech"})
	require.ErrorIs(t, err, tenant.ErrNotFound)
}

func TestParseStaticStore_Invalid(t *testing.T) {
	t.Parallel()

	t.Run("invalid slug", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.ParseStaticStore([]byte("tenants:\n  - slug: Not Valid\n"))
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.ParseStaticStore([]byte("tenants: ["))
		require.Error(t, err)
	})
}

func TestLoadStaticStore(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(staticYAML), 0o600))

	store, err := tenant.LoadStaticStore(path)
	require.NoError(t, err)

	_, err = store.Lookup(context.Background(), tenant.Identifier{Kind: tenant.KindSlug, Value: "globex"})
	require.NoError(t, err)

	_, err = tenant.LoadStaticStore(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestStaticStore_PutRemove(t *testing.T) {
	t.Parallel()

	store := tenant.NewStaticStore()
	acme := &tenant.Tenant{ID: uuid.New(), Slug: "acme", Domain: "acme.io"}
	store.Put(acme)

	got, err := store.Lookup(context.Background(), tenant.Identifier{Kind: tenant.KindHost, Value: "acme.io"})
	require.NoError(t, err)
	require.Same(t, acme, got)

	store.Remove(acme)
	_, err = store.Lookup(context.Background(), tenant.ID(acme.ID))
	require.ErrorIs(t, err, tenant.ErrNotFound)
}
