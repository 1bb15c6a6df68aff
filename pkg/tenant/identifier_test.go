package tenant_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/tenant"
)

func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "simple", input: "acme", want: "acme", ok: true},
		{name: "with digits and hyphen", input: "acme-2", want: "acme-2", ok: true},
		{name: "trimmed", input: "  acme \t", want: "acme", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "uppercase", input: "Acme", ok: false},
		{name: "leading hyphen", input: "-acme", ok: false},
		{name: "trailing hyphen", input: "acme-", ok: false},
		{name: "underscore", input: "ac_me", ok: false},
		{name: "reserved", input: "admin", ok: false},
		{name: "too long", input: strings.Repeat("a", 65), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := tenant.Slug(tt.input)
			if !tt.ok {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tenant.KindSlug, id.Kind)
			require.Equal(t, tt.want, id.Value)
			require.Equal(t, "slug:"+tt.want, id.Key())
		})
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "plain", input: "acme.example.com", want: "acme.example.com", ok: true},
		{name: "port stripped", input: "acme.example.com:8080", want: "acme.example.com", ok: true},
		{name: "lowercased", input: "ACME.Example.COM", want: "acme.example.com", ok: true},
		{name: "trailing dot", input: "acme.example.com.", want: "acme.example.com", ok: true},
		{name: "localhost", input: "localhost:3000", want: "localhost", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "double dot", input: "acme..example.com", ok: false},
		{name: "label with leading hyphen", input: "-acme.example.com", ok: false},
		{name: "invalid characters", input: "ac me.example.com", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := tenant.Host(tt.input)
			if !tt.ok {
				require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tenant.KindHost, id.Kind)
			require.Equal(t, tt.want, id.Value)
		})
	}
}

func TestParseIdentifier(t *testing.T) {
	t.Parallel()

	t.Run("uuid", func(t *testing.T) {
		t.Parallel()

		u := uuid.New()
		id, err := tenant.ParseIdentifier(u.String())
		require.NoError(t, err)
		require.Equal(t, tenant.ID(u), id)
		require.Equal(t, "id:"+u.String(), id.Key())
	})

	t.Run("slug", func(t *testing.T) {
		t.Parallel()

		id, err := tenant.ParseIdentifier("acme")
		require.NoError(t, err)
		require.Equal(t, tenant.KindSlug, id.Kind)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := tenant.ParseIdentifier("not a slug")
		require.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})
}

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	require.Equal(t, "acme.example.com", tenant.NormalizeHost(" Acme.Example.com:443 "))
	require.Equal(t, "[::1]", tenant.NormalizeHost("[::1]"))
	require.Equal(t, "[::1]", tenant.NormalizeHost("[::1]:8080"))
}
