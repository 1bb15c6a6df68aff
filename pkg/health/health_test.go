package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dataguard/pkg/health"
)

func ok(context.Context) error { return nil }

func fail(context.Context) error { return errors.New("connection refused") }

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		checks health.Checks
		opts   []health.Option
		want   string
	}{
		{name: "no checks", want: health.StatusHealthy},
		{name: "all pass", checks: health.Checks{"postgres": ok, "redis": ok}, want: health.StatusHealthy},
		{name: "critical fails", checks: health.Checks{"postgres": fail, "redis": ok}, want: health.StatusUnhealthy},
		{
			name:   "optional fails",
			checks: health.Checks{"postgres": ok, "redis": fail},
			opts:   []health.Option{health.WithOptional("redis")},
			want:   health.StatusDegraded,
		},
		{
			name:   "critical wins over optional",
			checks: health.Checks{"postgres": fail, "redis": fail},
			opts:   []health.Option{health.WithOptional("redis")},
			want:   health.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp := health.Run(context.Background(), tt.checks, tt.opts...)
			require.Equal(t, tt.want, resp.Status)
			require.Len(t, resp.Checks, len(tt.checks))
			if tt.want == health.StatusUnhealthy {
				require.ErrorIs(t, resp.Err(), health.ErrCheckFailed)
			} else {
				require.NoError(t, resp.Err())
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	resp := health.Run(context.Background(), health.Checks{
		"stuck": func(context.Context) error {
			<-block
			return nil
		},
		"fast": ok,
	}, health.WithTimeout(20*time.Millisecond))

	require.Equal(t, health.StatusUnhealthy, resp.Status)
	require.Equal(t, health.StatusHealthy, resp.Checks["fast"].Status)
	require.Contains(t, resp.Checks["stuck"].Error, health.ErrCheckTimeout.Error())
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	t.Run("liveness", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("readiness plain text", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"postgres": fail})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "Service Unavailable", rec.Body.String())
	})

	t.Run("readiness json degraded", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"postgres": ok, "redis": fail}, health.WithOptional("redis"))
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		req.Header.Set("Accept", "application/json")
		h(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, health.StatusDegraded, resp.Status)
		require.Equal(t, "connection refused", resp.Checks["redis"].Error)
		require.True(t, resp.Checks["redis"].Optional)
	})

	t.Run("format query parameter", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live?format=json", nil))
		require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	})
}
