package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct{ err error }

func (s stubStore) ValidateAll() error { return s.err }

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(0)
	assert.Equal(t, 5*time.Second, c.checkTimeout)
	assert.Empty(t, c.Checks())
}

func TestRegisterCheck(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("history", func(context.Context) error { return nil })
	c.RegisterCheck("config", func(context.Context) error { return nil })
	c.RegisterCheck("config", func(context.Context) error { return errors.New("replaced") })

	assert.Equal(t, []string{"config", "history"}, c.Checks())

	status := c.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Checks["config"].Status)
	assert.Equal(t, "replaced", status.Checks["config"].Message)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{"no checks", nil, StatusReady},
		{
			"all healthy",
			map[string]CheckFunc{
				"config":  func(context.Context) error { return nil },
				"history": func(context.Context) error { return nil },
			},
			StatusReady,
		},
		{
			"one failing",
			map[string]CheckFunc{
				"config":  func(context.Context) error { return nil },
				"history": func(context.Context) error { return errors.New("database is locked") },
			},
			StatusDegraded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}
			status := c.Readiness(context.Background())
			assert.Equal(t, tt.want, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestReadiness_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := c.Readiness(context.Background())
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, ErrCheckTimeout.Error(), status.Checks["slow"].Message)
}

func TestConfigCheck(t *testing.T) {
	assert.NoError(t, ConfigCheck(stubStore{})(context.Background()))
	assert.Error(t, ConfigCheck(stubStore{err: errors.New("invalid")})(context.Background()))
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	mux := http.NewServeMux()
	c.Mount(mux, VersionInfo{Version: "1.2.0", Commit: "abc123"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info VersionInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "1.2.0", info.Version)
	assert.NotEmpty(t, info.GoVersion)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/readyz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadinessHandler_Degraded(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("config", ConfigCheck(stubStore{err: errors.New("missing regex")}))

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, "missing regex", status.Checks["config"].Message)
}

func TestHandlers_Head(t *testing.T) {
	c := New(time.Second)
	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
