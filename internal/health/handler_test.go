package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck() Pinger {
	return PingFunc(func(context.Context) error { return nil })
}

func downCheck() Pinger {
	return PingFunc(func(context.Context) error { return errors.New("connection refused") })
}

func TestLiveness(t *testing.T) {
	h := NewHandler(nil)
	rec := httptest.NewRecorder()

	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantChecks map[string]any
	}{
		{
			name:       "all up",
			checks:     map[string]Pinger{"database": okCheck(), "redis": okCheck()},
			wantStatus: http.StatusOK,
			wantChecks: map[string]any{"database": "ok", "redis": "ok"},
		},
		{
			name:       "database down",
			checks:     map[string]Pinger{"database": downCheck()},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]any{"database": "down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(tt.checks).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantChecks, body["checks"])
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
