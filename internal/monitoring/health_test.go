package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
)

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		transport int
		code      int
		status    string
	}{
		{"healthy", true, 0, http.StatusOK, "healthy"},
		{"disconnected", false, 0, http.StatusServiceUnavailable, "degraded"},
		{"transport storm", true, 5, http.StatusInternalServerError, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := boterrors.NewErrorStats(10)
			for i := 0; i < tt.transport; i++ {
				stats.RecordError(boterrors.NewTransportError("gw", "submit", errors.New("timeout")))
			}
			h := NewHealthChecker(stats, func() bool { return tt.connected })
			h.RecordExecution("SUBMITTED", time.Now())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.code, rec.Code)
			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, "SUBMITTED", body.LastStatus)
		})
	}
}
