package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/futures-executor/internal/errors"
)

// ConnectivityCheck reports whether the exchange is reachable
type ConnectivityCheck func() bool

type HealthChecker struct {
	mu            sync.RWMutex
	startTime     time.Time
	lastExecution time.Time
	lastStatus    string
	isConnected   ConnectivityCheck
	errorStats    *boterrors.ErrorStats

	// Threshold of recent transport errors that marks the service degraded
	transportErrorLimit int
}

type HealthStatus struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	LastExecution time.Time      `json:"last_execution"`
	LastStatus    string         `json:"last_status,omitempty"`
	IsConnected   bool           `json:"is_connected"`
	Uptime        string         `json:"uptime"`
	ErrorCounts   map[string]int `json:"error_counts,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
}

func NewHealthChecker(stats *boterrors.ErrorStats, connected ConnectivityCheck) *HealthChecker {
	if connected == nil {
		connected = func() bool { return true }
	}
	return &HealthChecker{
		startTime:           time.Now(),
		isConnected:         connected,
		errorStats:          stats,
		transportErrorLimit: 5,
	}
}

// RecordExecution notes the most recent execution outcome
func (h *HealthChecker) RecordExecution(status string, at time.Time) {
	h.mu.Lock()
	h.lastExecution = at
	h.lastStatus = status
	h.mu.Unlock()
}

// Status computes the current health snapshot
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	connected := h.isConnected()
	status := "healthy"
	if !connected {
		status = "degraded"
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastExecution: h.lastExecution,
		LastStatus:    h.lastStatus,
		IsConnected:   connected,
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.errorStats != nil {
		counts := h.errorStats.Snapshot()
		if len(counts) > 0 {
			health.ErrorCounts = make(map[string]int, len(counts))
			for k, v := range counts {
				health.ErrorCounts[string(k)] = v
			}
		}
		health.Errors = h.errorStats.RecentMessages()
		if h.errorStats.HasRecentErrors(boterrors.ErrorCategoryTransport, h.transportErrorLimit) {
			health.Status = "unhealthy"
		}
	}
	return health
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "degraded":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "unhealthy":
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(health)
}
