package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	// ServiceName identifies this service in health payloads
	ServiceName = "learntracker"
)

// Pinger is the store surface the health check needs
type Pinger interface {
	// Ping performs a trivial round-trip query
	Ping(ctx context.Context) error
	// Backend names the data store ("postgresql", "memory")
	Backend() string
}

// HealthStatus is the /health success payload
type HealthStatus struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
	Service   string  `json:"service"`
	Database  string  `json:"database"`
}

// HealthChecker verifies store reachability and refreshes business metrics
type HealthChecker struct {
	store     Pinger
	refresher Refresher
	timeout   time.Duration
	now       func() time.Time
}

// NewHealthChecker creates a new health checker. refresher may be nil.
func NewHealthChecker(store Pinger, refresher Refresher) *HealthChecker {
	return &HealthChecker{
		store:     store,
		refresher: refresher,
		timeout:   5 * time.Second,
		now:       time.Now,
	}
}

// Check pings the store and, on success, refreshes business metrics
func (h *HealthChecker) Check(ctx context.Context) (HealthStatus, error) {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.store.Ping(pingCtx); err != nil {
		return HealthStatus{Status: StatusUnhealthy}, err
	}

	if h.refresher != nil {
		h.refresher.Refresh(ctx)
	}

	now := h.now()
	return HealthStatus{
		Status:    StatusHealthy,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Service:   ServiceName,
		Database:  h.store.Backend(),
	}, nil
}

// Liveness always reports healthy while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": float64(h.now().UnixNano()) / float64(time.Second),
		"service":   ServiceName,
	})
}

// Readiness serves GET /health: 200 with HealthStatus, or 503 with failure detail
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	status, err := h.Check(r.Context())
	if err != nil {
		FromContext(r.Context()).WithError(err).Warn("Health check failed")
		writeHealthJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "Database connection failed: " + err.Error(),
		})
		return
	}
	writeHealthJSON(w, http.StatusOK, status)
}

func writeHealthJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
