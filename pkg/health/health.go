// Package health provides Kubernetes-style liveness and readiness
// probes. Every registered check runs on its own background ticker;
// consecutive-failure and consecutive-success thresholds keep a flaky
// check from flapping the reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// check holds the configuration and runtime state for one probe.
//
// run is only ever called from the single ticker goroutine, so the
// consecutive counters are unsynchronized. healthy and lastErr are read
// by HTTP handlers from arbitrary goroutines and use atomics.
type check struct {
	name             string
	timeout          time.Duration
	fn               CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (c *check) isHealthy() bool {
	return c.healthy.Load()
}

func (c *check) lastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the probe once and applies the thresholds. Single
// goroutine only.
func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.consecutiveFails = 0
	c.consecutiveOK++
	if c.consecutiveOK >= c.successThreshold {
		c.healthy.Store(true)
	}
}

// Health manages the liveness and readiness probes for a service.
type Health struct {
	ready atomic.Bool

	// mu guards the check slices and cancel. Handlers snapshot the
	// slices under RLock and release before touching check state.
	mu              sync.RWMutex
	livenessChecks  []*check
	readinessChecks []*check
	cancel          context.CancelFunc
}

// New creates a Health in the not-ready state; call SetReady(true) once
// initialization finishes.
func New() *Health {
	return &Health{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true) // assume healthy until proven otherwise
	return c
}

// AddLivenessCheck registers a probe of whether the process itself is
// functioning (goroutine counts, GC pauses, deadlocks).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a probe of whether the service can accept
// traffic (database connectivity, dependent services).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, newCheck(name, timeout, fn))
}

// Start launches one goroutine per registered check, each firing at the
// given interval, until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.livenessChecks)+len(h.readinessChecks))
	checks = append(checks, h.livenessChecks...)
	checks = append(checks, h.readinessChecks...)
	h.mu.Unlock()

	for _, c := range checks {
		go runCheck(ctx, c, interval)
	}
}

func runCheck(ctx context.Context, c *check, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// SetReady flips the manual readiness gate: true after initialization,
// false at the start of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is ready: manually marked ready
// AND every readiness check currently passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	checks := h.readinessChecks
	h.mu.RUnlock()

	for _, c := range checks {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// Stop cancels the background check goroutines. Safe to call twice.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} when every liveness
// check passes, otherwise 503 with the failing checks listed.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]*check, len(h.livenessChecks))
	copy(checks, h.livenessChecks)
	h.mu.RUnlock()

	writeResponse(w, collectFailures(checks))
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked
// ready and every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	checks := make([]*check, len(h.readinessChecks))
	copy(checks, h.readinessChecks)
	h.mu.RUnlock()

	failures := collectFailures(checks)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

// collectFailures maps check name to failure message for every
// unhealthy check, using the error stored by the last run.
func collectFailures(checks []*check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if c.isHealthy() {
			continue
		}
		if err := c.lastError(); err != nil {
			failures[c.name] = err.Error()
		} else {
			failures[c.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK

	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
