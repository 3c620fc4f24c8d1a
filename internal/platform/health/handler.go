// Package health serves the gateway's liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"kycgate/pkg/platform/httputil"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// CheckFunc probes one backing dependency; nil means up.
type CheckFunc func(ctx context.Context) error

const probeTimeout = 2 * time.Second

type Handler struct {
	started time.Time
	env     string

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func New(env string) *Handler {
	return &Handler{started: time.Now(), env: env, checks: map[string]CheckFunc{}}
}

// RegisterCheck adds a dependency to the readiness probe. Registering a name
// twice replaces the earlier check.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.status)
	r.Get("/health/live", h.live)
	r.Get("/health/ready", h.ready)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) live(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ready runs every check in parallel, each under its own deadline, and
// answers 503 when any of them fails.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	results := h.runChecks(r.Context())

	resp := ReadinessResponse{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, v := range results {
		if v != "up" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) runChecks(ctx context.Context) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		g       errgroup.Group
	)
	for name, check := range h.checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()
			outcome := "up"
			if err := check(probeCtx); err != nil {
				outcome = "down: " + err.Error()
			}
			mu.Lock()
			results[name] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.env,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}
