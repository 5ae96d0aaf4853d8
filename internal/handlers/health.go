package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/m1z23r/drift/pkg/drift"
)

const readinessTimeout = 3 * time.Second

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler takes the dependencies checked by Ready, keyed by name.
// Nil entries are skipped.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	checked := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checked[name] = p
		}
	}
	return &HealthHandler{deps: checked}
}

func (h *HealthHandler) Live(c *drift.Context) {
	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(c *drift.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{Status: "ok", Dependencies: make(map[string]dependencyStatus, len(h.deps))}
	code := http.StatusOK
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			resp.Dependencies[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = dependencyStatus{Status: "ok"}
	}

	_ = c.JSON(code, resp)
}
