package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/nexo-studio/agency-api/internal/domain"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check HealthCheck
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	version string
	db      HealthCheck
	checks  []namedCheck
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewHealthHandler(version string, db HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		version: version,
		db:      db,
		checks:  []namedCheck{{name: "database", check: db}},
		timeout: 3 * time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

// AddCheck registers an extra dependency for the readiness probe
func (h *HealthHandler) AddCheck(name string, check HealthCheck) {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Live godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} domain.HealthDTO
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.result("healthy", nil))
}

// Database godoc
// @Summary Database health
// @Tags Health
// @Produce json
// @Success 200 {object} domain.HealthDTO
// @Failure 503 {object} domain.HealthDTO
// @Router /health/db [get]
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, []namedCheck{{name: "database", check: h.db}})
}

// Ready godoc
// @Summary Readiness probe
// @Description Checks the database and every configured dependency
// @Tags Health
// @Produce json
// @Success 200 {object} domain.HealthDTO
// @Failure 503 {object} domain.HealthDTO
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.checks)
}

func (h *HealthHandler) run(w http.ResponseWriter, r *http.Request, checks []namedCheck) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("check", c.name), zap.Error(err))
			results[c.name] = "unhealthy"
			healthy = false
			continue
		}
		results[c.name] = "healthy"
	}

	if !healthy {
		respondJSON(w, http.StatusServiceUnavailable, h.result("unhealthy", results))
		return
	}
	respondJSON(w, http.StatusOK, h.result("healthy", results))
}

func (h *HealthHandler) result(status string, checks map[string]string) domain.HealthDTO {
	return domain.HealthDTO{
		Status:  status,
		Checks:  checks,
		Version: h.version,
		Time:    h.now().UTC().Format(time.RFC3339),
	}
}
