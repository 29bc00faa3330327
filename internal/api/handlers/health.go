// health.go — пробы Kubernetes и scrape Prometheus.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/scoreteam/internal/config"
)

const serviceName = "scoreteam"

// Статусы проверок.
const (
	statusOK   = "ok"
	statusFail = "fail"
)

// ReadinessChecker проверяет одну зависимость.
type ReadinessChecker interface {
	// CheckReady возвращает statusOK или statusFail и пояснение.
	CheckReady(ctx context.Context) (status string, message string)
}

// HealthHandler — /health/live, /health/ready, /metrics.
type HealthHandler struct {
	postgres ReadinessChecker
	metrics  http.Handler
}

// NewHealthHandler создаёт обработчик проб.
// postgres может быть nil: readiness тогда всегда 503.
func NewHealthHandler(postgres ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		metrics:  promhttp.Handler(),
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Service   string                 `json:"service"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

func newHealthResponse(status string) healthResponse {
	return healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}
}

// HealthLive отвечает 200, пока процесс обслуживает HTTP.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newHealthResponse(statusOK))
}

// HealthReady отвечает 200, если PostgreSQL отвечает на ping, иначе 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	pg := checkResult{Status: statusFail, Message: "не инициализирован"}
	if h.postgres != nil {
		pg.Status, pg.Message = h.postgres.CheckReady(r.Context())
	}

	resp := newHealthResponse(overallStatus(pg.Status))
	resp.Checks = map[string]checkResult{"postgresql": pg}

	code := http.StatusOK
	if resp.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics отдаёт реестр Prometheus по умолчанию.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// overallStatus — fail, если хоть одна проверка не ok.
func overallStatus(statuses ...string) string {
	for _, s := range statuses {
		if s != statusOK {
			return statusFail
		}
	}
	return statusOK
}
