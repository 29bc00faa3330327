// handler.go — основной обработчик API ScoreTeam.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/scoreteam/internal/api/errors"
	"github.com/bigkaa/scoreteam/internal/api/validation"
	"github.com/bigkaa/scoreteam/internal/service"
)

// internalErrorMessage — сообщение 500 для production.
const internalErrorMessage = "внутренняя ошибка сервера"

// APIHandler — основной обработчик API ScoreTeam.
type APIHandler struct {
	health     *HealthHandler
	auth       *service.AuthService
	tokens     *service.TokenIssuer
	users      *service.UserService
	agents     *service.AgentService
	scoreTypes *service.ScoreTypeService
	scores     *service.ScoreService
	dashboard  *service.DashboardService
	// exposeErrors — включать текст внутренней ошибки в ответ 500 (development)
	exposeErrors bool
	now          func() time.Time
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	auth *service.AuthService,
	tokens *service.TokenIssuer,
	users *service.UserService,
	agents *service.AgentService,
	scoreTypes *service.ScoreTypeService,
	scores *service.ScoreService,
	dashboard *service.DashboardService,
	exposeErrors bool,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:       health,
		auth:         auth,
		tokens:       tokens,
		users:        users,
		agents:       agents,
		scoreTypes:   scoreTypes,
		scores:       scores,
		dashboard:    dashboard,
		exposeErrors: exposeErrors,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPI — GET /api/openapi.yaml.
// Отдаёт встроенный OpenAPI-документ.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(validation.Spec())
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса. При ошибке пишет 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// pathID читает числовой параметр пути. При ошибке пишет 400 и возвращает false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		apierrors.ValidationErrors(w, "Некорректный идентификатор", []apierrors.FieldDetail{
			{Field: name, Message: "ожидается положительное целое число"},
		})
		return 0, false
	}
	return id, true
}

// queryString возвращает непустой query-параметр или nil.
func queryString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

// queryBool разбирает булев query-параметр; некорректное значение игнорируется.
func queryBool(r *http.Request, name string) *bool {
	v := queryString(r, name)
	if v == nil {
		return nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil
	}
	return &b
}

// queryInt разбирает целый query-параметр; некорректное значение даёт 0.
func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// writeServiceError переводит ошибку сервисного слоя в стандартный ответ.
// notFound — сообщение для ErrNotFound без уточнения; attrs — контекст для лога.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string, attrs ...any) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		details := make([]apierrors.FieldDetail, len(verr.Fields))
		for i, f := range verr.Fields {
			details[i] = apierrors.FieldDetail{Field: f.Field, Message: f.Message}
		}
		apierrors.ValidationErrors(w, "Некорректные входные данные", details)
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrSelfDelete):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		apierrors.Unauthorized(w, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, service.ErrUnauthenticated.Error())
	case errors.Is(err, service.ErrNotFound):
		msg := notFound
		if err != service.ErrNotFound {
			msg = err.Error()
		}
		apierrors.NotFound(w, msg)
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInUse):
		apierrors.Conflict(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка",
			append([]any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			}, attrs...)...,
		)
		msg := internalErrorMessage
		if h.exposeErrors {
			msg = internalErrorMessage + ": " + err.Error()
		}
		apierrors.InternalError(w, msg)
		return
	}

	h.logger.Debug("Запрос отклонён",
		append([]any{
			slog.String("path", r.URL.Path),
			slog.String("reason", err.Error()),
		}, attrs...)...,
	)
}
