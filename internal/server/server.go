// Пакет server — HTTP-сервер ScoreTeam с graceful shutdown.
// Без TLS: TLS termination выполняется на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bigkaa/scoreteam/internal/api/handlers"
	"github.com/bigkaa/scoreteam/internal/api/middleware"
	"github.com/bigkaa/scoreteam/internal/api/validation"
	"github.com/bigkaa/scoreteam/internal/config"
	"github.com/bigkaa/scoreteam/internal/domain/rbac"
)

// Server — HTTP-сервер ScoreTeam.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	h *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	validator *validation.Validator,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, h, jwtAuth, validator),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter строит дерево маршрутов.
// Публичные: health, metrics, login, jwks, openapi.yaml. Остальное под /api
// требует JWT; роли проверяются на уровне маршрута.
func NewRouter(
	logger *slog.Logger,
	h *handlers.APIHandler,
	jwtAuth *middleware.JWTAuth,
	validator *validation.Validator,
) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics опрашиваются Kubernetes и Prometheus напрямую, без JWT.
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	validate := validator.Middleware()
	editors := middleware.RequireRole(rbac.Editors...)
	admins := middleware.RequireRole(rbac.AdminsOnly...)

	router.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", h.GetOpenAPI)
		r.With(validate).Post("/auth/login", h.Login)
		r.Get("/auth/jwks", h.GetJWKS)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware())

			r.Post("/auth/logout", h.Logout)
			r.Get("/auth/me", h.GetMe)
			r.With(validate).Patch("/auth/me", h.UpdateMe)

			r.Route("/users", func(r chi.Router) {
				r.Use(admins)
				r.Get("/", h.ListUsers)
				r.With(validate).Post("/", h.CreateUser)
				r.Get("/{id}", h.GetUser)
				r.With(validate).Put("/{id}", h.UpdateUser)
				r.With(validate).Delete("/{id}", h.DeleteUser)
			})

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", h.ListAgents)
				r.With(editors, validate).Post("/", h.CreateAgent)
				r.Get("/{id}", h.GetAgent)
				r.With(editors, validate).Put("/{id}", h.UpdateAgent)
				r.With(admins, validate).Delete("/{id}", h.DeleteAgent)
			})

			r.Route("/score-types", func(r chi.Router) {
				r.Get("/", h.ListScoreTypes)
				r.With(admins, validate).Post("/", h.CreateScoreType)
				r.Get("/{id}", h.GetScoreType)
				r.With(admins, validate).Put("/{id}", h.UpdateScoreType)
				r.With(admins, validate).Delete("/{id}", h.DeleteScoreType)
			})

			r.Route("/scores", func(r chi.Router) {
				r.Get("/", h.ListScores)
				r.With(editors, validate).Post("/", h.CreateScore)
				r.Get("/{id}", h.GetScore)
				r.With(editors, validate).Put("/{id}", h.UpdateScore)
				r.With(editors, validate).Delete("/{id}", h.DeleteScore)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", h.GetDashboardStats)
				r.Get("/monthly-scores", h.GetMonthlyScores)
				r.Get("/score-types-distribution", h.GetScoreTypesDistribution)
				r.Get("/agent-comparison", h.GetAgentComparison)
				r.Get("/agent-ranking", h.GetAgentRanking)
				r.Get("/agent-evolution/{agentId}", h.GetAgentEvolution)
			})
		})
	})

	// Серверный span на каждый запрос; пробы и scrape метрик не трассируются.
	return otelhttp.NewHandler(router, "scoreteam.http",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics" && !strings.HasPrefix(r.URL.Path, "/health/")
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
