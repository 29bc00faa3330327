// Точка входа ScoreTeam — сервис учёта оценок сотрудников колл-центра.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// собирает сервисный слой и API handlers, запускает topologymetrics
// и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/scoreteam/internal/api/handlers"
	"github.com/bigkaa/scoreteam/internal/api/middleware"
	"github.com/bigkaa/scoreteam/internal/api/validation"
	"github.com/bigkaa/scoreteam/internal/config"
	"github.com/bigkaa/scoreteam/internal/database"
	"github.com/bigkaa/scoreteam/internal/repository"
	"github.com/bigkaa/scoreteam/internal/server"
	"github.com/bigkaa/scoreteam/internal/service"
	"github.com/bigkaa/scoreteam/internal/telemetry"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("ScoreTeam запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("env", cfg.Env),
	)

	ctx := context.Background()

	// 3. Трассировка (OTLP/HTTP, опционально)
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, config.Version, logger)
	if err != nil {
		logger.Error("Ошибка настройки трассировки", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("Ошибка завершения трассировки", slog.String("error", err.Error()))
		}
	}()

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics: проверка идёт
	// через тот же пул, исчерпание пула видно в метриках.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Repositories
	userRepo := repository.NewUserRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	scoreTypeRepo := repository.NewScoreTypeRepository(pool)
	scoreRepo := repository.NewScoreRepository(pool)

	txRunner := repository.NewTxRunner(pool)
	userTx := func(ctx context.Context, fn func(repository.UserRepository) error) error {
		return txRunner.RunInTx(ctx, func(tx pgx.Tx) error {
			return fn(repository.NewUserRepository(tx))
		})
	}

	// 7. Ключ подписи и выпуск токенов
	signingKey, err := service.LoadSigningKey(cfg.JWTPrivateKeyPath, logger)
	if err != nil {
		logger.Error("Ошибка загрузки ключа подписи", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens, err := service.NewTokenIssuer(ctx, signingKey, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("Ошибка создания выпуска токенов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Services
	identities := service.NewIdentityService(userRepo, cfg.IdentityCacheSize, cfg.IdentityCacheTTL, logger)
	authSvc := service.NewAuthService(userRepo, tokens, identities, logger)
	usersSvc := service.NewUserService(userRepo, identities, userTx, cfg.BcryptCost, logger)
	agentsSvc := service.NewAgentService(agentRepo, logger)
	scoreTypesSvc := service.NewScoreTypeService(scoreTypeRepo, logger)
	scoresSvc := service.NewScoreService(scoreRepo, logger)
	dashboardSvc := service.NewDashboardService(agentRepo, scoreTypeRepo, userRepo, scoreRepo, logger)

	// 9. Первый администратор (если задан ST_BOOTSTRAP_ADMIN_USERNAME)
	if cfg.BootstrapAdminUsername != "" {
		created, err := usersSvc.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Error("Ошибка создания администратора", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if created {
			logger.Info("Создан администратор", slog.String("username", cfg.BootstrapAdminUsername))
		}
	}

	// 10. Валидация запросов по встроенному OpenAPI-документу
	validator, err := validation.NewValidator(ctx, logger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. JWT middleware: подпись проверяется по собственному JWKS,
	// роль берётся из актуальной записи пользователя.
	jwtAuth := middleware.NewJWTAuth(tokens.Keyfunc(), tokens.Issuer(), cfg.JWTLeeway, identities, logger)
	logger.Info("JWT middleware инициализирован",
		slog.String("issuer", tokens.Issuer()),
		slog.String("ttl", cfg.JWTTTL.String()),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "scoreteam",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PostgresURL:   cfg.DatabaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	}

	// 13. Health и API handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		tokens,
		usersSvc,
		agentsSvc,
		scoreTypesSvc,
		scoresSvc,
		dashboardSvc,
		cfg.IsDevelopment(),
		logger,
	)

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth, validator)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("ScoreTeam остановлен")
}
