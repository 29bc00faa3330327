// dashboard.go — отчёты дашборда.
// Каждый запрос заново выбирает факты из БД и агрегирует их в пакете report;
// результаты агрегации не кэшируются.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/repository"
)

var tracer = otel.Tracer("github.com/bigkaa/scoreteam/internal/service")

// RecentScoresCount — количество последних оценок в сводке.
const RecentScoresCount = 5

// DashboardService — отчёты дашборда.
type DashboardService struct {
	agents repository.AgentRepository
	types  repository.ScoreTypeRepository
	users  repository.UserRepository
	scores repository.ScoreRepository
	logger *slog.Logger
}

// NewDashboardService создаёт сервис отчётов.
func NewDashboardService(
	agents repository.AgentRepository,
	types repository.ScoreTypeRepository,
	users repository.UserRepository,
	scores repository.ScoreRepository,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		agents: agents,
		types:  types,
		users:  users,
		scores: scores,
		logger: logger.With(slog.String("component", "dashboard_service")),
	}
}

// Summary считает четыре независимых счётчика параллельно и добавляет
// последние оценки. Единый снимок между счётчиками не гарантируется.
func (s *DashboardService) Summary(ctx context.Context) (report.Summary, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	var (
		counts report.Counts
		recent []report.RawJoinRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		counts.ActiveAgents, err = s.agents.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts.Scores, err = s.scores.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts.ActiveScoreTypes, err = s.types.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts.ActiveUsers, err = s.users.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.scores.Recent(gctx, RecentScoresCount)
		return err
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report.Summary{}, fmt.Errorf("сводка дашборда: %w", err)
	}

	return report.BuildSummary(counts, recent), nil
}

// MonthlyRollup — суммы баллов по (агент, месяц) за окно.
func (s *DashboardService) MonthlyRollup(ctx context.Context, period report.Period) ([]report.MonthlyTotal, error) {
	rows, err := s.facts(ctx, "DashboardService.MonthlyRollup", period, nil)
	if err != nil {
		return nil, err
	}
	return report.MonthlyRollup(rows, period), nil
}

// Distribution — количество и сумма баллов по типам оценок за год.
func (s *DashboardService) Distribution(ctx context.Context, year int) ([]report.TypeTotal, error) {
	period := report.Period{Year: year}
	rows, err := s.facts(ctx, "DashboardService.Distribution", period, nil)
	if err != nil {
		return nil, err
	}
	return report.Distribution(rows, period), nil
}

// Comparison — итоги активных агентов за год.
func (s *DashboardService) Comparison(ctx context.Context, year int) ([]report.AgentStanding, error) {
	period := report.Period{Year: year}
	agents, rows, err := s.standingsInput(ctx, "DashboardService.Comparison", period)
	if err != nil {
		return nil, err
	}
	return report.Comparison(agents, rows, period), nil
}

// Ranking — рейтинг активных агентов за всю историю.
func (s *DashboardService) Ranking(ctx context.Context) ([]report.AgentStanding, error) {
	agents, rows, err := s.standingsInput(ctx, "DashboardService.Ranking", report.AllTime)
	if err != nil {
		return nil, err
	}
	return report.Ranking(agents, rows), nil
}

// Evolution — помесячная динамика агента за год.
// Несуществующий агент даёт пустой результат, а не ошибку.
func (s *DashboardService) Evolution(ctx context.Context, agentID int64, year int) ([]report.MonthlyPoint, error) {
	period := report.Period{Year: year}
	rows, err := s.facts(ctx, "DashboardService.Evolution", period, &agentID)
	if err != nil {
		return nil, err
	}
	return report.Evolution(rows, agentID, period), nil
}

// facts выбирает факты окна под отдельным span.
func (s *DashboardService) facts(ctx context.Context, name string, period report.Period, agentID *int64) ([]report.RawJoinRow, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	span.SetAttributes(
		attribute.Int("report.year", period.Year),
		attribute.Int("report.month", period.Month),
	)
	if agentID != nil {
		span.SetAttributes(attribute.Int64("report.agent_id", *agentID))
	}

	rows, err := s.scores.Facts(ctx, period, agentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Ошибка выборки фактов",
			slog.String("report", name),
			slog.Int("year", period.Year),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("выборка фактов для %s: %w", name, err)
	}
	span.SetAttributes(attribute.Int("report.rows", len(rows)))
	return rows, nil
}

// standingsInput параллельно выбирает активных агентов и факты окна.
func (s *DashboardService) standingsInput(ctx context.Context, name string, period report.Period) ([]report.AgentRef, []report.RawJoinRow, error) {
	var (
		agents []report.AgentRef
		rows   []report.RawJoinRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		agents, err = s.agents.ActiveRefs(gctx)
		return err
	})
	g.Go(func() (err error) {
		rows, err = s.facts(gctx, name, period, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("данные для %s: %w", name, err)
	}
	return agents, rows, nil
}
