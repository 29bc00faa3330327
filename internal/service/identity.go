// Пакет service — бизнес-логика ScoreTeam.
// IdentityService — разрешение субъекта токена в актуальную запись пользователя.
// Активные пользователи кэшируются в hashicorp/golang-lru/v2/expirable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// Prometheus-метрики кэша пользователей.
var (
	identityCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "st_identity_cache_hits_total",
		Help: "Общее количество попаданий в кэш пользователей.",
	})
	identityCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "st_identity_cache_misses_total",
		Help: "Общее количество промахов кэша пользователей.",
	})
)

// IdentityService возвращает живую активную запись пользователя по ID из токена.
// Кэшируются только активные пользователи; запись инвалидируется при
// изменении или удалении пользователя. При ttl == 0 кэш отключён.
type IdentityService struct {
	users  repository.UserRepository
	cache  *expirable.LRU[int64, *model.User]
	logger *slog.Logger
}

// NewIdentityService создаёт сервис разрешения пользователей.
// size — максимальное количество записей, ttl — время жизни записи.
func NewIdentityService(users repository.UserRepository, size int, ttl time.Duration, logger *slog.Logger) *IdentityService {
	s := &IdentityService{
		users:  users,
		logger: logger.With(slog.String("component", "identity")),
	}
	if ttl > 0 && size > 0 {
		s.cache = expirable.NewLRU[int64, *model.User](size, nil, ttl)
	}
	return s
}

// ResolveIdentity возвращает активного пользователя.
// Если пользователь не найден или неактивен — (nil, nil).
func (s *IdentityService) ResolveIdentity(ctx context.Context, userID int64) (*model.User, error) {
	if s.cache != nil {
		if u, ok := s.cache.Get(userID); ok {
			identityCacheHitsTotal.Inc()
			return u, nil
		}
		identityCacheMissesTotal.Inc()
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("получение пользователя %d: %w", userID, err)
	}
	if !u.IsActive {
		return nil, nil
	}

	if s.cache != nil {
		s.cache.Add(userID, u)
	}
	return u, nil
}

// Invalidate удаляет пользователя из кэша.
func (s *IdentityService) Invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	if s.cache.Remove(userID) {
		s.logger.Debug("Пользователь удалён из кэша", slog.Int64("user_id", userID))
	}
}
