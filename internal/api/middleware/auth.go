// auth.go — JWT middleware для аутентификации и авторизации ScoreTeam.
// Проверяет подпись RS256 выданного сервисом токена, по sub находит
// актуальную запись пользователя и помещает её роль в контекст.
// Роль из токена не используется: изменение роли или деактивация
// пользователя действуют без перевыпуска токена.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apierrors "github.com/bigkaa/scoreteam/internal/api/errors"
	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/rbac"
)

var tracer = otel.Tracer("github.com/bigkaa/scoreteam/internal/api/middleware")

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — идентичность вызывающего в контексте запроса.
	ContextKeyClaims contextKey = "auth_claims"
)

// AuthClaims — идентичность аутентифицированного пользователя.
// Помещается в контекст запроса для downstream handlers.
type AuthClaims struct {
	// UserID — ID пользователя (sub токена).
	UserID int64
	// Username — имя входа из актуальной записи пользователя.
	Username string
	// Role — каноническая роль из актуальной записи пользователя.
	Role string
}

// HasAnyRole проверяет, совпадает ли роль с одной из указанных (с учётом алиасов).
func (c *AuthClaims) HasAnyRole(roles ...string) bool {
	return rbac.Allowed(c.Role, roles...)
}

// IdentityResolver — источник актуальной записи пользователя.
// Реализуется service.IdentityService.
type IdentityResolver interface {
	// ResolveIdentity возвращает активного пользователя.
	// Если пользователь не найден или неактивен — nil, nil.
	ResolveIdentity(ctx context.Context, userID int64) (*model.User, error)
}

// JWTAuth — middleware для JWT-аутентификации.
type JWTAuth struct {
	keys      keyfunc.Keyfunc
	resolver  IdentityResolver
	logger    *slog.Logger
	issuer    string
	jwtLeeway time.Duration
}

// NewJWTAuth создаёт JWT middleware.
// keys — keyfunc с публичным ключом подписи (service.TokenIssuer.Keyfunc()).
// issuer — ожидаемый iss (пусто — не проверяется).
// jwtLeeway — допустимое отклонение времени при проверке JWT (ST_JWT_LEEWAY).
func NewJWTAuth(
	keys keyfunc.Keyfunc,
	issuer string,
	jwtLeeway time.Duration,
	resolver IdentityResolver,
	logger *slog.Logger,
) *JWTAuth {
	return &JWTAuth{
		keys:      keys,
		resolver:  resolver,
		logger:    logger.With(slog.String("component", "jwt_auth")),
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256) и срок действия,
// разрешает sub в активного пользователя и помещает AuthClaims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "JWTAuth.Authenticate")
			defer span.End()

			fail := func(reason string) {
				span.SetStatus(codes.Error, reason)
				apierrors.Unauthorized(w, reason)
			}

			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fail("Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				fail("Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				fail("Пустой Bearer token")
				return
			}

			// Парсинг и валидация JWT
			rawClaims := &jwt.RegisteredClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.keys.KeyfuncCtx(ctx), parserOpts...)
			if err != nil || !token.Valid {
				if err != nil {
					span.RecordError(err)
					j.logger.Debug("JWT валидация не пройдена",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
				}
				fail("Невалидный или просроченный токен")
				return
			}

			userID, err := strconv.ParseInt(rawClaims.Subject, 10, 64)
			if err != nil || userID <= 0 {
				fail("Некорректный sub в токене")
				return
			}
			span.SetAttributes(attribute.Int64("user.id", userID))

			// Роль и активность берём из актуальной записи пользователя
			user, err := j.resolver.ResolveIdentity(ctx, userID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "resolve identity")
				j.logger.Error("Ошибка получения пользователя",
					slog.Int64("user_id", userID),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Ошибка проверки пользователя")
				return
			}
			if user == nil {
				fail("Пользователь не найден или неактивен")
				return
			}

			role, ok := rbac.Normalize(user.Role)
			if !ok {
				j.logger.Warn("Неизвестная роль пользователя",
					slog.Int64("user_id", userID),
					slog.String("role", user.Role),
				)
			}
			span.SetAttributes(attribute.String("user.role", role))

			claims := &AuthClaims{
				UserID:   user.ID,
				Username: user.Username,
				Role:     role,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims)))
		})
	}
}

// --- RBAC middleware helpers ---

// RequireRole возвращает middleware, требующий одну из указанных ролей.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}

			if !claims.HasAnyRole(roles...) {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", strings.Join(roles, " или ")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// ContextWithClaims помещает AuthClaims в контекст.
func ContextWithClaims(ctx context.Context, claims *AuthClaims) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, claims)
}

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// UserIDFromContext извлекает ID пользователя из контекста запроса.
// Возвращает 0, если claims не найдены.
func UserIDFromContext(ctx context.Context) int64 {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

// RoleFromContext извлекает роль из контекста запроса.
func RoleFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.Role
}
