// tokens.go — выпуск JWT (RS256) и публикация ключа подписи в виде JWK Set.
package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bigkaa/scoreteam/internal/domain/model"
)

// TokenClaims — claims выдаваемого токена.
// sub — ID пользователя; роль в токене информативна,
// при проверке используется роль из актуальной записи пользователя.
type TokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IssuedToken — выданный токен.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenIssuer подписывает токены приватным RSA-ключом и хранит
// публичную часть в in-memory JWK Set.
type TokenIssuer struct {
	key     *rsa.PrivateKey
	kid     string
	issuer  string
	ttl     time.Duration
	storage *jwkset.MemoryJWKSet
	keyfunc keyfunc.Keyfunc
	now     func() time.Time
}

// NewTokenIssuer создаёт TokenIssuer для указанного ключа.
func NewTokenIssuer(ctx context.Context, key *rsa.PrivateKey, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	kid := uuid.NewString()

	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK в хранилище: %w", err)
	}

	kf, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &TokenIssuer{
		key:     key,
		kid:     kid,
		issuer:  issuer,
		ttl:     ttl,
		storage: storage,
		keyfunc: kf,
		now:     time.Now,
	}, nil
}

// LoadSigningKey читает RSA-ключ из PEM-файла.
// Если путь пуст — генерирует временный ключ: токены не переживут перезапуск.
func LoadSigningKey(path string, logger *slog.Logger) (*rsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("ST_JWT_PRIVATE_KEY_PATH не задан — сгенерирован временный ключ подписи, токены станут недействительны после перезапуска")
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("генерация RSA-ключа: %w", err)
		}
		return key, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение ключа подписи %s: %w", path, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("разбор ключа подписи %s: %w", path, err)
	}
	return key, nil
}

// Issue выпускает токен для пользователя.
func (t *TokenIssuer) Issue(u *model.User) (*IssuedToken, error) {
	now := t.now().UTC()
	expiresAt := now.Add(t.ttl)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Username: u.Username,
		Role:     u.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = t.kid

	signed, err := token.SignedString(t.key)
	if err != nil {
		return nil, fmt.Errorf("подпись токена: %w", err)
	}
	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// JWKS возвращает публичный JWK Set.
func (t *TokenIssuer) JWKS(ctx context.Context) (json.RawMessage, error) {
	return t.storage.JSONPublic(ctx)
}

// Keyfunc возвращает keyfunc для проверки подписи выданных токенов.
func (t *TokenIssuer) Keyfunc() keyfunc.Keyfunc {
	return t.keyfunc
}

// Issuer возвращает значение iss выдаваемых токенов.
func (t *TokenIssuer) Issuer() string {
	return t.issuer
}
