package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/repository"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

// signingKey возвращает RSA-ключ, общий для всех тестов пакета.
func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		var err error
		testKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return testKey
}

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(context.Background(), signingKey(t), "scoreteam", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer ошибка: %v", err)
	}
	return issuer
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

// TestTokenIssuer_Issue проверяет claims и проверку подписи через keyfunc.
func TestTokenIssuer_Issue(t *testing.T) {
	issuer := newTestIssuer(t)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	tok, err := issuer.Issue(&model.User{ID: 17, Username: "maria", Role: "evaluator"})
	if err != nil {
		t.Fatalf("Issue ошибка: %v", err)
	}
	if !tok.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, ожидался %v", tok.ExpiresAt, fixed.Add(time.Hour))
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(tok.Token, claims, issuer.Keyfunc().Keyfunc,
		jwt.WithTimeFunc(func() time.Time { return fixed.Add(time.Minute) }),
		jwt.WithIssuer("scoreteam"),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		t.Fatalf("ParseWithClaims ошибка: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("токен невалиден")
	}
	if claims.Subject != strconv.Itoa(17) {
		t.Errorf("sub = %q, ожидался 17", claims.Subject)
	}
	if claims.Username != "maria" || claims.Role != "evaluator" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("jti пуст")
	}
	if parsed.Header["kid"] != issuer.kid {
		t.Errorf("kid = %v, ожидался %s", parsed.Header["kid"], issuer.kid)
	}
}

// TestTokenIssuer_JWKS проверяет, что JWK Set содержит только публичный ключ.
func TestTokenIssuer_JWKS(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, err := issuer.JWKS(context.Background())
	if err != nil {
		t.Fatalf("JWKS ошибка: %v", err)
	}

	var set struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(raw, &set); err != nil {
		t.Fatalf("разбор JWKS: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("ключей = %d, ожидался 1", len(set.Keys))
	}
	key := set.Keys[0]
	if key["kid"] != issuer.kid {
		t.Errorf("kid = %v", key["kid"])
	}
	if key["kty"] != "RSA" {
		t.Errorf("kty = %v", key["kty"])
	}
	if _, ok := key["d"]; ok {
		t.Error("JWKS содержит приватную часть ключа")
	}
}

// TestLoadSigningKey_Generated проверяет генерацию ключа при пустом пути.
func TestLoadSigningKey_Generated(t *testing.T) {
	key, err := LoadSigningKey("", testLogger())
	if err != nil {
		t.Fatalf("LoadSigningKey ошибка: %v", err)
	}
	if key.N.BitLen() != 2048 {
		t.Errorf("размер ключа = %d, ожидался 2048", key.N.BitLen())
	}

	if _, err := LoadSigningKey("/nonexistent/key.pem", testLogger()); err == nil {
		t.Error("ожидалась ошибка для несуществующего файла")
	}
}

// TestAuthService_Login проверяет вход и единую ошибку для неудачных попыток.
func TestAuthService_Login(t *testing.T) {
	users := map[string]*model.User{
		"maria":  {ID: 1, Username: "maria", PasswordHash: hashed(t, "secret1"), Role: "Evaluador", IsActive: true},
		"carlos": {ID: 2, Username: "carlos", PasswordHash: hashed(t, "secret2"), Role: "viewer", IsActive: false},
	}
	repo := &mockUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*model.User, error) {
			if u, ok := users[username]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, repository.ErrNotFound
		},
	}
	issuer := newTestIssuer(t)
	svc := NewAuthService(repo, issuer, NewIdentityService(repo, 0, 0, testLogger()), testLogger())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "успешный вход", username: " maria ", password: "secret1"},
		{name: "неверный пароль", username: "maria", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "неизвестный пользователь", username: "nobody", password: "secret1", wantErr: ErrInvalidCredentials},
		{name: "неактивный пользователь", username: "carlos", password: "secret2", wantErr: ErrInvalidCredentials},
		{name: "пустой пароль", username: "maria", password: "", wantErr: ErrValidation},
		{name: "пустое имя", username: "  ", password: "secret1", wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ошибка = %v, ожидалась %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login ошибка: %v", err)
			}
			if res.Token == "" {
				t.Error("пустой токен")
			}
			if res.User.Role != "evaluator" {
				t.Errorf("Role = %q, ожидалась evaluator", res.User.Role)
			}
		})
	}
}

// TestAuthService_UpdatePhone проверяет обязательность телефона и инвалидацию кэша.
func TestAuthService_UpdatePhone(t *testing.T) {
	phone := "555-0101"
	getCalls := 0
	repo := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			getCalls++
			return &model.User{ID: id, Username: "maria", Role: "viewer", Phone: &phone, IsActive: true}, nil
		},
		updatePhoneFn: func(_ context.Context, _ int64, p *string) error {
			phone = *p
			return nil
		},
	}
	identities := NewIdentityService(repo, 16, time.Minute, testLogger())
	svc := NewAuthService(repo, newTestIssuer(t), identities, testLogger())

	if _, err := identities.ResolveIdentity(context.Background(), 1); err != nil {
		t.Fatalf("ResolveIdentity ошибка: %v", err)
	}

	if _, err := svc.UpdatePhone(context.Background(), 1, strPtr("   ")); !errors.Is(err, ErrValidation) {
		t.Fatalf("ошибка = %v, ожидалась ErrValidation", err)
	}
	if _, err := svc.UpdatePhone(context.Background(), 1, strPtr("123456789012345678901")); !errors.Is(err, ErrValidation) {
		t.Fatalf("ошибка = %v, ожидалась ErrValidation для длинного телефона", err)
	}

	u, err := svc.UpdatePhone(context.Background(), 1, strPtr(" 555-0199 "))
	if err != nil {
		t.Fatalf("UpdatePhone ошибка: %v", err)
	}
	if u.Phone == nil || *u.Phone != "555-0199" {
		t.Errorf("Phone = %v, ожидался 555-0199", u.Phone)
	}

	before := getCalls
	if _, err := identities.ResolveIdentity(context.Background(), 1); err != nil {
		t.Fatalf("ResolveIdentity ошибка: %v", err)
	}
	if getCalls != before+1 {
		t.Error("кэш не инвалидирован после смены телефона")
	}
}

// TestIdentityService_ResolveIdentity проверяет кэширование активных
// пользователей и отказ для неактивных.
func TestIdentityService_ResolveIdentity(t *testing.T) {
	calls := 0
	active := true
	repo := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			calls++
			if id == 404 {
				return nil, repository.ErrNotFound
			}
			return &model.User{ID: id, Username: "maria", Role: "admin", IsActive: active}, nil
		},
	}
	svc := NewIdentityService(repo, 16, time.Minute, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		u, err := svc.ResolveIdentity(ctx, 1)
		if err != nil || u == nil {
			t.Fatalf("ResolveIdentity = %v, %v", u, err)
		}
	}
	if calls != 1 {
		t.Errorf("обращений к БД = %d, ожидалось 1", calls)
	}

	u, err := svc.ResolveIdentity(ctx, 404)
	if err != nil || u != nil {
		t.Errorf("для отсутствующего пользователя ожидалось (nil, nil), получено (%v, %v)", u, err)
	}

	active = false
	svc.Invalidate(1)
	u, err = svc.ResolveIdentity(ctx, 1)
	if err != nil || u != nil {
		t.Errorf("для неактивного пользователя ожидалось (nil, nil), получено (%v, %v)", u, err)
	}

	repo.getByIDFn = func(context.Context, int64) (*model.User, error) {
		return nil, errors.New("connection refused")
	}
	if _, err := svc.ResolveIdentity(ctx, 2); err == nil {
		t.Error("ожидалась ошибка БД")
	}
}

// TestIdentityService_NoCache проверяет режим без кэша (ttl == 0).
func TestIdentityService_NoCache(t *testing.T) {
	calls := 0
	repo := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*model.User, error) {
			calls++
			return &model.User{ID: id, IsActive: true}, nil
		},
	}
	svc := NewIdentityService(repo, 16, 0, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.ResolveIdentity(context.Background(), 1); err != nil {
			t.Fatalf("ResolveIdentity ошибка: %v", err)
		}
	}
	svc.Invalidate(1)
	if calls != 3 {
		t.Errorf("обращений к БД = %d, ожидалось 3", calls)
	}
}
