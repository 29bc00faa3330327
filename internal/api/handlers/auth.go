// auth.go — обработчики /api/auth endpoints.
// Вход по имени и паролю, профиль текущего пользователя, публичный JWKS.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/scoreteam/internal/api/errors"
	"github.com/bigkaa/scoreteam/internal/api/middleware"
)

// Login — POST /api/auth/login.
// Проверяет имя и пароль, возвращает токен и профиль.
// Доступ: публичный.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, "", "username", req.Username)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      mapUser(res.User),
	})
}

// Logout — POST /api/auth/logout.
// Токены не отзываются: клиент просто забывает токен.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Выход пользователя",
		"user_id", middleware.UserIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Выход выполнен"})
}

// GetMe — GET /api/auth/me.
// Доступ: любой аутентифицированный пользователь.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	user, err := h.auth.Me(r.Context(), claims.UserID)
	if err != nil {
		h.writeServiceError(w, r, err, "Пользователь не найден", "user_id", claims.UserID)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// UpdateMe — PATCH /api/auth/me.
// Меняет телефон текущего пользователя.
func (h *APIHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.auth.UpdatePhone(r.Context(), claims.UserID, req.Phone)
	if err != nil {
		h.writeServiceError(w, r, err, "Пользователь не найден", "user_id", claims.UserID)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// GetJWKS — GET /api/auth/jwks.
// Публичный ключ подписи токенов в формате JWK Set.
func (h *APIHandler) GetJWKS(w http.ResponseWriter, r *http.Request) {
	jwks, err := h.tokens.JWKS(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(jwks)
}
