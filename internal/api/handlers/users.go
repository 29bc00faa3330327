// users.go — обработчики /api/users endpoints.
// Управление учётными записями. Доступ: admin (проверяется в роутере).
package handlers

import (
	"net/http"

	"github.com/bigkaa/scoreteam/internal/api/middleware"
	"github.com/bigkaa/scoreteam/internal/repository"
	"github.com/bigkaa/scoreteam/internal/service"
)

// ListUsers — GET /api/users.
// Фильтры: search, role, is_active.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filters := repository.UserListFilters{
		Search:   queryString(r, "search"),
		Role:     queryString(r, "role"),
		IsActive: queryBool(r, "is_active"),
	}

	users, err := h.users.List(r.Context(), filters)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, mapUsers(users))
}

// GetUser — GET /api/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Пользователь не найден", "user_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// CreateUser — POST /api/users.
// Дубликат username или email — 409.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "", "username", in.Username)
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(user))
}

// UpdateUser — PUT /api/users/{id}.
// Пустой password оставляет пароль без изменений.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in service.UserInput
	if !decodeJSON(w, r, &in) {
		return
	}

	user, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "Пользователь не найден", "user_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// DeleteUser — DELETE /api/users/{id}.
// Удалить собственную учётную запись нельзя.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	callerID := middleware.UserIDFromContext(r.Context())
	if err := h.users.Delete(r.Context(), id, callerID); err != nil {
		h.writeServiceError(w, r, err, "Пользователь не найден", "user_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
