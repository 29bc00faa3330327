// agents.go — обработчики /api/agents endpoints.
package handlers

import (
	"net/http"

	"github.com/bigkaa/scoreteam/internal/repository"
)

// ListAgents — GET /api/agents.
// Фильтры: search, is_active. Доступ: любой аутентифицированный.
func (h *APIHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	filters := repository.AgentListFilters{
		Search:   queryString(r, "search"),
		IsActive: queryBool(r, "is_active"),
	}

	agents, err := h.agents.List(r.Context(), filters)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, mapAgents(agents))
}

// GetAgent — GET /api/agents/{id}.
func (h *APIHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	agent, err := h.agents.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Агент не найден", "agent_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapAgent(agent))
}

// CreateAgent — POST /api/agents.
// Доступ: admin, evaluator.
func (h *APIHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	agent, err := h.agents.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, mapAgent(agent))
}

// UpdateAgent — PUT /api/agents/{id}.
// Доступ: admin, evaluator.
func (h *APIHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req agentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	agent, err := h.agents.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, "Агент не найден", "agent_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapAgent(agent))
}

// DeleteAgent — DELETE /api/agents/{id}.
// Агента с оценками удалить нельзя — 409. Доступ: admin.
func (h *APIHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.agents.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Агент не найден", "agent_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
