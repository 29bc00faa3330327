// scores.go — обработчики /api/scores endpoints.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/bigkaa/scoreteam/internal/api/middleware"
	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/service"
)

// ListScores — GET /api/scores.
// Фильтры: agent_id, year, month. Без year — вся история.
// Пагинация: page (1), limit (10, не более 100).
func (h *APIHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	q := service.ScoreQuery{
		Period: report.AllTime,
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}
	if v := queryString(r, "agent_id"); v != nil {
		if id, err := strconv.ParseInt(*v, 10, 64); err == nil {
			q.AgentID = &id
		}
	}
	if year := queryString(r, "year"); year != nil {
		q.Period = report.ParsePeriod(*year, r.URL.Query().Get("month"), h.now())
	}

	page, err := h.scores.List(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, scorePageResponse{
		Items: mapScores(page.Items),
		Pagination: paginationResponse{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// GetScore — GET /api/scores/{id}.
func (h *APIHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	score, err := h.scores.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Оценка не найдена", "score_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapScore(*score))
}

// CreateScore — POST /api/scores.
// Автор оценки — текущий пользователь. Доступ: admin, evaluator.
func (h *APIHandler) CreateScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	callerID := middleware.UserIDFromContext(r.Context())
	score, err := h.scores.Create(r.Context(), req.toInput(), callerID)
	if err != nil {
		h.writeServiceError(w, r, err, "", "agent_id", req.AgentID, "score_type_id", req.ScoreTypeID)
		return
	}

	writeJSON(w, http.StatusCreated, mapScore(*score))
}

// UpdateScore — PUT /api/scores/{id}.
// assigned_by не меняется.
func (h *APIHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	score, err := h.scores.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, "Оценка не найдена", "score_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapScore(*score))
}

// DeleteScore — DELETE /api/scores/{id}.
func (h *APIHandler) DeleteScore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.scores.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Оценка не найдена", "score_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
