// score_types.go — обработчики /api/score-types endpoints.
package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/repository"
	"github.com/bigkaa/scoreteam/internal/service"
)

// ListScoreTypes — GET /api/score-types.
// is_active: true (по умолчанию), false или all. min_value/max_value — границы score_value.
func (h *APIHandler) ListScoreTypes(w http.ResponseWriter, r *http.Request) {
	filters := repository.ScoreTypeListFilters{
		Search:   queryString(r, "search"),
		IsActive: scoreTypeActiveFilter(r),
		MinValue: queryDecimal(r, "min_value"),
		MaxValue: queryDecimal(r, "max_value"),
	}

	types, err := h.scoreTypes.List(r.Context(), filters)
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, mapScoreTypes(types))
}

// GetScoreType — GET /api/score-types/{id}.
func (h *APIHandler) GetScoreType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	st, err := h.scoreTypes.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Тип оценки не найден", "score_type_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapScoreType(st))
}

// CreateScoreType — POST /api/score-types.
// Дубликат имени — 409. Доступ: admin.
func (h *APIHandler) CreateScoreType(w http.ResponseWriter, r *http.Request) {
	var in service.ScoreTypeInput
	if !decodeJSON(w, r, &in) {
		return
	}

	st, err := h.scoreTypes.Create(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "", "name", in.Name)
		return
	}

	writeJSON(w, http.StatusCreated, mapScoreType(st))
}

// UpdateScoreType — PUT /api/score-types/{id}.
// Новое score_value действует и на уже выставленные оценки этого типа.
func (h *APIHandler) UpdateScoreType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in service.ScoreTypeInput
	if !decodeJSON(w, r, &in) {
		return
	}

	st, err := h.scoreTypes.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err, "Тип оценки не найден", "score_type_id", id)
		return
	}

	writeJSON(w, http.StatusOK, mapScoreType(st))
}

// DeleteScoreType — DELETE /api/score-types/{id}.
// Тип, используемый оценками, удалить нельзя — 409.
func (h *APIHandler) DeleteScoreType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.scoreTypes.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "Тип оценки не найден", "score_type_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// scoreTypeActiveFilter: по умолчанию только активные, "all" — без фильтра.
func scoreTypeActiveFilter(r *http.Request) *bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("is_active")))
	switch v {
	case "all":
		return nil
	case "false", "0":
		f := false
		return &f
	default:
		t := true
		return &t
	}
}

// queryDecimal разбирает числовой query-параметр; некорректное значение игнорируется.
func queryDecimal(r *http.Request, name string) *decimal.Decimal {
	v := queryString(r, name)
	if v == nil {
		return nil
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return nil
	}
	return &d
}
