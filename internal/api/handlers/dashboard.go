// dashboard.go — обработчики /api/dashboard endpoints.
// Некорректные year/month не дают ошибку: год заменяется текущим, месяц отбрасывается.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/scoreteam/internal/domain/report"
)

// GetDashboardStats — GET /api/dashboard/stats.
func (h *APIHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, mapSummary(summary))
}

// GetMonthlyScores — GET /api/dashboard/monthly-scores?year&month.
func (h *APIHandler) GetMonthlyScores(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	period := report.ParsePeriod(query.Get("year"), query.Get("month"), h.now())

	totals, err := h.dashboard.MonthlyRollup(r.Context(), period)
	if err != nil {
		h.writeServiceError(w, r, err, "", "year", period.Year, "month", period.Month)
		return
	}

	writeJSON(w, http.StatusOK, mapMonthlyTotals(totals))
}

// GetScoreTypesDistribution — GET /api/dashboard/score-types-distribution?year.
func (h *APIHandler) GetScoreTypesDistribution(w http.ResponseWriter, r *http.Request) {
	year := report.ParseYear(r.URL.Query().Get("year"), h.now())

	totals, err := h.dashboard.Distribution(r.Context(), year)
	if err != nil {
		h.writeServiceError(w, r, err, "", "year", year)
		return
	}

	writeJSON(w, http.StatusOK, mapTypeTotals(totals))
}

// GetAgentComparison — GET /api/dashboard/agent-comparison?year.
// Только активные агенты, по убыванию total_points.
func (h *APIHandler) GetAgentComparison(w http.ResponseWriter, r *http.Request) {
	year := report.ParseYear(r.URL.Query().Get("year"), h.now())

	standings, err := h.dashboard.Comparison(r.Context(), year)
	if err != nil {
		h.writeServiceError(w, r, err, "", "year", year)
		return
	}

	writeJSON(w, http.StatusOK, mapStandings(standings))
}

// GetAgentRanking — GET /api/dashboard/agent-ranking.
// Рейтинг активных агентов за всю историю.
func (h *APIHandler) GetAgentRanking(w http.ResponseWriter, r *http.Request) {
	standings, err := h.dashboard.Ranking(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusOK, mapStandings(standings))
}

// GetAgentEvolution — GET /api/dashboard/agent-evolution/{agentId}?year.
// Некорректный agentId даёт пустой результат.
func (h *APIHandler) GetAgentEvolution(w http.ResponseWriter, r *http.Request) {
	year := report.ParseYear(r.URL.Query().Get("year"), h.now())

	agentID, err := strconv.ParseInt(chi.URLParam(r, "agentId"), 10, 64)
	if err != nil || agentID < 1 {
		writeJSON(w, http.StatusOK, []monthlyPointResponse{})
		return
	}

	points, err := h.dashboard.Evolution(r.Context(), agentID, year)
	if err != nil {
		h.writeServiceError(w, r, err, "", "agent_id", agentID, "year", year)
		return
	}

	writeJSON(w, http.StatusOK, mapMonthlyPoints(points))
}
