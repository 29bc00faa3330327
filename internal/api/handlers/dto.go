// dto.go — JSON-представления запросов и ответов API.
// Значения баллов отдаются числами JSON, даты — в формате YYYY-MM-DD.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/service"
)

// --- Запросы ---

// loginRequest — тело POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// updateMeRequest — тело PATCH /api/auth/me.
type updateMeRequest struct {
	Phone *string `json:"phone"`
}

// agentRequest — тело создания и обновления агента.
type agentRequest struct {
	FirstName string              `json:"first_name"`
	LastName  string              `json:"last_name"`
	Area      string              `json:"area"`
	Position  string              `json:"position"`
	HireDate  *openapi_types.Date `json:"hire_date"`
	Email     *string             `json:"email"`
	Phone     *string             `json:"phone"`
	IsActive  *bool               `json:"is_active"`
}

func (req agentRequest) toInput() service.AgentInput {
	in := service.AgentInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Area:      req.Area,
		Position:  req.Position,
		Email:     req.Email,
		Phone:     req.Phone,
		IsActive:  req.IsActive,
	}
	if req.HireDate != nil {
		in.HireDate = req.HireDate.Time
	}
	return in
}

// scoreRequest — тело создания и обновления оценки.
type scoreRequest struct {
	AgentID     int64               `json:"agent_id"`
	ScoreTypeID int64               `json:"score_type_id"`
	ScoreDate   *openapi_types.Date `json:"score_date"`
	Comment     *string             `json:"comment"`
}

func (req scoreRequest) toInput() service.ScoreInput {
	in := service.ScoreInput{
		AgentID:     req.AgentID,
		ScoreTypeID: req.ScoreTypeID,
		Comment:     req.Comment,
	}
	if req.ScoreDate != nil {
		in.ScoreDate = req.ScoreDate.Time
	}
	return in
}

// --- Ответы ---

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	Phone     *string   `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type agentResponse struct {
	ID        int64              `json:"id"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Area      string             `json:"area"`
	Position  string             `json:"position"`
	HireDate  openapi_types.Date `json:"hire_date"`
	Email     *string            `json:"email"`
	Phone     *string            `json:"phone"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type scoreTypeResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ScoreValue  float64   `json:"score_value"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type scoreAgentRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type scoreTypeRef struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	ScoreValue float64 `json:"score_value"`
}

type scoreUserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type scoreResponse struct {
	ID         int64              `json:"id"`
	ScoreDate  openapi_types.Date `json:"score_date"`
	Comment    *string            `json:"comment"`
	Agent      scoreAgentRef      `json:"agent"`
	ScoreType  scoreTypeRef       `json:"score_type"`
	AssignedBy *scoreUserRef      `json:"assigned_by"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type scorePageResponse struct {
	Items      []scoreResponse    `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type statsResponse struct {
	TotalAgents     int64           `json:"total_agents"`
	TotalScores     int64           `json:"total_scores"`
	TotalScoreTypes int64           `json:"total_score_types"`
	TotalUsers      int64           `json:"total_users"`
	RecentScores    []scoreResponse `json:"recent_scores"`
}

type monthlyTotalResponse struct {
	AgentID    int64   `json:"agent_id"`
	AgentName  string  `json:"agent_name"`
	Month      int     `json:"month"`
	TotalScore float64 `json:"total_score"`
	ScoreCount int     `json:"score_count"`
}

type monthlyPointResponse struct {
	Month      int     `json:"month"`
	TotalScore float64 `json:"total_score"`
	ScoreCount int     `json:"score_count"`
}

type typeTotalResponse struct {
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

type standingResponse struct {
	AgentID       int64               `json:"agent_id"`
	AgentName     string              `json:"agent_name"`
	TotalScores   int                 `json:"total_scores"`
	TotalPoints   float64             `json:"total_points"`
	AvgScore      float64             `json:"avg_score"`
	LastScoreDate *openapi_types.Date `json:"last_score_date,omitempty"`
}

// --- Маппинг domain → API ---

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func date(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: t}
}

func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func mapUsers(users []*model.User) []userResponse {
	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = mapUser(u)
	}
	return items
}

func mapAgent(a *model.Agent) agentResponse {
	return agentResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Area:      a.Area,
		Position:  a.Position,
		HireDate:  date(a.HireDate),
		Email:     a.Email,
		Phone:     a.Phone,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func mapAgents(agents []*model.Agent) []agentResponse {
	items := make([]agentResponse, len(agents))
	for i, a := range agents {
		items[i] = mapAgent(a)
	}
	return items
}

func mapScoreType(st *model.ScoreType) scoreTypeResponse {
	return scoreTypeResponse{
		ID:          st.ID,
		Name:        st.Name,
		Description: st.Description,
		ScoreValue:  number(st.ScoreValue),
		IsActive:    st.IsActive,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

func mapScoreTypes(types []*model.ScoreType) []scoreTypeResponse {
	items := make([]scoreTypeResponse, len(types))
	for i, st := range types {
		items[i] = mapScoreType(st)
	}
	return items
}

func mapScore(es report.ExpandedScore) scoreResponse {
	resp := scoreResponse{
		ID:        es.ID,
		ScoreDate: date(es.ScoreDate),
		Comment:   es.Comment,
		Agent: scoreAgentRef{
			ID:        es.Agent.ID,
			Name:      es.Agent.Name,
			FirstName: es.Agent.FirstName,
			LastName:  es.Agent.LastName,
		},
		ScoreType: scoreTypeRef{
			ID:         es.ScoreType.ID,
			Name:       es.ScoreType.Name,
			ScoreValue: number(es.ScoreType.Value),
		},
		CreatedAt: es.CreatedAt,
		UpdatedAt: es.UpdatedAt,
	}
	if es.AssignedBy != nil {
		resp.AssignedBy = &scoreUserRef{
			ID:       es.AssignedBy.ID,
			Username: es.AssignedBy.Username,
			Name:     es.AssignedBy.Name,
		}
	}
	return resp
}

func mapScores(scores []report.ExpandedScore) []scoreResponse {
	items := make([]scoreResponse, len(scores))
	for i, es := range scores {
		items[i] = mapScore(es)
	}
	return items
}

func mapSummary(s report.Summary) statsResponse {
	return statsResponse{
		TotalAgents:     s.ActiveAgents,
		TotalScores:     s.Scores,
		TotalScoreTypes: s.ActiveScoreTypes,
		TotalUsers:      s.ActiveUsers,
		RecentScores:    mapScores(s.Recent),
	}
}

func mapMonthlyTotals(totals []report.MonthlyTotal) []monthlyTotalResponse {
	items := make([]monthlyTotalResponse, len(totals))
	for i, m := range totals {
		items[i] = monthlyTotalResponse{
			AgentID:    m.AgentID,
			AgentName:  m.AgentName,
			Month:      m.Month,
			TotalScore: number(m.TotalScore),
			ScoreCount: m.ScoreCount,
		}
	}
	return items
}

func mapMonthlyPoints(points []report.MonthlyPoint) []monthlyPointResponse {
	items := make([]monthlyPointResponse, len(points))
	for i, p := range points {
		items[i] = monthlyPointResponse{
			Month:      p.Month,
			TotalScore: number(p.TotalScore),
			ScoreCount: p.ScoreCount,
		}
	}
	return items
}

func mapTypeTotals(totals []report.TypeTotal) []typeTotalResponse {
	items := make([]typeTotalResponse, len(totals))
	for i, t := range totals {
		items[i] = typeTotalResponse{
			Name:       t.Name,
			Count:      t.Count,
			TotalValue: number(t.TotalValue),
		}
	}
	return items
}

func mapStandings(standings []report.AgentStanding) []standingResponse {
	items := make([]standingResponse, len(standings))
	for i, s := range standings {
		items[i] = standingResponse{
			AgentID:     s.AgentID,
			AgentName:   s.AgentName,
			TotalScores: s.TotalScores,
			TotalPoints: number(s.TotalPoints),
			AvgScore:    number(s.AvgScore),
		}
		if s.LastScoreDate != nil {
			d := date(*s.LastScoreDate)
			items[i].LastScoreDate = &d
		}
	}
	return items
}
