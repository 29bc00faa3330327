package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period — окно отчёта: год и необязательный месяц.
// Year == 0 означает всю историю, Month == 0 — весь год.
type Period struct {
	Year  int
	Month int
}

// AllTime — окно без ограничения по дате.
var AllTime = Period{}

// ParsePeriod разбирает параметры year и month из запроса.
// Некорректные значения не считаются ошибкой: год заменяется текущим,
// месяц отбрасывается.
func ParsePeriod(year, month string, now time.Time) Period {
	p := Period{Year: ParseYear(year, now)}

	if m, err := strconv.Atoi(strings.TrimSpace(month)); err == nil && m >= 1 && m <= 12 {
		p.Month = m
	}
	return p
}

// ParseYear возвращает год из строки или текущий год, если строка некорректна.
func ParseYear(year string, now time.Time) int {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1 || y > 9999 {
		return now.Year()
	}
	return y
}

// Contains проверяет, попадает ли дата в окно.
func (p Period) Contains(d time.Time) bool {
	if p.Year == 0 {
		return true
	}
	if d.Year() != p.Year {
		return false
	}
	return p.Month == 0 || int(d.Month()) == p.Month
}

// Bounds возвращает полуинтервал дат [from, to) окна в UTC.
// Для AllTime ok == false: ограничения по дате нет.
func (p Period) Bounds() (from, to time.Time, ok bool) {
	if p.Year == 0 {
		return time.Time{}, time.Time{}, false
	}
	if p.Month == 0 {
		from = time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	}
	from = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0), true
}

// Counts — четыре независимых счётчика сводки дашборда.
type Counts struct {
	ActiveAgents     int64
	Scores           int64
	ActiveScoreTypes int64
	ActiveUsers      int64
}

// Summary — сводка дашборда: счётчики и последние оценки.
type Summary struct {
	Counts
	Recent []ExpandedScore
}

// BuildSummary собирает сводку из независимо полученных счётчиков
// и строк последних оценок.
func BuildSummary(counts Counts, recent []RawJoinRow) Summary {
	return Summary{Counts: counts, Recent: ExpandAll(recent)}
}

// MonthlyTotal — сумма баллов агента за один месяц.
type MonthlyTotal struct {
	AgentID    int64
	AgentName  string
	Month      int
	TotalScore decimal.Decimal
	ScoreCount int
}

// MonthlyRollup группирует факты окна по (агент, месяц) и суммирует баллы.
// Пустые пары не выводятся. Активность агента не учитывается.
// Порядок: месяц, имя агента, ID агента.
func MonthlyRollup(rows []RawJoinRow, period Period) []MonthlyTotal {
	type key struct {
		agentID int64
		month   int
	}

	groups := make(map[key]*MonthlyTotal)
	for _, r := range rows {
		if !period.Contains(r.ScoreDate) {
			continue
		}
		k := key{agentID: r.AgentID, month: int(r.ScoreDate.Month())}
		g, ok := groups[k]
		if !ok {
			g = &MonthlyTotal{
				AgentID:    r.AgentID,
				AgentName:  AgentName(r.AgentFirstName, r.AgentLastName),
				Month:      k.month,
				TotalScore: decimal.Zero,
			}
			groups[k] = g
		}
		g.TotalScore = g.TotalScore.Add(r.value())
		g.ScoreCount++
	}

	result := make([]MonthlyTotal, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.AgentName != b.AgentName {
			return a.AgentName < b.AgentName
		}
		return a.AgentID < b.AgentID
	})
	return result
}

// MonthlyPoint — точка помесячной динамики одного агента.
type MonthlyPoint struct {
	Month      int
	TotalScore decimal.Decimal
	ScoreCount int
}

// Evolution — помесячная динамика агента за окно.
// Совпадает с MonthlyRollup, отфильтрованным по агенту.
func Evolution(rows []RawJoinRow, agentID int64, period Period) []MonthlyPoint {
	result := []MonthlyPoint{}
	for _, m := range MonthlyRollup(rows, period) {
		if m.AgentID != agentID {
			continue
		}
		result = append(result, MonthlyPoint{
			Month:      m.Month,
			TotalScore: m.TotalScore,
			ScoreCount: m.ScoreCount,
		})
	}
	return result
}

// TypeTotal — количество и сумма баллов по одному типу оценки.
type TypeTotal struct {
	Name       string
	Count      int
	TotalValue decimal.Decimal
}

// Distribution группирует факты окна по имени типа оценки.
// Порядок: по убыванию количества, при равенстве — по первому появлению.
func Distribution(rows []RawJoinRow, period Period) []TypeTotal {
	index := make(map[string]int)
	result := []TypeTotal{}

	for _, r := range rows {
		if !period.Contains(r.ScoreDate) {
			continue
		}
		name := typeName(r.ScoreTypeName)
		i, ok := index[name]
		if !ok {
			i = len(result)
			index[name] = i
			result = append(result, TypeTotal{Name: name, TotalValue: decimal.Zero})
		}
		result[i].Count++
		result[i].TotalValue = result[i].TotalValue.Add(r.value())
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// AgentStanding — итоги агента для сравнения и рейтинга.
type AgentStanding struct {
	AgentID       int64
	AgentName     string
	TotalScores   int
	TotalPoints   decimal.Decimal
	AvgScore      decimal.Decimal
	LastScoreDate *time.Time
}

// HasScores сообщает, есть ли у агента оценки в окне.
func (s AgentStanding) HasScores() bool {
	return s.TotalScores > 0
}

// Comparison считает итоги каждого переданного агента за окно.
// agents — только активные агенты; факты остальных агентов игнорируются.
// Порядок: по убыванию total_points, агенты без оценок — в конце,
// равные значения сохраняют порядок agents.
func Comparison(agents []AgentRef, rows []RawJoinRow, period Period) []AgentStanding {
	index := make(map[int64]int, len(agents))
	result := make([]AgentStanding, len(agents))
	for i, a := range agents {
		index[a.ID] = i
		name := a.Name
		if name == "" {
			name = AgentName(&a.FirstName, &a.LastName)
		}
		result[i] = AgentStanding{
			AgentID:     a.ID,
			AgentName:   name,
			TotalPoints: decimal.Zero,
			AvgScore:    decimal.Zero,
		}
	}

	for _, r := range rows {
		i, ok := index[r.AgentID]
		if !ok || !period.Contains(r.ScoreDate) {
			continue
		}
		s := &result[i]
		s.TotalScores++
		s.TotalPoints = s.TotalPoints.Add(r.value())
		if s.LastScoreDate == nil || r.ScoreDate.After(*s.LastScoreDate) {
			d := r.ScoreDate
			s.LastScoreDate = &d
		}
	}

	for i := range result {
		result[i].AvgScore = Average(result[i].TotalPoints, result[i].TotalScores)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.HasScores() != b.HasScores() {
			return a.HasScores()
		}
		return a.TotalPoints.GreaterThan(b.TotalPoints)
	})
	return result
}

// Ranking — рейтинг активных агентов за всю историю (для «пьедестала»).
func Ranking(agents []AgentRef, rows []RawJoinRow) []AgentStanding {
	return Comparison(agents, rows, AllTime)
}

// Average возвращает total / n или 0 при n == 0.
func Average(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n)))
}
