package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// memStore — in-memory хранилище для тестов обработчиков.
// Реализует репозитории через адаптеры agentStore, scoreTypeStore,
// userStore и scoreStore.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	agents map[int64]*model.Agent
	types  map[int64]*model.ScoreType
	users  map[int64]*model.User
	scores map[int64]*model.Score
}

func newMemStore() *memStore {
	return &memStore{
		agents: map[int64]*model.Agent{},
		types:  map[int64]*model.ScoreType{},
		users:  map[int64]*model.User{},
		scores: map[int64]*model.Score{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// --- agents ---

type agentStore struct{ *memStore }

func (s agentStore) Create(_ context.Context, a *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.CreatedAt, a.UpdatedAt = fixedNow, fixedNow
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s agentStore) GetByID(_ context.Context, id int64) (*model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s agentStore) List(_ context.Context, filters repository.AgentListFilters) ([]*model.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*model.Agent{}
	for _, a := range s.agents {
		if filters.IsActive != nil && a.IsActive != *filters.IsActive {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s agentStore) Update(_ context.Context, a *model.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s agentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return repository.ErrNotFound
	}
	for _, sc := range s.scores {
		if sc.AgentID == id {
			return fmt.Errorf("%w: agent", repository.ErrReferenceViolation)
		}
	}
	delete(s.agents, id)
	return nil
}

func (s agentStore) CountActive(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.agents {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

func (s agentStore) ActiveRefs(_ context.Context) ([]report.AgentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := []report.AgentRef{}
	for _, a := range s.agents {
		if a.IsActive {
			refs = append(refs, report.AgentRef{ID: a.ID, Name: a.FullName(), FirstName: a.FirstName, LastName: a.LastName, Found: true})
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

// --- score types ---

type scoreTypeStore struct{ *memStore }

func (s scoreTypeStore) Create(_ context.Context, st *model.ScoreType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if existing.Name == st.Name {
			return fmt.Errorf("%w: тип оценки с таким названием уже существует", repository.ErrConflict)
		}
	}
	st.ID = s.id()
	st.CreatedAt, st.UpdatedAt = fixedNow, fixedNow
	cp := *st
	s.types[st.ID] = &cp
	return nil
}

func (s scoreTypeStore) GetByID(_ context.Context, id int64) (*model.ScoreType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.types[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s scoreTypeStore) List(_ context.Context, filters repository.ScoreTypeListFilters) ([]*model.ScoreType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*model.ScoreType{}
	for _, st := range s.types {
		if filters.IsActive != nil && st.IsActive != *filters.IsActive {
			continue
		}
		if filters.MinValue != nil && st.ScoreValue.LessThan(*filters.MinValue) {
			continue
		}
		if filters.MaxValue != nil && st.ScoreValue.GreaterThan(*filters.MaxValue) {
			continue
		}
		cp := *st
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s scoreTypeStore) Update(_ context.Context, st *model.ScoreType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[st.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *st
	s.types[st.ID] = &cp
	return nil
}

func (s scoreTypeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[id]; !ok {
		return repository.ErrNotFound
	}
	for _, sc := range s.scores {
		if sc.ScoreTypeID == id {
			return fmt.Errorf("%w: score type", repository.ErrReferenceViolation)
		}
	}
	delete(s.types, id)
	return nil
}

func (s scoreTypeStore) CountActive(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, st := range s.types {
		if st.IsActive {
			n++
		}
	}
	return n, nil
}

// --- users ---

type userStore struct{ *memStore }

func (s userStore) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: имя пользователя уже занято", repository.ErrConflict)
		}
	}
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = fixedNow, fixedNow
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s userStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s userStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s userStore) List(_ context.Context, filters repository.UserListFilters) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*model.User{}
	for _, u := range s.users {
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		cp := *u
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s userStore) Update(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *u
	cp.PasswordHash = existing.PasswordHash
	s.users[u.ID] = &cp
	return nil
}

func (s userStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s userStore) UpdatePhone(_ context.Context, id int64, phone *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Phone = phone
	return nil
}

func (s userStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s userStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s userStore) CountActive(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

// --- scores ---

type scoreStore struct{ *memStore }

func (s scoreStore) Create(_ context.Context, sc *model.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(sc); err != nil {
		return err
	}
	sc.ID = s.id()
	sc.CreatedAt, sc.UpdatedAt = fixedNow, fixedNow
	cp := *sc
	s.scores[sc.ID] = &cp
	return nil
}

func (s scoreStore) checkRefs(sc *model.Score) error {
	if _, ok := s.agents[sc.AgentID]; !ok {
		return fmt.Errorf("%w: агент %d не существует", repository.ErrReferenceViolation, sc.AgentID)
	}
	if _, ok := s.types[sc.ScoreTypeID]; !ok {
		return fmt.Errorf("%w: тип оценки %d не существует", repository.ErrReferenceViolation, sc.ScoreTypeID)
	}
	return nil
}

func (s scoreStore) GetByID(_ context.Context, id int64) (*model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

// join собирает строку выборки так же, как LEFT JOIN в PostgreSQL.
func (s scoreStore) join(sc *model.Score) report.RawJoinRow {
	row := report.RawJoinRow{
		ScoreID:     sc.ID,
		AgentID:     sc.AgentID,
		ScoreTypeID: sc.ScoreTypeID,
		AssignedBy:  sc.AssignedBy,
		ScoreDate:   sc.ScoreDate,
		Comment:     sc.Comment,
		CreatedAt:   sc.CreatedAt,
		UpdatedAt:   sc.UpdatedAt,
	}
	if a, ok := s.agents[sc.AgentID]; ok {
		first, last, active := a.FirstName, a.LastName, a.IsActive
		row.AgentFirstName, row.AgentLastName, row.AgentIsActive = &first, &last, &active
	}
	if st, ok := s.types[sc.ScoreTypeID]; ok {
		name := st.Name
		row.ScoreTypeName = &name
		row.ScoreTypeValue = decimal.NullDecimal{Decimal: st.ScoreValue, Valid: true}
	}
	if sc.AssignedBy != nil {
		if u, ok := s.users[*sc.AssignedBy]; ok {
			username, first, last := u.Username, u.FirstName, u.LastName
			row.AssignedByUsername, row.AssignedByFirstName, row.AssignedByLastName = &username, &first, &last
		}
	}
	return row
}

func (s scoreStore) GetJoined(_ context.Context, id int64) (*report.RawJoinRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scores[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	row := s.join(sc)
	return &row, nil
}

func (s scoreStore) filtered(filters repository.ScoreListFilters) []report.RawJoinRow {
	rows := []report.RawJoinRow{}
	for _, sc := range s.scores {
		if filters.AgentID != nil && sc.AgentID != *filters.AgentID {
			continue
		}
		if !filters.Period.Contains(sc.ScoreDate) {
			continue
		}
		rows = append(rows, s.join(sc))
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ScoreDate.Equal(rows[j].ScoreDate) {
			return rows[i].ScoreDate.After(rows[j].ScoreDate)
		}
		return rows[i].ScoreID > rows[j].ScoreID
	})
	return rows
}

func (s scoreStore) List(_ context.Context, filters repository.ScoreListFilters, limit, offset int) ([]report.RawJoinRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filtered(filters)
	if offset >= len(rows) {
		return []report.RawJoinRow{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (s scoreStore) Count(_ context.Context, filters repository.ScoreListFilters) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filtered(filters))), nil
}

func (s scoreStore) Update(_ context.Context, sc *model.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.scores[sc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.checkRefs(sc); err != nil {
		return err
	}
	existing.AgentID = sc.AgentID
	existing.ScoreTypeID = sc.ScoreTypeID
	existing.ScoreDate = sc.ScoreDate
	existing.Comment = sc.Comment
	return nil
}

func (s scoreStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scores[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.scores, id)
	return nil
}

func (s scoreStore) Facts(_ context.Context, period report.Period, agentID *int64) ([]report.RawJoinRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filtered(repository.ScoreListFilters{AgentID: agentID, Period: period})
	// Факты для агрегации — в порядке возрастания даты
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ScoreDate.Before(rows[j].ScoreDate) })
	return rows, nil
}

func (s scoreStore) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.scores)), nil
}

func (s scoreStore) Recent(_ context.Context, n int) ([]report.RawJoinRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.filtered(repository.ScoreListFilters{})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}
