package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/bigkaa/scoreteam/internal/domain/model"
	"github.com/bigkaa/scoreteam/internal/domain/report"
	"github.com/bigkaa/scoreteam/internal/repository"
)

// testLogger — логгер, отбрасывающий вывод.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// --- mockUserRepo ---

// mockUserRepo — мок UserRepository для unit-тестов.
type mockUserRepo struct {
	createFn         func(ctx context.Context, u *model.User) error
	getByIDFn        func(ctx context.Context, id int64) (*model.User, error)
	getByUsernameFn  func(ctx context.Context, username string) (*model.User, error)
	listFn           func(ctx context.Context, filters repository.UserListFilters) ([]*model.User, error)
	updateFn         func(ctx context.Context, u *model.User) error
	updatePasswordFn func(ctx context.Context, id int64, hash string) error
	updatePhoneFn    func(ctx context.Context, id int64, phone *string) error
	deleteFn         func(ctx context.Context, id int64) error
	countFn          func(ctx context.Context) (int64, error)
	countActiveFn    func(ctx context.Context) (int64, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	u.ID = 1
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context, filters repository.UserListFilters) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, u)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, id, hash)
	}
	return nil
}

func (m *mockUserRepo) UpdatePhone(ctx context.Context, id int64, phone *string) error {
	if m.updatePhoneFn != nil {
		return m.updatePhoneFn(ctx, id, phone)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockUserRepo) CountActive(ctx context.Context) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx)
	}
	return 0, nil
}

// --- mockAgentRepo ---

// mockAgentRepo — мок AgentRepository.
type mockAgentRepo struct {
	createFn      func(ctx context.Context, a *model.Agent) error
	getByIDFn     func(ctx context.Context, id int64) (*model.Agent, error)
	listFn        func(ctx context.Context, filters repository.AgentListFilters) ([]*model.Agent, error)
	updateFn      func(ctx context.Context, a *model.Agent) error
	deleteFn      func(ctx context.Context, id int64) error
	countActiveFn func(ctx context.Context) (int64, error)
	activeRefsFn  func(ctx context.Context) ([]report.AgentRef, error)
}

func (m *mockAgentRepo) Create(ctx context.Context, a *model.Agent) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	a.ID = 1
	return nil
}

func (m *mockAgentRepo) GetByID(ctx context.Context, id int64) (*model.Agent, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockAgentRepo) List(ctx context.Context, filters repository.AgentListFilters) ([]*model.Agent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockAgentRepo) Update(ctx context.Context, a *model.Agent) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}

func (m *mockAgentRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAgentRepo) CountActive(ctx context.Context) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx)
	}
	return 0, nil
}

func (m *mockAgentRepo) ActiveRefs(ctx context.Context) ([]report.AgentRef, error) {
	if m.activeRefsFn != nil {
		return m.activeRefsFn(ctx)
	}
	return nil, nil
}

// --- mockScoreTypeRepo ---

// mockScoreTypeRepo — мок ScoreTypeRepository.
type mockScoreTypeRepo struct {
	createFn      func(ctx context.Context, st *model.ScoreType) error
	getByIDFn     func(ctx context.Context, id int64) (*model.ScoreType, error)
	listFn        func(ctx context.Context, filters repository.ScoreTypeListFilters) ([]*model.ScoreType, error)
	updateFn      func(ctx context.Context, st *model.ScoreType) error
	deleteFn      func(ctx context.Context, id int64) error
	countActiveFn func(ctx context.Context) (int64, error)
}

func (m *mockScoreTypeRepo) Create(ctx context.Context, st *model.ScoreType) error {
	if m.createFn != nil {
		return m.createFn(ctx, st)
	}
	st.ID = 1
	return nil
}

func (m *mockScoreTypeRepo) GetByID(ctx context.Context, id int64) (*model.ScoreType, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockScoreTypeRepo) List(ctx context.Context, filters repository.ScoreTypeListFilters) ([]*model.ScoreType, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockScoreTypeRepo) Update(ctx context.Context, st *model.ScoreType) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, st)
	}
	return nil
}

func (m *mockScoreTypeRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockScoreTypeRepo) CountActive(ctx context.Context) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx)
	}
	return 0, nil
}

// --- mockScoreRepo ---

// mockScoreRepo — мок ScoreRepository.
type mockScoreRepo struct {
	createFn    func(ctx context.Context, s *model.Score) error
	getByIDFn   func(ctx context.Context, id int64) (*model.Score, error)
	getJoinedFn func(ctx context.Context, id int64) (*report.RawJoinRow, error)
	listFn      func(ctx context.Context, filters repository.ScoreListFilters, limit, offset int) ([]report.RawJoinRow, error)
	countFn     func(ctx context.Context, filters repository.ScoreListFilters) (int64, error)
	updateFn    func(ctx context.Context, s *model.Score) error
	deleteFn    func(ctx context.Context, id int64) error
	factsFn     func(ctx context.Context, period report.Period, agentID *int64) ([]report.RawJoinRow, error)
	countAllFn  func(ctx context.Context) (int64, error)
	recentFn    func(ctx context.Context, n int) ([]report.RawJoinRow, error)
}

func (m *mockScoreRepo) Create(ctx context.Context, s *model.Score) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	s.ID = 1
	return nil
}

func (m *mockScoreRepo) GetByID(ctx context.Context, id int64) (*model.Score, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockScoreRepo) GetJoined(ctx context.Context, id int64) (*report.RawJoinRow, error) {
	if m.getJoinedFn != nil {
		return m.getJoinedFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockScoreRepo) List(ctx context.Context, filters repository.ScoreListFilters, limit, offset int) ([]report.RawJoinRow, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filters, limit, offset)
	}
	return nil, nil
}

func (m *mockScoreRepo) Count(ctx context.Context, filters repository.ScoreListFilters) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filters)
	}
	return 0, nil
}

func (m *mockScoreRepo) Update(ctx context.Context, s *model.Score) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, s)
	}
	return nil
}

func (m *mockScoreRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockScoreRepo) Facts(ctx context.Context, period report.Period, agentID *int64) ([]report.RawJoinRow, error) {
	if m.factsFn != nil {
		return m.factsFn(ctx, period, agentID)
	}
	return nil, nil
}

func (m *mockScoreRepo) CountAll(ctx context.Context) (int64, error) {
	if m.countAllFn != nil {
		return m.countAllFn(ctx)
	}
	return 0, nil
}

func (m *mockScoreRepo) Recent(ctx context.Context, n int) ([]report.RawJoinRow, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, n)
	}
	return nil, nil
}
