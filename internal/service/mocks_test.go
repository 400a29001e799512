package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shard-legends/clan-service/internal/models"
)

type MockClanStorage struct {
	mock.Mock
}

func (m *MockClanStorage) GetByID(ctx context.Context, id int) (*models.Clan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanStorage) GetByTag(ctx context.Context, tag string) (*models.Clan, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanStorage) GetByOwner(ctx context.Context, ownerID int) (*models.Clan, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanStorage) GetByIDForUpdate(ctx context.Context, id int) (*models.Clan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanStorage) Create(ctx context.Context, clan *models.Clan) (*models.Clan, error) {
	args := m.Called(ctx, clan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanStorage) UpdateDetails(ctx context.Context, id int, name, tag string) error {
	args := m.Called(ctx, id, name, tag)
	return args.Error(0)
}

func (m *MockClanStorage) SetOwner(ctx context.Context, id, ownerID int) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockClanStorage) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClanStorage) List(ctx context.Context, offset, limit int) ([]*models.Clan, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Clan), args.Error(1)
}

func (m *MockClanStorage) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockClanStorage) ListAll(ctx context.Context) ([]*models.Clan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Clan), args.Error(1)
}

type MockUserStorage struct {
	mock.Mock
}

func (m *MockUserStorage) GetByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStorage) IsInAnyClan(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStorage) AttachToClan(ctx context.Context, userID, clanID int, priv models.Privilege) error {
	args := m.Called(ctx, userID, clanID, priv)
	return args.Error(0)
}

func (m *MockUserStorage) DetachFromClan(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserStorage) DetachAllFromClan(ctx context.Context, clanID int) (int64, error) {
	args := m.Called(ctx, clanID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserStorage) SetPrivilege(ctx context.Context, userID int, priv models.Privilege) error {
	args := m.Called(ctx, userID, priv)
	return args.Error(0)
}

func (m *MockUserStorage) ListByClan(ctx context.Context, clanID int) ([]*models.User, error) {
	args := m.Called(ctx, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserStorage) CountByClan(ctx context.Context, clanID int) (int, error) {
	args := m.Called(ctx, clanID)
	return args.Int(0), args.Error(1)
}

type MockJoinRequestStorage struct {
	mock.Mock
}

func (m *MockJoinRequestStorage) Create(ctx context.Context, req *models.ClanJoinRequest) (*models.ClanJoinRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanJoinRequest), args.Error(1)
}

func (m *MockJoinRequestStorage) GetByID(ctx context.Context, id int) (*models.ClanJoinRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanJoinRequest), args.Error(1)
}

func (m *MockJoinRequestStorage) GetPending(ctx context.Context, clanID, userID int) (*models.ClanJoinRequest, error) {
	args := m.Called(ctx, clanID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanJoinRequest), args.Error(1)
}

func (m *MockJoinRequestStorage) HasPending(ctx context.Context, clanID, userID int) (bool, error) {
	args := m.Called(ctx, clanID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockJoinRequestStorage) UpdateStatus(ctx context.Context, id int, status models.JoinRequestStatus, actionedBy int) error {
	args := m.Called(ctx, id, status, actionedBy)
	return args.Error(0)
}

func (m *MockJoinRequestStorage) ListByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus, offset, limit int) ([]*models.ClanJoinRequest, error) {
	args := m.Called(ctx, clanID, status, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ClanJoinRequest), args.Error(1)
}

func (m *MockJoinRequestStorage) CountByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus) (int, error) {
	args := m.Called(ctx, clanID, status)
	return args.Int(0), args.Error(1)
}

func (m *MockJoinRequestStorage) CancelPendingForUser(ctx context.Context, userID, actionedBy int) (int64, error) {
	args := m.Called(ctx, userID, actionedBy)
	return args.Get(0).(int64), args.Error(1)
}

type MockClanFileStorage struct {
	mock.Mock
}

func (m *MockClanFileStorage) Upsert(ctx context.Context, clanID int, fileType models.ClanFileType, path string) (*models.ClanFile, error) {
	args := m.Called(ctx, clanID, fileType, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanFile), args.Error(1)
}

func (m *MockClanFileStorage) Get(ctx context.Context, clanID int, fileType models.ClanFileType) (*models.ClanFile, error) {
	args := m.Called(ctx, clanID, fileType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanFile), args.Error(1)
}

type MockRankingSource struct {
	mock.Mock
}

func (m *MockRankingSource) Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, offset, limit int) ([]models.ClanLeaderboardItem, error) {
	args := m.Called(ctx, metric, mode, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClanLeaderboardItem), args.Error(1)
}

func (m *MockRankingSource) RankOf(ctx context.Context, metric models.Metric, mode models.GameMode, clanID int) (int, error) {
	args := m.Called(ctx, metric, mode, clanID)
	return args.Int(0), args.Error(1)
}

func (m *MockRankingSource) StatsOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanStats, error) {
	args := m.Called(ctx, mode, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanStats), args.Error(1)
}

func (m *MockRankingSource) GradesOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanGrades, error) {
	args := m.Called(ctx, mode, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanGrades), args.Error(1)
}

func (m *MockRankingSource) CountClans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockAssetStore struct {
	mock.Mock
}

func (m *MockAssetStore) SaveClanAsset(ctx context.Context, clanID int, fileType models.ClanFileType, filename string, data []byte) (string, error) {
	args := m.Called(ctx, clanID, fileType, filename, data)
	return args.String(0), args.Error(1)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordClanOperation(operation string, err error) {
	m.Called(operation, err)
}

func (m *MockMetrics) RecordJoinRequest(action string, err error) {
	m.Called(action, err)
}

func (m *MockMetrics) ObserveLeaderboard(metric, source string, started time.Time) {
	m.Called(metric, source, started)
}

// passthroughTx runs fn directly; transactional rollback is covered in internal/database
type passthroughTx struct {
	calls int
}

func (t *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type mockDeps struct {
	clans    *MockClanStorage
	users    *MockUserStorage
	requests *MockJoinRequestStorage
	files    *MockClanFileStorage
	ranking  *MockRankingSource
	assets   *MockAssetStore
	tx       *passthroughTx
}

func newMockDeps() (*mockDeps, *ServiceDependencies) {
	m := &mockDeps{
		clans:    &MockClanStorage{},
		users:    &MockUserStorage{},
		requests: &MockJoinRequestStorage{},
		files:    &MockClanFileStorage{},
		ranking:  &MockRankingSource{},
		assets:   &MockAssetStore{},
		tx:       &passthroughTx{},
	}
	return m, &ServiceDependencies{
		Clans:        m.clans,
		Users:        m.users,
		JoinRequests: m.requests,
		Files:        m.files,
		Tx:           m.tx,
		Ranking:      m.ranking,
		Assets:       m.assets,
	}
}

func (m *mockDeps) assertExpectations(t mock.TestingT) {
	m.clans.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.requests.AssertExpectations(t)
	m.files.AssertExpectations(t)
	m.ranking.AssertExpectations(t)
	m.assets.AssertExpectations(t)
}
