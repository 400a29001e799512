package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/models"
)

type MockClanOperations struct {
	mock.Mock
}

func (m *MockClanOperations) CreateClan(ctx context.Context, ownerID int, name, tag string, description *string) (*models.Clan, error) {
	args := m.Called(ctx, ownerID, name, tag, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanOperations) JoinClan(ctx context.Context, userID, clanID int) error {
	return m.Called(ctx, userID, clanID).Error(0)
}

func (m *MockClanOperations) LeaveClan(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockClanOperations) TransferOwnership(ctx context.Context, ownerID, targetUserID int) error {
	return m.Called(ctx, ownerID, targetUserID).Error(0)
}

func (m *MockClanOperations) DisbandClan(ctx context.Context, ownerID int) error {
	return m.Called(ctx, ownerID).Error(0)
}

func (m *MockClanOperations) PromoteToOfficer(ctx context.Context, ownerID, targetUserID int) error {
	return m.Called(ctx, ownerID, targetUserID).Error(0)
}

func (m *MockClanOperations) DemoteToMember(ctx context.Context, ownerID, targetUserID int) error {
	return m.Called(ctx, ownerID, targetUserID).Error(0)
}

func (m *MockClanOperations) EditClan(ctx context.Context, ownerID int, newName, newTag *string) (*models.Clan, error) {
	args := m.Called(ctx, ownerID, newName, newTag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanOperations) GetClanByTag(ctx context.Context, tag string) (*models.Clan, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanOperations) ListClans(ctx context.Context, page, pageSize int) (*models.ClanListResponse, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanListResponse), args.Error(1)
}

func (m *MockClanOperations) GetClanDetails(ctx context.Context, clanID int, mode models.GameMode) (*models.ClanDetailsResponse, error) {
	args := m.Called(ctx, clanID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanDetailsResponse), args.Error(1)
}

func (m *MockClanOperations) SetClanAsset(ctx context.Context, userID, clanID int, fileType models.ClanFileType, filename string, data []byte) (string, error) {
	args := m.Called(ctx, userID, clanID, fileType, filename, data)
	return args.String(0), args.Error(1)
}

type MockJoinRequestOperations struct {
	mock.Mock
}

func (m *MockJoinRequestOperations) Submit(ctx context.Context, userID, clanID int) (*models.ClanJoinRequest, error) {
	args := m.Called(ctx, userID, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClanJoinRequest), args.Error(1)
}

func (m *MockJoinRequestOperations) Revoke(ctx context.Context, userID, clanID int) error {
	return m.Called(ctx, userID, clanID).Error(0)
}

func (m *MockJoinRequestOperations) Approve(ctx context.Context, ownerID, requestID, targetUserID int) error {
	return m.Called(ctx, ownerID, requestID, targetUserID).Error(0)
}

func (m *MockJoinRequestOperations) Deny(ctx context.Context, ownerID, requestID int) error {
	return m.Called(ctx, ownerID, requestID).Error(0)
}

func (m *MockJoinRequestOperations) Status(ctx context.Context, userID, clanID int) (*models.JoinRequestStatusResponse, error) {
	args := m.Called(ctx, userID, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JoinRequestStatusResponse), args.Error(1)
}

func (m *MockJoinRequestOperations) ListRequests(ctx context.Context, ownerID, clanID int, status *models.JoinRequestStatus, page, pageSize int) (*models.JoinRequestListResponse, error) {
	args := m.Called(ctx, ownerID, clanID, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JoinRequestListResponse), args.Error(1)
}

type MockLeaderboardOperations struct {
	mock.Mock
}

func (m *MockLeaderboardOperations) Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, page, pageSize int) (*models.LeaderboardResponse, error) {
	args := m.Called(ctx, metric, mode, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LeaderboardResponse), args.Error(1)
}

func (m *MockLeaderboardOperations) DefaultPageSize() int {
	return 25
}

type notRevoked struct{}

func (notRevoked) IsJWTRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

type staticKey struct {
	key *rsa.PublicKey
}

func (s staticKey) PublicKey() *rsa.PublicKey { return s.key }

var (
	signingKeyOnce sync.Once
	signingKey     *rsa.PrivateKey
)

func testSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	signingKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		signingKey = key
	})
	return signingKey
}

func bearer(t *testing.T, userID int) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": strconv.Itoa(userID),
		"jti": "jti-" + strconv.Itoa(userID),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSigningKey(t))
	require.NoError(t, err)
	return "Bearer " + token
}

type testAPI struct {
	clans       *MockClanOperations
	requests    *MockJoinRequestOperations
	leaderboard *MockLeaderboardOperations
	router      *gin.Engine
}

func newTestAPI(t *testing.T, opts Options) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &testAPI{
		clans:       &MockClanOperations{},
		requests:    &MockJoinRequestOperations{},
		leaderboard: &MockLeaderboardOperations{},
		router:      gin.New(),
	}
	SetupRoutes(api.router, &RouterConfig{
		Clans:       api.clans,
		Requests:    api.requests,
		Leaderboard: api.leaderboard,
		Keys:        staticKey{key: &testSigningKey(t).PublicKey},
		Revocation:  notRevoked{},
		Logger:      zap.NewNop(),
		Options:     opts,
	})

	t.Cleanup(func() {
		api.clans.AssertExpectations(t)
		api.requests.AssertExpectations(t)
		api.leaderboard.AssertExpectations(t)
	})
	return api
}
