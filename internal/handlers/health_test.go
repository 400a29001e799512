package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Health(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockHealthChecker) Stats() map[string]interface{} {
	return map[string]interface{}{"status": "connected"}
}

type MockStatsInvalidator struct {
	mock.Mock
}

func (m *MockStatsInvalidator) InvalidateUser(ctx context.Context, userID int) error {
	return m.Called(ctx, userID).Error(0)
}

func serveInternal(h *HealthHandler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	NewInternalRouter(h, nil, zap.NewNop(), time.Second).ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		dbErr    error
		redisErr error
		status   int
		overall  string
	}{
		{"healthy", nil, nil, http.StatusOK, "ok"},
		{"database down", errors.New("refused"), nil, http.StatusServiceUnavailable, "unhealthy"},
		{"redis down", nil, errors.New("timeout"), http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockHealthChecker{}
			db.On("Health", mock.Anything).Return(tt.dbErr)
			redis := &MockHealthChecker{}
			redis.On("Health", mock.Anything).Return(tt.redisErr)

			w := serveInternal(NewHealthHandler(db, redis, nil, time.Second, zap.NewNop()), http.MethodGet, "/health")

			assert.Equal(t, tt.status, w.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.overall, body.Status)
			assert.Equal(t, "connected", body.DatabasePool["status"])
			if tt.dbErr != nil {
				assert.Equal(t, "down: refused", body.Services["database"])
			}
		})
	}
}

func TestReady(t *testing.T) {
	db := &MockHealthChecker{}
	db.On("Health", mock.Anything).Return(errors.New("refused"))
	redis := &MockHealthChecker{}

	w := serveInternal(NewHealthHandler(db, redis, nil, time.Second, zap.NewNop()), http.MethodGet, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	redis.AssertNotCalled(t, "Health", mock.Anything)
}

func TestInvalidateUserStats(t *testing.T) {
	db, redis := &MockHealthChecker{}, &MockHealthChecker{}
	invalidator := &MockStatsInvalidator{}
	invalidator.On("InvalidateUser", mock.Anything, 42).Return(nil)
	invalidator.On("InvalidateUser", mock.Anything, 43).Return(errors.New("redis down"))
	h := NewHealthHandler(db, redis, invalidator, time.Second, zap.NewNop())

	assert.Equal(t, http.StatusOK, serveInternal(h, http.MethodPost, "/internal/stats/42/invalidate").Code)
	assert.Equal(t, http.StatusInternalServerError, serveInternal(h, http.MethodPost, "/internal/stats/43/invalidate").Code)
	assert.Equal(t, http.StatusBadRequest, serveInternal(h, http.MethodPost, "/internal/stats/abc/invalidate").Code)
	invalidator.AssertExpectations(t)

	disabled := NewHealthHandler(db, redis, nil, time.Second, zap.NewNop())
	assert.Equal(t, http.StatusOK, serveInternal(disabled, http.MethodPost, "/internal/stats/42/invalidate").Code)
}

func TestPublicRouter_CORSAndRequestID(t *testing.T) {
	clans := &MockClanOperations{}
	clans.On("GetClanByTag", mock.Anything, "ALP").Return(nil, errors.New("boom"))

	handler := NewPublicRouter(&RouterConfig{
		Clans:       clans,
		Requests:    &MockJoinRequestOperations{},
		Leaderboard: &MockLeaderboardOperations{},
		Keys:        staticKey{},
		Revocation:  notRevoked{},
		Logger:      zap.NewNop(),
		CORSOrigins: []string{"https://game.example"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/clan/list", nil)
	req.Header.Set("Origin", "https://game.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "https://game.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/clan/tag/ALP", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestInternalRouter_LogLevel(t *testing.T) {
	h := NewHealthHandler(&MockHealthChecker{}, &MockHealthChecker{}, nil, time.Second, zap.NewNop())
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	router := NewInternalRouter(h, level, zap.NewNop(), time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/internal/log-level", strings.NewReader(`{"level":"debug"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/log-level", nil))
	assert.Contains(t, w.Body.String(), `"level":"debug"`)

	assert.Equal(t, http.StatusNotFound, serveInternal(h, http.MethodGet, "/internal/log-level").Code)
}
