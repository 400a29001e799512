package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/auth"
)

type MockRevocationStore struct {
	mock.Mock
}

func (m *MockRevocationStore) IsJWTRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

type staticKey struct {
	key *rsa.PublicKey
}

func (s staticKey) PublicKey() *rsa.PublicKey { return s.key }

type authFixture struct {
	key    *rsa.PrivateKey
	store  *MockRevocationStore
	router *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	store := &MockRevocationStore{}
	mw := NewJWTAuthMiddleware(staticKey{key: &key.PublicKey}, store, zap.NewNop())

	router := gin.New()
	router.GET("/me", mw.AuthenticateJWT(), func(c *gin.Context) {
		user, ok := auth.GetUserFromContext(c)
		require.True(t, ok)
		fromCtx, err := auth.GetUser(c.Request.Context())
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"user_id": user.UserID, "jti": fromCtx.JTI})
	})

	return &authFixture{key: key, store: store, router: router}
}

func (f *authFixture) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(f.key)
	require.NoError(t, err)
	return token
}

func (f *authFixture) do(header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func validClaims(sub interface{}) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"jti": "token-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
}

func TestAuthenticateJWT_Valid(t *testing.T) {
	tests := []struct {
		name string
		sub  interface{}
	}{
		{"string subject", "42"},
		{"numeric subject", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.store.On("IsJWTRevoked", mock.Anything, "token-1").Return(false, nil)

			w := f.do("Bearer " + f.sign(t, validClaims(tt.sub)))

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"user_id":42,"jti":"token-1"}`, w.Body.String())
			f.store.AssertExpectations(t)
		})
	}
}

func TestAuthenticateJWT_Rejections(t *testing.T) {
	f := newAuthFixture(t)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("1")).SignedString(other)
	require.NoError(t, err)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("1")).SignedString([]byte("secret"))
	require.NoError(t, err)

	expired := validClaims("1")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	noJTI := validClaims("1")
	delete(noJTI, "jti")

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "missing_token"},
		{"not bearer", "Token abc", "invalid_token_format"},
		{"empty bearer", "Bearer ", "invalid_token_format"},
		{"garbage", "Bearer not.a.jwt", "invalid_token_signature"},
		{"foreign key", "Bearer " + foreign, "invalid_token_signature"},
		{"hmac", "Bearer " + hmac, "invalid_token_signature"},
		{"expired", "Bearer " + f.sign(t, expired), "invalid_token_signature"},
		{"missing jti", "Bearer " + f.sign(t, noJTI), "missing_token_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
	f.store.AssertNotCalled(t, "IsJWTRevoked", mock.Anything, mock.Anything)
}

func TestAuthenticateJWT_Revoked(t *testing.T) {
	f := newAuthFixture(t)
	f.store.On("IsJWTRevoked", mock.Anything, "token-1").Return(true, nil)

	w := f.do("Bearer " + f.sign(t, validClaims("42")))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_revoked", errorCode(t, w))
}

func TestAuthenticateJWT_RedisDownStillAuthenticates(t *testing.T) {
	f := newAuthFixture(t)
	f.store.On("IsJWTRevoked", mock.Anything, "token-1").Return(false, errors.New("connection refused"))

	w := f.do("Bearer " + f.sign(t, validClaims("42")))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticateJWT_BadSubject(t *testing.T) {
	for _, sub := range []interface{}{"abc", "0", 1.5, -3, nil} {
		f := newAuthFixture(t)
		f.store.On("IsJWTRevoked", mock.Anything, "token-1").Return(false, nil)

		claims := validClaims(sub)
		if sub == nil {
			delete(claims, "sub")
		}
		w := f.do("Bearer " + f.sign(t, claims))

		assert.Equal(t, http.StatusUnauthorized, w.Code, "sub %v", sub)
		assert.Equal(t, "missing_user_id", errorCode(t, w))
	}
}

func TestAuthenticateJWT_KeyNotLoaded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mw := NewJWTAuthMiddleware(staticKey{}, &MockRevocationStore{}, zap.NewNop())

	router := gin.New()
	router.GET("/me", mw.AuthenticateJWT(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer x.y.z")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
