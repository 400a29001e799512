package middleware

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/auth"
)

const revocationCheckTimeout = 2 * time.Second

// RedisInterface defines the methods needed from Redis for JWT operations
type RedisInterface interface {
	IsJWTRevoked(ctx context.Context, jti string) (bool, error)
}

// KeyProvider returns the key tokens are verified with. It may change at runtime.
type KeyProvider interface {
	PublicKey() *rsa.PublicKey
}

// JWTAuthMiddleware validates RS256 tokens issued by the auth service
type JWTAuthMiddleware struct {
	keys        KeyProvider
	redisClient RedisInterface
	logger      *zap.Logger
}

// NewJWTAuthMiddleware creates a new JWT authentication middleware
func NewJWTAuthMiddleware(keys KeyProvider, redisClient RedisInterface, logger *zap.Logger) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{
		keys:        keys,
		redisClient: redisClient,
		logger:      logger,
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// AuthenticateJWT validates the bearer token and stores the caller in the gin context
func (m *JWTAuthMiddleware) AuthenticateJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing_token", "Missing Authorization header")
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			abortUnauthorized(c, "invalid_token_format", "Invalid Bearer token format")
			return
		}

		publicKey := m.keys.PublicKey()
		if publicKey == nil {
			m.logger.Error("JWT public key is not loaded")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "auth_unavailable",
				"message": "Authentication is temporarily unavailable",
			})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return publicKey, nil
		})
		if err != nil {
			m.logger.Debug("JWT validation failed", zap.Error(err))
			abortUnauthorized(c, "invalid_token_signature", "Invalid JWT signature")
			return
		}
		if !token.Valid {
			abortUnauthorized(c, "invalid_token", "Token is not valid")
			return
		}

		jti, ok := claims["jti"].(string)
		if !ok || jti == "" {
			abortUnauthorized(c, "missing_token_id", "Missing JTI in token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), revocationCheckTimeout)
		defer cancel()

		revoked, err := m.redisClient.IsJWTRevoked(ctx, jti)
		if err != nil {
			// Redis outages must not lock every caller out
			m.logger.Warn("Failed to check token revocation", zap.String("jti", jti), zap.Error(err))
		} else if revoked {
			m.logger.Info("Rejected revoked token", zap.String("jti", jti))
			abortUnauthorized(c, "token_revoked", "Token has been revoked")
			return
		}

		userID, ok := subjectUserID(claims["sub"])
		if !ok {
			abortUnauthorized(c, "missing_user_id", "Missing user_id in token claims")
			return
		}

		user := &auth.UserContext{UserID: userID, JTI: jti}
		c.Set(auth.GinUserKey, user)
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), user))

		c.Next()
	}
}

// subjectUserID accepts sub as a decimal string or a JSON number
func subjectUserID(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case string:
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	case float64:
		id := int(v)
		if float64(id) != v || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
