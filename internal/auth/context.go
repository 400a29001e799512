package auth

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
)

type contextKey string

const userContextKey contextKey = "user"

// GinUserKey is the gin.Context key the JWT middleware stores the user under
const GinUserKey = "user"

// UserContext is the authenticated caller extracted from the JWT
type UserContext struct {
	UserID int    `json:"user_id"`
	JTI    string `json:"jti"`
}

// WithUser binds user to ctx
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUser returns the user bound to ctx
func GetUser(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, fmt.Errorf("user not found in context")
	}
	return user, nil
}

// GetUserFromContext extracts the user stored by the JWT middleware
func GetUserFromContext(c *gin.Context) (*UserContext, bool) {
	if c == nil {
		return nil, false
	}
	value, exists := c.Get(GinUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*UserContext)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
