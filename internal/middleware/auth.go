package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"carebook-server/internal/models"
	"carebook-server/internal/session"
	"carebook-server/internal/utils"
)

const sessionKey = "session"

// TokenVerifier validates an access token and returns its user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RoleResolver derives the effective role of a user from the store.
type RoleResolver interface {
	Resolve(ctx context.Context, userID string) (models.Role, error)
}

// AuthMiddleware creates a middleware for JWT authentication. The session
// is built in two phases: the token names the user, then the role is read
// from the store. The role is never taken from the token.
func AuthMiddleware(verifier TokenVerifier, resolver RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString, ok := utils.BearerToken(authHeader)
		if !ok {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		userID, err := verifier.Verify(tokenString)
		if err != nil {
			utils.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		snap, err := session.Unauthenticated().Authenticating(userID)
		if err != nil {
			utils.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		role, err := resolver.Resolve(ctx, userID)
		if err != nil {
			utils.FromError(c, err)
			c.Abort()
			return
		}
		if snap, err = snap.WithRole(role); err != nil {
			utils.FromError(c, err)
			c.Abort()
			return
		}

		// Set session information in context for downstream handlers
		c.Set(sessionKey, snap)
		ctx = session.NewContext(ctx, snap)
		ctx = zerolog.Ctx(ctx).With().Str("user_id", userID).Logger().WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware. Principals without any role
// row are refused.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := SessionFromContext(c)
		if !snap.Authenticated() {
			utils.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if snap.Is(allowedRole) {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// SessionFromContext returns the session built by AuthMiddleware, or an
// unauthenticated snapshot.
func SessionFromContext(c *gin.Context) session.Snapshot {
	if v, ok := c.Get(sessionKey); ok {
		if snap, ok := v.(session.Snapshot); ok {
			return snap
		}
	}
	return session.Unauthenticated()
}
