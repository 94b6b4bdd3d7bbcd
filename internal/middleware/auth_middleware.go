package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware
const (
	ContextEmail = "email"
	ContextRole  = "role"
)

// InternalKeyHeader carries the shared secret of trusted server-side callers.
const InternalKeyHeader = "X-Internal-Key"

// TokenParser verifies session tokens.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// JWTAuthMiddleware requires a valid bearer token and stores its email and role in the context.
func JWTAuthMiddleware(tokens TokenParser) gin.HandlerFunc {
	const bearerSchema = "Bearer "
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, errutil.Unauthorized("Authorization header is required"))
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abort(c, errutil.Unauthorized("Authorization header must start with Bearer "))
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				abort(c, errutil.Unauthorized("Token has expired"))
				return
			}
			abort(c, errutil.Unauthorized("Invalid token"))
			return
		}

		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole lets the request through only when JWTAuthMiddleware stored one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abort(c, errutil.Forbidden("You do not have permission to access this resource"))
	}
}

// InternalKeyMiddleware guards endpoints called server-to-server, such as the storefront's
// OAuth callback. An empty key disables the endpoint.
func InternalKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			abort(c, errutil.Unauthorized("invalid internal key"))
			return
		}
		c.Next()
	}
}

// Email returns the authenticated email.
func Email(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
