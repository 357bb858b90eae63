package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/pkg/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userKey   = "sehatsetu.user"
	claimsKey = "sehatsetu.claims"
)

type TokenValidator interface {
	ValidateAccessToken(token string) (*domain.Claims, error)
}

type UserResolver interface {
	Resolve(ctx context.Context, claims *domain.Claims) (*domain.User, error)
}

// VerifyToken validates the bearer token without requiring a registered
// user. It guards the route that registers users.
func VerifyToken(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := bearerClaims(c, tokens); ok {
			c.Next()
		}
	}
}

// Authenticate validates the bearer token and loads the user it names.
func Authenticate(tokens TokenValidator, users UserResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, tokens)
		if !ok {
			return
		}

		user, err := users.Resolve(c.Request.Context(), claims)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not registered"})
				return
			}
			log.Error("resolving token subject", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "an unexpected error occurred"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// bearerClaims aborts the request when the token is missing or invalid.
func bearerClaims(c *gin.Context, tokens TokenValidator) (*domain.Claims, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
		return nil, false
	}

	claims, err := tokens.ValidateAccessToken(strings.TrimSpace(raw))
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "token has expired"
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return nil, false
	}

	c.Set(claimsKey, claims)
	return claims, true
}

// RequireRole must run after Authenticate.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !slices.Contains(roles, user.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*domain.User)
	return u
}

// Claims is what the bearer token asserted; nil before VerifyToken or
// Authenticate ran.
func Claims(c *gin.Context) *domain.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.Claims)
	return claims
}

// Actor is the resolved caller for service calls.
func Actor(c *gin.Context) domain.Actor {
	u := CurrentUser(c)
	if u == nil {
		return domain.Actor{IP: c.ClientIP()}
	}
	return u.Actor(c.ClientIP())
}

// SetUser is for tests that bypass token validation.
func SetUser(c *gin.Context, u *domain.User) {
	c.Set(userKey, u)
}

// SetClaims is for tests that bypass token validation.
func SetClaims(c *gin.Context, claims *domain.Claims) {
	c.Set(claimsKey, claims)
}
