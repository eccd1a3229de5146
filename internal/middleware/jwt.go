package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextIdentityKey stores the resolved portal identity.
	ContextIdentityKey = "currentIdentity"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.Claims, error)
}

type identityResolver interface {
	IdentityForClaims(ctx context.Context, claims *models.Claims) (models.Identity, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(validator tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			Fail(c, err)
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// ResolveIdentity maps the token claims onto a student, lecturer or admin
// identity. It must run after JWT.
func ResolveIdentity(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			Fail(c, appErrors.ErrUnauthorized)
			return
		}

		identity, err := resolver.IdentityForClaims(c.Request.Context(), claims)
		if err != nil {
			Fail(c, err)
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// ClaimsFrom returns the verified claims or nil.
func ClaimsFrom(c *gin.Context) *models.Claims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.Claims)
	return claims
}

// IdentityFrom returns the resolved identity or nil.
func IdentityFrom(c *gin.Context) models.Identity {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil
	}
	identity, _ := value.(models.Identity)
	return identity
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", appErrors.ErrUnauthorized
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
