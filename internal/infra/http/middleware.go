package http

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"labtrust/internal/domain"
)

const principalKey = "labtrust.principal"

// TokenVerifier reduces a bearer token to claims or a single failure bit.
// Both the in-process verifier and the JWKS-backed remote verifier satisfy it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Claims, bool)
}

// authenticate resolves the Authorization header into a principal stored on
// the gin context. A missing, malformed, or rejected token leaves the request
// anonymous; route policy decides later whether that is acceptable.
func authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}
		claims, ok := verifier.Verify(c.Request.Context(), raw)
		if !ok {
			c.Next()
			return
		}
		principal := domain.PrincipalFromClaims(claims)
		c.Set(principalKey, &principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// principalFrom returns the authenticated principal, or nil for anonymous
// requests.
func principalFrom(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	principal, _ := v.(*domain.Principal)
	return principal
}
