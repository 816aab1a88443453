package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/pkg/auth"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

const ContextIdentity = "identity"

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate reads the bearer token and stores the current-user record in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}

		identity, err := m.tokens.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// RequireRole stops the request unless the current user has one of roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := Identity(c)
		for _, r := range roles {
			if who.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden("insufficient role"))
	}
}

// Identity returns the current user, or the zero Identity on public routes.
func Identity(c *gin.Context) model.Identity {
	if v, ok := c.Get(ContextIdentity); ok {
		if identity, ok := v.(model.Identity); ok {
			return identity
		}
	}
	return model.Identity{}
}
