package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careslot/booking-api/internal/handler"
	"github.com/careslot/booking-api/internal/model"
	"github.com/careslot/booking-api/internal/service/auth"
)

const ContextPrincipal = "principal"

type AuthMiddleware struct {
	svc *auth.Service
}

func NewAuthMiddleware(svc *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{svc: svc}
}

// Authenticate validates the bearer token and stores the caller's
// principal in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("authorization header required"))
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("bearer token required"))
			return
		}

		principal, err := m.svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(ContextPrincipal, *principal)
		c.Next()
	}
}

// Principal returns the authenticated caller set by Authenticate.
func Principal(c *gin.Context) (model.Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return model.Principal{}, false
	}
	principal, ok := v.(model.Principal)
	return principal, ok
}
