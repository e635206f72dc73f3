package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/usecase"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/response"
)

const (
	ContextUserID = "uid"
	ContextRole   = "role"
)

type AuthMiddleware struct {
	authenticator usecase.Authenticator
}

func NewAuthMiddleware(authenticator usecase.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c.Request())
		if token == "" {
			return response.Error(c, errors.Unauthenticated("Authorization header is required", nil))
		}

		identity, err := m.authenticator.Authenticate(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextRole, identity.Role)
		return next(c)
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the token query parameter browsers use for websockets.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// IdentityFrom reads the identity set by Authenticate.
func IdentityFrom(c echo.Context) entity.Identity {
	userID, _ := c.Get(ContextUserID).(string)
	role, _ := c.Get(ContextRole).(entity.Role)
	return entity.Identity{UserID: userID, Role: role}
}
