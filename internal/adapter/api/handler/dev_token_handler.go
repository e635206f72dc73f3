package handler

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/domain/entity"
	"farmconnect/internal/infrastructure/firebase"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/response"
)

// DevTokenHandler hands out tokens the development authenticator accepts, so
// two browser tabs can play buyer and farmer without a Firebase project.
type DevTokenHandler struct{}

func NewDevTokenHandler() *DevTokenHandler {
	return &DevTokenHandler{}
}

// GenerateToken serves GET /_dev/token?uid=<id>&role=buyer|farmer.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	identity := entity.Identity{
		UserID: c.QueryParam("uid"),
		Role:   entity.Role(c.QueryParam("role")),
	}
	if !identity.Valid() {
		return response.Error(c, errors.BadRequest("uid and a role of buyer or farmer are required", nil))
	}

	return response.Success(c, map[string]interface{}{
		"token": firebase.DevToken(identity.UserID, identity.Role),
		"user":  identity,
	})
}
