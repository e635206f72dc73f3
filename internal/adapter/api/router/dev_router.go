package router

import (
	"github.com/labstack/echo/v4"

	"farmconnect/internal/adapter/api/handler"
)

// SetupDevRouter exposes development helpers. Callers only invoke it when dev
// auth is enabled.
func SetupDevRouter(e *echo.Echo, enabled bool) {
	if !enabled {
		return
	}
	devTokenHandler := handler.NewDevTokenHandler()

	e.GET("/_dev/token", devTokenHandler.GenerateToken)
}
