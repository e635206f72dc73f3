package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"farmconnect/internal/domain/entity"
	ws "farmconnect/internal/infrastructure/websocket"
)

func TestHealthCheck(t *testing.T) {
	// Setup
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	registry := ws.NewRegistry(ws.Options{})
	_, err := registry.Register(nil, entity.Identity{UserID: "buyer-1", Role: entity.RoleBuyer})
	assert.NoError(t, err)

	// Assertions
	if assert.NoError(t, NewHealthHandler(registry).CheckHealth(c)) {
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Server is running")
		assert.Contains(t, rec.Body.String(), `"sessions":1`)
	}
}
