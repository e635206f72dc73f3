package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "farmconnect-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreFirestore, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.TypingTTL)
	assert.Equal(t, 64, cfg.SendBufferSize)
	assert.Equal(t, 50, cfg.HistoryOnJoin)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.DevAuthEnabled())
}

func TestLoad_MemoryStoreWithDevAuth(t *testing.T) {
	t.Setenv("STORE_BACKEND", StoreMemory)
	t.Setenv("DEV_AUTH", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://farmconnect.app,http://localhost:3000")
	t.Setenv("TYPING_TTL", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.DevAuthEnabled())
	assert.Equal(t, []string{"https://farmconnect.app", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.TypingTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"firestore without project", map[string]string{"FIREBASE_PROJECT_ID": ""}},
		{"memory store in production", map[string]string{"STORE_BACKEND": StoreMemory, "ENVIRONMENT": "production"}},
		{"unknown store", map[string]string{"STORE_BACKEND": "redis"}},
		{"zero typing ttl", map[string]string{"STORE_BACKEND": StoreMemory, "TYPING_TTL": "0s"}},
		{"zero send buffer", map[string]string{"STORE_BACKEND": StoreMemory, "WS_SEND_BUFFER": "0"}},
		{"unparsable duration", map[string]string{"STORE_BACKEND": StoreMemory, "TYPING_TTL": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDevAuthIgnoredOutsideDevelopment(t *testing.T) {
	cfg := Config{Environment: "production", DevAuth: true}
	assert.False(t, cfg.DevAuthEnabled())
}
