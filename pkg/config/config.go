package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	FirebaseProject        string `env:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccount string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseCredentialFile string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	// StoreBackend selects where conversations live: firestore or memory.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"firestore"`
	// DevAuth accepts "dev:<uid>:<role>" bearer tokens. Only honoured in development.
	DevAuth bool `env:"DEV_AUTH" envDefault:"false"`

	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	TypingTTL        time.Duration `env:"TYPING_TTL" envDefault:"5s"`
	SendBufferSize   int           `env:"WS_SEND_BUFFER" envDefault:"64"`
	WriteWait        time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	PongWait         time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	HistoryOnJoin    int           `env:"HISTORY_ON_JOIN" envDefault:"50"`
	CartWriteTimeout time.Duration `env:"CART_WRITE_TIMEOUT" envDefault:"5s"`
}

func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DevAuthEnabled is true only when dev tokens were requested in a development environment.
func (c *Config) DevAuthEnabled() bool {
	return c.DevAuth && c.IsDevelopment()
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store")
		}
	case StoreMemory:
		if !c.IsDevelopment() {
			return fmt.Errorf("the memory store is only allowed in development")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.TypingTTL <= 0 {
		return fmt.Errorf("TYPING_TTL must be positive")
	}
	if c.SendBufferSize <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}
