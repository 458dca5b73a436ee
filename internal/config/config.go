// Package config loads server configuration from environment variables.
//
// Every tunable lives in one struct parsed once in main. The `env:` tags map
// fields to variables and `envDefault:` supplies development defaults, so the
// server runs out of the box with just JWT_SECRET set.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all server configuration parameters.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:8081/index.html"`

	Blog     Blog     `envPrefix:"BLOG_"`
	Database Database `envPrefix:"DB_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	JWT      JWT      `envPrefix:"JWT_"`
	GitHub   GitHub   `envPrefix:"GITHUB_"`
}

// Blog contains display properties surfaced by the /info endpoint.
type Blog struct {
	Author         string `env:"AUTHOR" envDefault:"hzj"`
	WelcomeMessage string `env:"WELCOME_MESSAGE" envDefault:"welcome to miniblog"`
}

// Database contains SQLite parameters.
type Database struct {
	Path string `env:"PATH" envDefault:"data/miniblog.db"`
}

// Redis contains connection parameters for the cache / view-counter store.
type Redis struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD" envDefault:""`
	DB       int           `env:"DB" envDefault:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30m"` // post object/list cache expiry
}

// JWT contains token-signing parameters.
type JWT struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"1h"`
}

// GitHub contains OAuth app credentials.
type GitHub struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"` // defaults to localhost callback in main when empty
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return &cfg, nil
}
