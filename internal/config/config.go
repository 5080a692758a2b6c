package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath          string        `env:"DB_PATH" envDefault:"data/klogame.db"`
	CatalogURL      string        `env:"CATALOG_URL" envDefault:"http://localhost:3000"`
	LogLevel        slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir          string        `env:"SPA_DIR" envDefault:""`
	PositionTimeout time.Duration `env:"POSITION_TIMEOUT" envDefault:"10s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
