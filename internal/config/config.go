package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel        string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr        string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	SQLitePath      string        `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"./master.db"`
	JWTSecret       string        `yaml:"jwt-secret" env:"JWT_SECRET" env-default:"my_super_secret_key"`
	AIMoveDelay     time.Duration `yaml:"ai-move-delay" env:"AI_MOVE_DELAY" env-default:"500ms"`
	SessionTTL      time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
	RoomIdleTimeout time.Duration `yaml:"room-idle-timeout" env:"ROOM_IDLE_TIMEOUT" env-default:"10m"`
	Redis           Redis         `yaml:"redis"`
	Otel            Otel          `yaml:"otel"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type Otel struct {
	Enabled        bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint       string `yaml:"endpoint" env:"OTEL_ENDPOINT" env-default:"otel-collector:4317"`
	ServiceName    string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tic-tac-toe"`
	ServiceVersion string `yaml:"service-version" env:"OTEL_SERVICE_VERSION" env-default:"v0.2.0"`
}

// Load reads the YAML file at path when it exists, then applies environment overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("unable to load config file: %w", err)
			}
			return cfg, nil
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("unable to load config from environment: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
