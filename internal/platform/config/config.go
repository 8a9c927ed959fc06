package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config agrupa toda la configuración del servicio.
// Se lee una sola vez al arrancar (cmd/api) y se pasa hacia abajo explícitamente.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"participation-service"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Vacío => store in-memory (modo dev).
	DBDSN         string `env:"DB_DSN"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	UserDirectoryURL  string        `env:"USER_DIRECTORY_URL"`
	EventDirectoryURL string        `env:"EVENT_DIRECTORY_URL"`
	DirectoryAPIKey   string        `env:"DIRECTORY_API_KEY"`
	DirectoryTimeout  time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"3s"`

	// Protege /internal/*. Vacío => abierto (modo dev).
	ServiceAPIKey string `env:"SERVICE_API_KEY"`

	// Vacío => cache en proceso para Idempotency-Key.
	RedisURL       string        `env:"REDIS_URL"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"10m"`

	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"none"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load lee un .env opcional y después las variables de entorno.
// Las variables ya presentes en el entorno ganan sobre el .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse solo lee el entorno (útil en tests con t.Setenv).
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DirectoryTimeout <= 0 {
		cfg.DirectoryTimeout = 3 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Minute
	}
	return cfg, nil
}

// Addr devuelve la dirección de escucha del server HTTP.
func (c Config) Addr() string {
	return ":" + c.Port
}
