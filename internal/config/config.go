package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvProduction = "production"

type Database struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"orgstructure"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnectRetries  int           `env:"DB_CONNECT_RETRIES" envDefault:"5"`
}

func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Kafka struct {
	Brokers []string `env:"KAFKA_BROKER" envSeparator:"," envDefault:"localhost:9092"`
}

type HTTP struct {
	Port         string        `env:"PORT" envDefault:"3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	MetricsPath  string        `env:"METRICS_PATH" envDefault:"/metrics"`
	// limit per IP sebelum auth
	IPRateLimit float64 `env:"HTTP_IP_RATE_LIMIT" envDefault:"20"`
	IPRateBurst int     `env:"HTTP_IP_RATE_BURST" envDefault:"40"`
}

type JWT struct {
	Secret string `env:"JWT_SECRET"`
}

type RBAC struct {
	// kosong = model bawaan
	ModelPath string        `env:"RBAC_MODEL_PATH"`
	PolicyTTL time.Duration `env:"RBAC_POLICY_TTL" envDefault:"1m"`
}

type Cache struct {
	HierarchyTTL time.Duration `env:"HIERARCHY_CACHE_TTL" envDefault:"10m"`
}

type Tx struct {
	MaxAttempts  int           `env:"TX_MAX_ATTEMPTS" envDefault:"3"`
	InitialDelay time.Duration `env:"TX_RETRY_INITIAL_DELAY" envDefault:"50ms"`
	MaxDelay     time.Duration `env:"TX_RETRY_MAX_DELAY" envDefault:"1s"`
}

type Outbox struct {
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"3s"`
	BatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
}

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	Database Database
	Redis    Redis
	Kafka    Kafka
	HTTP     HTTP
	JWT      JWT
	RBAC     RBAC
	Cache    Cache
	Tx       Tx
	Outbox   Outbox
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Load membaca file .env yang ada (tidak wajib), lalu environment.
// Variabel yang sudah di-set di environment tidak ditimpa file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate dipanggil oleh binary API; worker dan consumer tidak butuh JWT.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return ErrMissingJWTSecret
	}
	if c.Tx.MaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1, got %d", c.Tx.MaxAttempts)
	}
	if c.Outbox.BatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1, got %d", c.Outbox.BatchSize)
	}
	return nil
}
