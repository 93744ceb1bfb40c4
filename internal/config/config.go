package config

import (
	"crypto/subtle"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug   bool          `yaml:"debug" env:"DEBUG"`
	Limiter Limiter       `yaml:"limiter"`
	Server  Server        `yaml:"server"`
	Storage Storage       `yaml:"storage"`
	Auth    Auth          `yaml:"auth"`
	Cache   Cache         `yaml:"cache"`
	CORS    CORS          `yaml:"cors"`
	Clients ClientsConfig `yaml:"clients"`
}

type Limiter struct {
	Enabled bool    `yaml:"enabled" env:"LIMITER_ENABLED"`
	Rps     float64 `yaml:"rps" env-default:"20"`
	Burst   int     `yaml:"burst" env-default:"5"`
	// requests per minute per IP on account endpoints
	AccountsRpm int `yaml:"accounts_rpm" env-default:"10"`
}

type Server struct {
	Port string `yaml:"port" env:"PORT" env-default:"8000"`
	Host string `yaml:"host" env-default:"localhost"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"35s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Storage struct {
	Driver          string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
	Dsn             string        `yaml:"dsn" env:"DATABASE_DSN"`
	MaxConns        int           `yaml:"max_conns" env-default:"25"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"10m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env-default:"5s"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"STORAGE_AUTO_MIGRATE" env-default:"true"`
}

type Auth struct {
	Secret   string        `yaml:"secret" env:"AUTH_SECRET" env-required:"true"`
	TokenTTL time.Duration `yaml:"token_ttl" env-default:"24h"`
	Admins   []string      `yaml:"admins" env:"AUTH_ADMINS" env-separator:","`
	// AdminKey must accompany admin requests. Admin operations are disabled while it is empty.
	AdminKey string        `yaml:"admin_key" env:"AUTH_ADMIN_KEY"`
}

// IsAdmin reports whether the (normalized) user name is listed as an administrator.
func (a Auth) IsAdmin(name string) bool {
	return slices.Contains(a.Admins, strings.ToLower(strings.TrimSpace(name)))
}

func (a Auth) AdminKeyMatches(key string) bool {
	if a.AdminKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.AdminKey), []byte(key)) == 1
}

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

type Cache struct {
	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED"`
	Driver  string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"`
	TTL     time.Duration `yaml:"ttl" env-default:"60s"`
	Redis   Redis         `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

type OMDbClient struct {
	BaseURL string        `yaml:"base_url" env-default:"https://www.omdbapi.com/"`
	ApiKey  string        `yaml:"api_key" env:"OMDB_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type OpenRouterClient struct {
	BaseURL string        `yaml:"base_url" env-default:"https://openrouter.ai/api/v1"`
	ApiKey  string        `yaml:"api_key" env:"OPENROUTER_API_KEY"`
	Model   string        `yaml:"model" env:"OPENROUTER_MODEL" env-default:"openai/gpt-4o-mini"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
}

type ClientsConfig struct {
	OMDb       OMDbClient       `yaml:"omdb"`
	OpenRouter OpenRouterClient `yaml:"openrouter"`
}

// Load reads the YAML file at configPath, applying env overrides. A .env file in
// the working directory is loaded into the environment first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s not found", configPath)
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	for i, name := range cfg.Auth.Admins {
		cfg.Auth.Admins[i] = strings.ToLower(strings.TrimSpace(name))
	}
	switch cfg.Storage.Driver {
	case StorageDriverPostgres:
		if cfg.Storage.Dsn == "" {
			return nil, fmt.Errorf("storage.dsn is required for the %s driver", StorageDriverPostgres)
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	switch cfg.Cache.Driver {
	case CacheDriverMemory, CacheDriverRedis:
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
	return &cfg, nil
}

func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	return cfg
}
