package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	GoogleAPI  GoogleAPIConfig  `mapstructure:"google"`
	Suggestion SuggestionConfig `mapstructure:"suggestion"`
	Demo       DemoConfig       `mapstructure:"demo"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type GoogleAPIConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// SuggestionConfig bounds the cost of a single suggestion request.
type SuggestionConfig struct {
	DefaultMaxCandidates int           `mapstructure:"default_max_candidates"`
	MaxCandidatesLimit   int           `mapstructure:"max_candidates_limit"`
	MaxRangeDays         int           `mapstructure:"max_range_days"`
	MaxAttendees         int           `mapstructure:"max_attendees"`
	MinStepMinutes       int           `mapstructure:"min_step_minutes"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
}

type DemoConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	PatternsPerWeek int  `mapstructure:"patterns_per_week"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var (
	mu       sync.RWMutex
	instance *Config
)

var defaults = map[string]any{
	"server.host":     "0.0.0.0",
	"server.port":     8080,
	"server.base_url": "http://localhost:8080",

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "",
	"database.name":              "fairmeet",
	"database.sslmode":           "disable",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": 30,

	"redis.addr":     "localhost:6379",
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret": "",
	"jwt.issuer": "fairmeet",
	"jwt.ttl":    "24h",

	"google.client_id":     "",
	"google.client_secret": "",
	"google.redirect_uri":  "http://localhost:8080/api/v1/public/calendar/google/callback",

	"suggestion.default_max_candidates": 25,
	"suggestion.max_candidates_limit":   100,
	"suggestion.max_range_days":         31,
	"suggestion.max_attendees":          50,
	"suggestion.min_step_minutes":       5,
	"suggestion.cache_ttl":              "10m",

	"demo.enabled":           false,
	"demo.patterns_per_week": 3,

	"tracing.enabled":      false,
	"tracing.service_name": "fairmeet",
	"tracing.endpoint":     "localhost:4317",
	"tracing.sample_ratio": 1.0,

	"log.level": "info",
}

// Load reads .env (if present) and the environment into the global config.
// Environment keys are the upper-cased config paths, e.g. SUGGESTION_MAX_RANGE_DAYS.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	instance = &cfg
	mu.Unlock()
	return &cfg, nil
}

// Get returns the loaded config. It panics if Load has not succeeded.
func Get() *Config {
	cfg, ok := GetSafe()
	if !ok {
		panic("config: Load must be called before Get")
	}
	return cfg
}

func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}

// Set installs cfg as the global config without reading the environment.
func Set(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	s := c.Suggestion
	if s.DefaultMaxCandidates < 1 || s.MaxCandidatesLimit < s.DefaultMaxCandidates {
		return fmt.Errorf("invalid suggestion candidate limits %d/%d", s.DefaultMaxCandidates, s.MaxCandidatesLimit)
	}
	if s.MaxRangeDays < 1 || s.MaxAttendees < 1 || s.MinStepMinutes < 1 {
		return fmt.Errorf("suggestion bounds must be positive")
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("invalid suggestion cache ttl %s", s.CacheTTL)
	}
	if c.Demo.PatternsPerWeek < 0 {
		return fmt.Errorf("invalid demo patterns per week %d", c.Demo.PatternsPerWeek)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("invalid tracing sample ratio %v", c.Tracing.SampleRatio)
	}
	return nil
}
