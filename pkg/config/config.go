package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Planner  PlannerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PlannerConfig controls timetable generation defaults and proposal/caching behaviour.
type PlannerConfig struct {
	Enabled            bool
	ProposalTTL        time.Duration
	DefaultHoursPerDay float64
	DefaultDaysCount   int
	DefaultBlocks      []string
	GranularityMinutes int
	MaxDaysCount       int
	CacheEnabled       bool
	CacheTTL           time.Duration
	Timezone           string
	Location           *time.Location
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Planner = PlannerConfig{
		Enabled:            v.GetBool("ENABLE_PLANNER"),
		ProposalTTL:        parseDuration(v.GetString("PLANNER_PROPOSAL_TTL"), 30*time.Minute),
		DefaultHoursPerDay: v.GetFloat64("PLANNER_DEFAULT_HOURS_PER_DAY"),
		DefaultDaysCount:   v.GetInt("PLANNER_DEFAULT_DAYS_COUNT"),
		DefaultBlocks:      splitAndTrim(v.GetString("PLANNER_DEFAULT_BLOCKS")),
		GranularityMinutes: v.GetInt("PLANNER_GRANULARITY_MINUTES"),
		MaxDaysCount:       v.GetInt("PLANNER_MAX_DAYS_COUNT"),
		CacheEnabled:       v.GetBool("PLANNER_CACHE_ENABLED"),
		CacheTTL:           parseDuration(v.GetString("PLANNER_CACHE_TTL"), 10*time.Minute),
		Timezone:           v.GetString("PLANNER_TIMEZONE"),
	}

	loc, err := time.LoadLocation(cfg.Planner.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid PLANNER_TIMEZONE %q: %w", cfg.Planner.Timezone, err)
	}
	cfg.Planner.Location = loc

	if cfg.Planner.GranularityMinutes < 15 {
		return nil, fmt.Errorf("PLANNER_GRANULARITY_MINUTES must be at least 15, got %d", cfg.Planner.GranularityMinutes)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "study_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_PLANNER", true)
	v.SetDefault("PLANNER_PROPOSAL_TTL", "30m")
	v.SetDefault("PLANNER_DEFAULT_HOURS_PER_DAY", 4)
	v.SetDefault("PLANNER_DEFAULT_DAYS_COUNT", 7)
	v.SetDefault("PLANNER_DEFAULT_BLOCKS", "Morning,Afternoon")
	v.SetDefault("PLANNER_GRANULARITY_MINUTES", 30)
	v.SetDefault("PLANNER_MAX_DAYS_COUNT", 366)
	v.SetDefault("PLANNER_CACHE_ENABLED", false)
	v.SetDefault("PLANNER_CACHE_TTL", "10m")
	v.SetDefault("PLANNER_TIMEZONE", "UTC")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
