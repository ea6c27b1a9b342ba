package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig holds application settings from TOML file
type AppConfig struct {
	App struct {
		Name        string `toml:"name"`
		Description string `toml:"description"`
	} `toml:"app"`

	Server struct {
		Port int `toml:"port"`
	} `toml:"server"`

	Limits struct {
		MaxTextLength            int   `toml:"max_text_length"`
		MaxMediaBytes            int64 `toml:"max_media_bytes"`
		InteractionPreviewLength int   `toml:"interaction_preview_length"`
		RecentInteractions       int   `toml:"recent_interactions"`
		DefaultInteractionsLimit int   `toml:"default_interactions_limit"`
		MaxInteractionsLimit     int   `toml:"max_interactions_limit"`
		DashboardDays            int   `toml:"dashboard_days"`
	} `toml:"limits"`

	Health struct {
		CriticalAfter   int64   `toml:"critical_after"`
		MinScore        float64 `toml:"min_score"`
		FailurePenalty  float64 `toml:"failure_penalty"`
		DefaultScore    float64 `toml:"default_score"`
		ResetAtMidnight bool    `toml:"reset_window_at_midnight"`
	} `toml:"health"`

	Scheduler struct {
		Timezone string `toml:"timezone"`
	} `toml:"scheduler"`

	Labels struct {
		Days           []string `toml:"days"`
		ReceivedStatus string   `toml:"received_status"`
		SentStatus     string   `toml:"sent_status"`
	} `toml:"labels"`
}

// Config holds all configuration for the application
type Config struct {
	// Environment variables (secrets)
	PostgresDSN string
	JWTSecret   string

	// Application settings from TOML
	App AppConfig

	// Derived fields
	Location *time.Location
}

// Load reads configuration from environment variables and TOML file
func Load() (*Config, error) {
	appCfg, err := loadAppConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load app config: %w", err)
	}

	cfg := &Config{
		PostgresDSN: os.Getenv("PG_DSN"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		App:         *appCfg,
	}

	// Allow environment variable overrides for some settings
	if envPortStr := os.Getenv("HTTP_PORT"); envPortStr != "" {
		if port, err := strconv.Atoi(envPortStr); err == nil {
			cfg.App.Server.Port = port
		}
	}

	if envTZ := os.Getenv("TZ"); envTZ != "" {
		cfg.App.Scheduler.Timezone = envTZ
	}

	// Validate required fields
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("PG_DSN is required")
	}

	if len(cfg.App.Labels.Days) != 7 {
		return nil, fmt.Errorf("labels.days must contain exactly 7 entries, got %d", len(cfg.App.Labels.Days))
	}

	// Parse timezone
	location, err := time.LoadLocation(cfg.App.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.App.Scheduler.Timezone, err)
	}
	cfg.Location = location

	return cfg, nil
}

// loadAppConfig loads application configuration from TOML file
func loadAppConfig() (*AppConfig, error) {
	configPath := getEnvWithDefault("APP_CONFIG_PATH", "config/app.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	return &config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// DayLabel returns the localized weekday label for t in the configured
// timezone (index 0 is Sunday, matching time.Weekday).
func (c *Config) DayLabel(t time.Time) string {
	return c.App.Labels.Days[int(t.In(c.Location).Weekday())]
}
