package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dealerdesk/internal/models"
	"dealerdesk/internal/schedule"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
	Catalog    CatalogConfig    `yaml:"catalog"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds
}

// SchedulingConfig is the explicit, overridable engine configuration.
// It replaces any notion of process-wide scheduling defaults.
type SchedulingConfig struct {
	WorkingDays           []string `yaml:"working_days"` // monday..sunday
	DayStart              string   `yaml:"day_start"`
	DayEnd                string   `yaml:"day_end"`
	SlotStepMinutes       int      `yaml:"slot_step_minutes"`
	MaxConcurrentBookings int      `yaml:"max_concurrent_bookings"`
	TestDriveMinutes      int      `yaml:"test_drive_minutes"`
	ReminderTime          string   `yaml:"reminder_time"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

var weekdayNames = map[string]int{
	"sunday":    0,
	"monday":    1,
	"tuesday":   2,
	"wednesday": 3,
	"thursday":  4,
	"friday":    5,
	"saturday":  6,
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment may already carry everything.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand environment references inside the YAML before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	for _, day := range c.Scheduling.WorkingDays {
		if _, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]; !ok {
			return fmt.Errorf("unknown working day %q", day)
		}
	}

	if _, err := schedule.ParseClock(c.Scheduling.DayStart); err != nil {
		return fmt.Errorf("invalid scheduling.day_start: %w", err)
	}
	if _, err := schedule.ParseClock(c.Scheduling.DayEnd); err != nil {
		return fmt.Errorf("invalid scheduling.day_end: %w", err)
	}

	if c.Scheduling.MaxConcurrentBookings < 1 {
		return errors.New("scheduling.max_concurrent_bookings must be at least 1")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if len(c.Scheduling.WorkingDays) == 0 {
		c.Scheduling.WorkingDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	}
	if c.Scheduling.DayStart == "" {
		c.Scheduling.DayStart = "09:00"
	}
	if c.Scheduling.DayEnd == "" {
		c.Scheduling.DayEnd = "18:00"
	}
	if c.Scheduling.SlotStepMinutes == 0 {
		c.Scheduling.SlotStepMinutes = models.DefaultSlotStepMinutes
	}
	if c.Scheduling.MaxConcurrentBookings == 0 {
		c.Scheduling.MaxConcurrentBookings = models.DefaultMaxConcurrentBookings
	}
	if c.Scheduling.TestDriveMinutes == 0 {
		c.Scheduling.TestDriveMinutes = models.DefaultTestDriveMinutes
	}
	if c.Scheduling.ReminderTime == "" {
		c.Scheduling.ReminderTime = fmt.Sprintf("%02d:00", models.ReminderHour)
	}

	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = models.DefaultCacheTTL
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "configs/catalog.yaml"
	}
}

// ScheduleConfig converts the YAML scheduling section into the engine's
// explicit config struct.
func (c *Config) ScheduleConfig() schedule.Config {
	cfg := schedule.Config{
		DayStart:              c.Scheduling.DayStart,
		DayEnd:                c.Scheduling.DayEnd,
		SlotStepMinutes:       c.Scheduling.SlotStepMinutes,
		MaxConcurrentBookings: c.Scheduling.MaxConcurrentBookings,
		TestDriveMinutes:      c.Scheduling.TestDriveMinutes,
	}
	for _, day := range c.Scheduling.WorkingDays {
		if idx, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]; ok {
			cfg.WorkingDays[idx] = true
		}
	}
	return cfg
}

// CacheTTL returns the availability cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTL) * time.Second
}
