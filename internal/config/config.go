package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"runcoach/internal/analysis"
	"runcoach/internal/load"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig   `json:"strava"`
	Athlete  AthleteConfig  `json:"athlete"`
	Telegram TelegramConfig `json:"telegram"`
	Storage  StorageConfig  `json:"storage"`
	Schedule ScheduleConfig `json:"schedule"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	UserID      string  `json:"user_id"`
	RestHR      float64 `json:"rest_hr"`
	MaxHR       float64 `json:"max_hr"`
	RaceDate    string  `json:"race_date"` // YYYY-MM-DD, empty when no race is planned
	CurrentGoal string  `json:"current_goal"`
}

// TelegramConfig holds the bot credentials and the chat briefings go to
type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	ChatID   int64  `json:"chat_id"`
}

// StorageConfig selects the run ledger backend
type StorageConfig struct {
	Driver      string `json:"driver"`
	SQLitePath  string `json:"sqlite_path"`
	PostgresURL string `json:"postgres_url"`
}

// ScheduleConfig holds cron specs (with seconds field) for the daemon
type ScheduleConfig struct {
	Timezone string `json:"timezone"`
	Harvest  string `json:"harvest"`
	Briefing string `json:"briefing"`
}

// MetricsConfig holds the Prometheus listener address
type MetricsConfig struct {
	Address string `json:"address"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

const defaultUserID = "me"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			UserID:      defaultUserID,
			RestHR:      analysis.DefaultRestHR,
			MaxHR:       analysis.DefaultMaxHR,
			CurrentGoal: load.DefaultGoal,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Schedule: ScheduleConfig{
			Timezone: "Local",
			Harvest:  "0 15 0,6,12,18 * * *",
			Briefing: "0 0 6 * * *",
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load reads the configuration file at path (DefaultPath when empty),
// fills unset values with defaults and applies RUNCOACH_* environment
// overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Strava.ClientID = getEnv("RUNCOACH_STRAVA_CLIENT_ID", c.Strava.ClientID)
	c.Strava.ClientSecret = getEnv("RUNCOACH_STRAVA_CLIENT_SECRET", c.Strava.ClientSecret)
	c.Telegram.BotToken = getEnv("RUNCOACH_TELEGRAM_TOKEN", c.Telegram.BotToken)
	c.Telegram.ChatID = getInt64Env("RUNCOACH_TELEGRAM_CHAT_ID", c.Telegram.ChatID)
	c.Storage.PostgresURL = getEnv("RUNCOACH_POSTGRES_URL", c.Storage.PostgresURL)
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Athlete.UserID == "" {
		c.Athlete.UserID = defaults.Athlete.UserID
		if c.Telegram.ChatID != 0 {
			c.Athlete.UserID = strconv.FormatInt(c.Telegram.ChatID, 10)
		}
	}
	if c.Athlete.RestHR == 0 {
		c.Athlete.RestHR = defaults.Athlete.RestHR
	}
	if c.Athlete.MaxHR == 0 {
		c.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if c.Athlete.CurrentGoal == "" {
		c.Athlete.CurrentGoal = defaults.Athlete.CurrentGoal
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaults.Storage.Driver
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaults.Schedule.Timezone
	}
	if c.Schedule.Harvest == "" {
		c.Schedule.Harvest = defaults.Schedule.Harvest
	}
	if c.Schedule.Briefing == "" {
		c.Schedule.Briefing = defaults.Schedule.Briefing
	}
}

// Save writes the configuration to path (DefaultPath when empty)
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	example.Telegram = TelegramConfig{
		BotToken: "YOUR_BOT_TOKEN",
	}

	return Save(path, &example)
}

// Validate checks the athlete profile, storage and schedule settings
func (c *Config) Validate() error {
	if c.Athlete.UserID == "" {
		return errors.New("athlete.user_id is required")
	}
	if c.Athlete.RestHR <= 0 {
		return fmt.Errorf("athlete.rest_hr must be positive, got %v", c.Athlete.RestHR)
	}
	if c.Athlete.MaxHR > 250 {
		return fmt.Errorf("athlete.max_hr (%v) is not a plausible heart rate", c.Athlete.MaxHR)
	}
	if c.Athlete.MaxHR <= c.Athlete.RestHR {
		return fmt.Errorf("athlete.max_hr (%v) must be greater than athlete.rest_hr (%v)", c.Athlete.MaxHR, c.Athlete.RestHR)
	}
	// An unreadable race date falls back to Base/Build when the phase is computed.
	if c.Athlete.RaceDate != "" {
		if _, err := time.Parse(load.RaceDateLayout, c.Athlete.RaceDate); err != nil {
			log.Warn().Str("race_date", c.Athlete.RaceDate).Msg("athlete.race_date is not YYYY-MM-DD, phase falls back to Base/Build")
		}
	}

	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			return errors.New("storage.postgres_url is required when storage.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Storage.Driver)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}

	return nil
}

// ValidateStrava checks the Strava credentials needed to harvest
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// ValidateTelegram checks the settings needed to deliver briefings
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN" {
		return errors.New("telegram.bot_token is required - create a bot with @BotFather")
	}
	if c.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	return nil
}

// HRProfile returns the athlete's heart rate range for TRIMP.
func (c *Config) HRProfile() analysis.HRProfile {
	return analysis.HRProfile{MaxHR: c.Athlete.MaxHR, RestHR: c.Athlete.RestHR}
}

// Location returns the schedule time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// DefaultPath returns the path to the config file, honouring RUNCOACH_CONFIG
func DefaultPath() (string, error) {
	if path := getEnv("RUNCOACH_CONFIG", ""); path != "" {
		return path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".runcoach"), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
