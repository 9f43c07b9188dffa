package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runcoach/internal/load"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Athlete.RestHR != 55 {
		t.Errorf("Athlete.RestHR = %v, want 55", cfg.Athlete.RestHR)
	}
	if cfg.Athlete.MaxHR != 185 {
		t.Errorf("Athlete.MaxHR = %v, want 185", cfg.Athlete.MaxHR)
	}
	if cfg.Athlete.CurrentGoal != "General Fitness" {
		t.Errorf("Athlete.CurrentGoal = %q, want %q", cfg.Athlete.CurrentGoal, "General Fitness")
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}

	// Strava config should be empty by default
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config { return DefaultConfig() }

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "race date set",
			mutate: func(c *Config) { c.Athlete.RaceDate = "2024-10-20" },
		},
		{
			name:   "unreadable race date is not fatal",
			mutate: func(c *Config) { c.Athlete.RaceDate = "20/10/2024" },
		},
		{
			name:        "max below rest",
			mutate:      func(c *Config) { c.Athlete.MaxHR = 50 },
			errContains: "max_hr",
		},
		{
			name:        "implausible max",
			mutate:      func(c *Config) { c.Athlete.MaxHR = 300 },
			errContains: "max_hr",
		},
		{
			name:        "zero rest",
			mutate:      func(c *Config) { c.Athlete.RestHR = 0 },
			errContains: "rest_hr",
		},
		{
			name:        "missing user",
			mutate:      func(c *Config) { c.Athlete.UserID = "" },
			errContains: "user_id",
		},
		{
			name:        "unknown driver",
			mutate:      func(c *Config) { c.Storage.Driver = "mysql" },
			errContains: "storage.driver",
		},
		{
			name:        "postgres without url",
			mutate:      func(c *Config) { c.Storage.Driver = DriverPostgres },
			errContains: "postgres_url",
		},
		{
			name: "postgres with url",
			mutate: func(c *Config) {
				c.Storage.Driver = DriverPostgres
				c.Storage.PostgresURL = "postgres://localhost/runcoach"
			},
		},
		{
			name:        "unknown timezone",
			mutate:      func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" },
			errContains: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %q, want to contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidateStrava(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.ValidateStrava(), "client_id")

	cfg.Strava = StravaConfig{ClientID: "12345", ClientSecret: "YOUR_CLIENT_SECRET"}
	assert.ErrorContains(t, cfg.ValidateStrava(), "client_secret")

	cfg.Strava.ClientSecret = "abc123secret"
	assert.NoError(t, cfg.ValidateStrava())
}

func TestValidateTelegram(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.ValidateTelegram(), "bot_token")

	cfg.Telegram.BotToken = "123:abc"
	assert.ErrorContains(t, cfg.ValidateTelegram(), "chat_id")

	cfg.Telegram.ChatID = 987654
	assert.NoError(t, cfg.ValidateTelegram())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{
		"strava": {"client_id": "12345", "client_secret": "from-file"},
		"athlete": {"max_hr": 192, "race_date": "2024-10-20"},
		"telegram": {"chat_id": 555}
	}`), 0600)
	require.NoError(t, err)

	t.Setenv("RUNCOACH_STRAVA_CLIENT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Strava.ClientID)
	assert.Equal(t, "from-env", cfg.Strava.ClientSecret)
	assert.Equal(t, 192.0, cfg.Athlete.MaxHR)
	assert.Equal(t, 55.0, cfg.Athlete.RestHR)
	assert.Equal(t, "2024-10-20", cfg.Athlete.RaceDate)
	assert.Equal(t, "555", cfg.Athlete.UserID, "user id falls back to the chat id")
	assert.Equal(t, "0 15 0,6,12,18 * * *", cfg.Schedule.Harvest)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)

	profile := cfg.HRProfile()
	assert.Equal(t, 192.0, profile.MaxHR)
	assert.Equal(t, 55.0, profile.RestHR)
}

func TestLoad_UnreadableRaceDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"athlete": {"race_date": "next spring"}}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	phase := load.PeriodizationPhase(cfg.Athlete.RaceDate, cfg.Athlete.CurrentGoal, time.Now())
	assert.Equal(t, load.PhaseBaseBuild, phase.Phase)
	assert.Contains(t, phase.Message, "next spring")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"athlete": `), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestCreateExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	require.NoError(t, CreateExample(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "YOUR_CLIENT_ID", cfg.Strava.ClientID)
	assert.Error(t, cfg.ValidateStrava())

	// Existing files are left alone
	cfg.Strava.ClientID = "kept"
	require.NoError(t, Save(path, cfg))
	require.NoError(t, CreateExample(path))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kept", cfg.Strava.ClientID)
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv("RUNCOACH_CONFIG", "/etc/runcoach/config.json")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/runcoach/config.json", path)
}
