package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: dealerdesk
database:
  path: data/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "09:00", cfg.Scheduling.DayStart)
	assert.Equal(t, "18:00", cfg.Scheduling.DayEnd)
	assert.Equal(t, 30, cfg.Scheduling.SlotStepMinutes)
	assert.Equal(t, 3, cfg.Scheduling.MaxConcurrentBookings)
	assert.Equal(t, 60, cfg.Scheduling.TestDriveMinutes)
	assert.Equal(t, "09:00", cfg.Scheduling.ReminderTime)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 6, len(cfg.Scheduling.WorkingDays))
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/dealerdesk.db")
	t.Setenv("TEST_API_KEY", "secret-key")

	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
api:
  auth:
    enabled: true
    api_keys:
      - key: ${TEST_API_KEY}
        name: widget
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/dealerdesk.db", cfg.Database.Path)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "secret-key", cfg.API.Auth.APIKeys[0].Key)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"MissingDatabasePath", `
app:
  name: dealerdesk
`},
		{"UnknownWorkingDay", `
database:
  path: data/test.db
scheduling:
  working_days: [monday, caturday]
`},
		{"BadDayStart", `
database:
  path: data/test.db
scheduling:
  day_start: "9 o'clock"
`},
		{"NegativeCapacity", `
database:
  path: data/test.db
scheduling:
  max_concurrent_bookings: -1
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestScheduleConfigConversion(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
scheduling:
  working_days: [monday, wednesday, Friday]
  day_start: "08:00"
  day_end: "20:00"
  slot_step_minutes: 15
  max_concurrent_bookings: 5
  test_drive_minutes: 45
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	sc := cfg.ScheduleConfig()
	assert.Equal(t, "08:00", sc.DayStart)
	assert.Equal(t, 15, sc.SlotStepMinutes)
	assert.Equal(t, 5, sc.MaxConcurrentBookings)
	assert.Equal(t, 45, sc.TestDriveMinutes)

	// Day names map onto weekday indexes, Sunday first.
	assert.Equal(t, [7]bool{false, true, false, true, false, true, false}, sc.WorkingDays)
}

func TestCacheTTL(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
redis:
  cache_ttl: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
}
