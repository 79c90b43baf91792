package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	appErrors "subscription-reminder/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "reminder.db", cfg.Database.URL)
	assert.Equal(t, 3, cfg.Engine.StepMaxRetries)
	assert.False(t, cfg.Line.Enabled())

	offsets, err := cfg.ReminderOffsets()
	require.NoError(t, err)
	assert.Equal(t, []int{7, 5, 2, 1}, offsets)

	base, err := cfg.StepRetryBase()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, base)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REMINDER_HTTP__PORT", "9090")
	t.Setenv("REMINDER_SMTP__HOST", "smtp.test")
	t.Setenv("REMINDER_REMINDERS__OFFSETS", "10, 3")
	t.Setenv("REMINDER_APP__TIMEZONE", "UTC")
	t.Setenv("REMINDER_LINE__CHANNEL_SECRET", "secret")
	t.Setenv("REMINDER_LINE__CHANNEL_ACCESS_TOKEN", "token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "smtp.test", cfg.SMTP.Host)
	assert.True(t, cfg.Line.Enabled())

	offsets, err := cfg.ReminderOffsets()
	require.NoError(t, err)
	assert.Equal(t, []int{10, 3}, offsets)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminder.yaml")
	content := "http:\n  port: 7070\nsmtp:\n  host: mail.internal\nreminders:\n  offsets: \"3,1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("REMINDER_HTTP__PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTP.Port, "environment wins over the file")
	assert.Equal(t, "mail.internal", cfg.SMTP.Host)
	offsets, err := cfg.ReminderOffsets()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, offsets)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.ErrorIs(t, err, appErrors.ErrInvalidConfiguration)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "offset not a number", key: "REMINDER_REMINDERS__OFFSETS", val: "7,x"},
		{name: "unknown timezone", key: "REMINDER_APP__TIMEZONE", val: "Mars/Olympus"},
		{name: "bad retry base", key: "REMINDER_ENGINE__STEP_RETRY_BASE", val: "soon"},
		{name: "negative retries", key: "REMINDER_ENGINE__STEP_MAX_RETRIES", val: "-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrInvalidConfiguration)
		})
	}
}
