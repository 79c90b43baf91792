package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	appErrors "subscription-reminder/internal/pkg/errors"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys use a double underscore, e.g. REMINDER_SMTP__HOST -> smtp.host.
const EnvPrefix = "REMINDER_"

// FileEnv names an optional YAML config file loaded between the defaults and the environment.
const FileEnv = "REMINDER_CONFIG_FILE"

type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Database  DatabaseConfig  `koanf:"database"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Line      LineConfig      `koanf:"line"`
	Reminders RemindersConfig `koanf:"reminders"`
	Engine    EngineConfig    `koanf:"engine"`
	Log       LogConfig       `koanf:"log"`
}

type AppConfig struct {
	Env      string `koanf:"env"`
	Timezone string `koanf:"timezone"`
}

type HTTPConfig struct {
	Port int `koanf:"port"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

type LineConfig struct {
	ChannelSecret      string `koanf:"channel_secret"`
	ChannelAccessToken string `koanf:"channel_access_token"`
}

// Enabled reports whether LINE pushes can be sent.
func (c LineConfig) Enabled() bool {
	return c.ChannelSecret != "" && c.ChannelAccessToken != ""
}

type RemindersConfig struct {
	Offsets string `koanf:"offsets"` // comma separated days before renewal, e.g. "7,5,2,1"
}

type EngineConfig struct {
	StepMaxRetries   int    `koanf:"step_max_retries"`
	StepRetryBase    string `koanf:"step_retry_base"`
	RecoverOnStartup bool   `koanf:"recover_on_startup"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app.env":                   "prod",
		"app.timezone":              "Local",
		"http.port":                 8080,
		"database.url":              "reminder.db",
		"smtp.host":                 "localhost",
		"smtp.port":                 587,
		"smtp.username":             "",
		"smtp.password":             "",
		"smtp.from":                 "reminders@example.com",
		"line.channel_secret":       "",
		"line.channel_access_token": "",
		"reminders.offsets":         "7,5,2,1",
		"engine.step_max_retries":   3,
		"engine.step_retry_base":    "2s",
		"engine.recover_on_startup": true,
		"log.level":                 "info",
	}
}

// Load builds the configuration from defaults, then the YAML file named by FileEnv if set,
// then REMINDER_* environment variables (a .env file is loaded into the environment by the caller).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", appErrors.ErrInvalidConfiguration, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.ReminderOffsets(); err != nil {
		return nil, err
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.StepRetryBase(); err != nil {
		return nil, err
	}
	if cfg.Engine.StepMaxRetries < 0 {
		return nil, fmt.Errorf("%w: engine step max retries %d", appErrors.ErrInvalidConfiguration, cfg.Engine.StepMaxRetries)
	}
	return &cfg, nil
}

// ReminderOffsets parses the configured offsets in order.
func (c *Config) ReminderOffsets() ([]int, error) {
	parts := strings.Split(c.Reminders.Offsets, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: reminder offset %q: %v", appErrors.ErrInvalidConfiguration, p, err)
		}
		offsets = append(offsets, d)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: no reminder offsets configured", appErrors.ErrInvalidConfiguration)
	}
	return offsets, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", appErrors.ErrInvalidConfiguration, c.App.Timezone, err)
	}
	return loc, nil
}

// StepRetryBase parses the base delay of the step retry backoff.
func (c *Config) StepRetryBase() (time.Duration, error) {
	d, err := time.ParseDuration(c.Engine.StepRetryBase)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: engine step retry base %q", appErrors.ErrInvalidConfiguration, c.Engine.StepRetryBase)
	}
	return d, nil
}
