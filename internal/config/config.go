package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"rinkcal/internal/model"
)

// TeamConfig describes a single subscribed schedule feed.
type TeamConfig struct {
	// Sex is the division label shown in the UI filter, e.g. "Boys".
	Sex string `yaml:"sex" json:"sex"`
	// Age is the age bracket label, e.g. "Bantam".
	Age string `yaml:"age" json:"age"`
	// Level is the competitive level label, e.g. "AA", "B1 Gray".
	Level string `yaml:"level" json:"level"`
	// FeedURL is the iCalendar subscription endpoint. webcal:// is
	// accepted and rewritten to https:// at fetch time.
	FeedURL string `yaml:"feed_url" json:"feed_url"`
	// RosterURL optionally links to the team's roster page.
	RosterURL string `yaml:"roster_url,omitempty" json:"roster_url,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" koanf:"listen"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" koanf:"log_level"`

	// Timezone is the IANA timezone all dates and times are rendered in
	// (e.g. "America/Chicago"), regardless of each feed's own zone.
	Timezone string `yaml:"timezone" json:"timezone" koanf:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// used for periodic background cache warming.
	RefreshCron string `yaml:"refresh" json:"refresh" koanf:"refresh"`

	// FreshnessMinutes is the maximum age of the cached aggregate before
	// a request triggers a new aggregation cycle.
	FreshnessMinutes int `yaml:"freshness_minutes" json:"freshness_minutes" koanf:"freshness_minutes"`

	// FetchTimeoutSeconds bounds each feed request.
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" json:"fetch_timeout_seconds" koanf:"fetch_timeout_seconds"`

	// AllowedOrigins is the CORS allow-list for the API. Requests
	// without an Origin header are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" koanf:"allowed_origins"`

	// Teams is the list of subscribed schedule feeds. Loaded once,
	// immutable for the process lifetime.
	Teams []TeamConfig `yaml:"teams" json:"teams"`
}

// DefaultConfig returns an in-memory default configuration, including
// the shipped Fargo youth team table.
func DefaultConfig() *Config {
	return &Config{
		Listen:              "127.0.0.1:3001",
		LogLevel:            "info",
		Timezone:            "America/Chicago",
		RefreshCron:         "*/5 * * * *",
		FreshnessMinutes:    5,
		FetchTimeoutSeconds: 15,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"https://hockey-calendar.vercel.app",
		},
		Teams: defaultTeams(),
	}
}

func defaultTeams() []TeamConfig {
	feed := func(tag string) string {
		return "webcal://www.fargohockey.org/ical_feed?tags=" + tag
	}
	roster := func(tag string) string {
		return "https://www.fargohockey.org/roster/show/" + tag
	}
	return []TeamConfig{
		{Sex: "Boys", Age: "Bantam", Level: "AA", FeedURL: feed("8551014"), RosterURL: roster("8551014")},
		{Sex: "Boys", Age: "Bantam", Level: "A", FeedURL: feed("8551013"), RosterURL: roster("8551013")},
		{Sex: "Boys", Age: "Bantam", Level: "B1 Gray", FeedURL: feed("8551019"), RosterURL: roster("8551019")},
		{Sex: "Boys", Age: "Bantam", Level: "B1 Navy", FeedURL: feed("8551020"), RosterURL: roster("8551020")},
		{Sex: "Boys", Age: "Peewee", Level: "AA", FeedURL: feed("8551060"), RosterURL: roster("8551060")},
		{Sex: "Boys", Age: "Peewee", Level: "A", FeedURL: feed("8551058"), RosterURL: roster("8551058")},
		{Sex: "Boys", Age: "Peewee", Level: "B1 Gray", FeedURL: feed("8551066"), RosterURL: roster("8551066")},
		{Sex: "Boys", Age: "Peewee", Level: "B1 Navy", FeedURL: feed("8551067"), RosterURL: roster("8551067")},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:3001"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Chicago"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.FreshnessMinutes <= 0 {
		c.FreshnessMinutes = 5
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = 15
	}
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{}
	}
	if c.Teams == nil {
		c.Teams = []TeamConfig{}
	}
}

// Sources converts the configured teams into model descriptors.
func (c *Config) Sources() []model.Team {
	teams := make([]model.Team, 0, len(c.Teams))
	for _, t := range c.Teams {
		if t.FeedURL == "" {
			continue
		}
		teams = append(teams, model.Team{
			Sex:       t.Sex,
			Age:       t.Age,
			Level:     t.Level,
			FeedURL:   t.FeedURL,
			RosterURL: t.RosterURL,
		})
	}
	return teams
}

// Load loads configuration from the given YAML path and applies
// RINKCAL_* environment overrides on top.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return applyEnv(cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return applyEnv(&cfg)
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".rinkcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}
