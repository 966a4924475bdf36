// Package config loads the service configuration from an optional YAML
// file, a .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gooze-fr/event-planner/internal/model"
)

// MapsConfig holds the Google Maps settings.
type MapsConfig struct {
	// APIKey is used as-is for geocoding and the static map. Empty disables
	// both; pages still render with the default centre.
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// DefaultCenter is shown until an address resolves.
	DefaultCenter model.LatLng `yaml:"default_center"`
	Zoom          int          `yaml:"zoom"`
	// CacheTTL is how long a resolved address centre is reused.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RosterConfig controls in-memory roster retention.
type RosterConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	DefaultSeats  int           `yaml:"default_seats"`
}

// RateLimitConfig is the per-client token bucket for mutating routes.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen string `yaml:"listen"`
	// Domain prefixes derived event links.
	Domain    string          `yaml:"domain"`
	Timezone  string          `yaml:"timezone"`
	LogLevel  string          `yaml:"log_level"`
	LogPretty bool            `yaml:"log_pretty"`
	Maps      MapsConfig      `yaml:"maps"`
	Roster    RosterConfig    `yaml:"roster"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// CORSOrigins may call the JSON API from a browser. Empty allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Domain == "" {
		c.Domain = "www.gooze.fr"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Maps.Timeout <= 0 {
		c.Maps.Timeout = 5 * time.Second
	}
	if c.Maps.DefaultCenter == (model.LatLng{}) {
		c.Maps.DefaultCenter = model.LatLng{Lat: -34.397, Lng: 150.644}
	}
	if c.Maps.Zoom <= 0 {
		c.Maps.Zoom = 14
	}
	if c.Maps.CacheTTL <= 0 {
		c.Maps.CacheTTL = time.Hour
	}
	if c.Roster.IdleTTL <= 0 {
		c.Roster.IdleTTL = 2 * time.Hour
	}
	if c.Roster.SweepSchedule == "" {
		c.Roster.SweepSchedule = "@every 5m"
	}
	if c.Roster.DefaultSeats <= 0 {
		c.Roster.DefaultSeats = 4
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads path (if it exists), then .env, then the environment.
// An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("GOOZE_DOMAIN"); v != "" {
		c.Domain = v
	}
	if v := os.Getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		c.Maps.APIKey = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.LogPretty = b
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	if v := os.Getenv("ROSTER_IDLE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ROSTER_IDLE_TTL: %w", err)
		}
		c.Roster.IdleTTL = d
	}
	return nil
}
