package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"amaze/internal/schedule"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address           string `yaml:"address"`
		AdminToken        string `yaml:"admin_token"`
		ReservesPerMinute int    `yaml:"reserves_per_minute"`
	} `yaml:"server"`

	Store struct {
		Driver string `yaml:"driver"` // "google" or "memory"
		Google struct {
			ClientID             string `yaml:"client_id"`
			ClientSecret         string `yaml:"client_secret"`
			TokenFile            string `yaml:"token_file"`
			ReservationsCalendar string `yaml:"reservations_calendar"`
			ClosuresCalendar     string `yaml:"closures_calendar"`
			TimeoutSeconds       int    `yaml:"timeout_seconds"`
		} `yaml:"google"`
	} `yaml:"store"`

	Booking struct {
		Capacity int `yaml:"capacity"`
	} `yaml:"booking"`

	Schedule struct {
		StepMinutes     int                         `yaml:"step_minutes"`
		DurationMinutes int                         `yaml:"duration_minutes"`
		Days            map[string]schedule.DaySpec `yaml:"days"` // keyed by lowercase weekday name
	} `yaml:"schedule"`

	Redis struct {
		Enabled         bool   `yaml:"enabled"`
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = "google"
	}
	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8081
	}
	if cfg.Monitoring.PrometheusPort == 0 {
		cfg.Monitoring.PrometheusPort = 9090
	}

	return &cfg, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Calendar builds the weekly calendar from the schedule section, or the
// built-in rules when no days are configured.
func (c *Config) Calendar() (*schedule.Weekly, error) {
	if len(c.Schedule.Days) == 0 {
		return schedule.Default(), nil
	}

	specs := make(map[time.Weekday]schedule.DaySpec, len(c.Schedule.Days))
	for name, spec := range c.Schedule.Days {
		wd, ok := weekdays[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("schedule: unknown weekday %q", name)
		}
		specs[wd] = spec
	}
	return schedule.New(specs, c.Schedule.StepMinutes, c.Schedule.DurationMinutes)
}

func (c *Config) StoreTimeout() time.Duration {
	if c.Store.Google.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Store.Google.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}
