package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int `yaml:"port"`
		RatePerSecond  int `yaml:"rate_per_second"`
		RateBurst      int `yaml:"rate_burst"`
		SessionTimeout int `yaml:"session_timeout_minutes"`
	} `yaml:"server"`

	API struct {
		BaseURL         string `yaml:"base_url"`
		WidgetKey       string `yaml:"widget_key"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		SlotGranularityMinutes int `yaml:"slot_granularity_minutes"`
	} `yaml:"booking"`
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

	return &cfg, nil
}

func (c *Config) ServerPort() int {
	if c.Server.Port <= 0 {
		return 8080
	}
	return c.Server.Port
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Server.SessionTimeout <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Server.SessionTimeout) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) RatePerSecond() int {
	if c.Server.RatePerSecond <= 0 {
		return 20
	}
	return c.Server.RatePerSecond
}

func (c *Config) RateBurst() int {
	if c.Server.RateBurst <= 0 {
		return 40
	}
	return c.Server.RateBurst
}
