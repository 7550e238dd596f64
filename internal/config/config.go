package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"gopkg.in/yaml.v2"
)

// Config represents the main configuration structure
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Travel     TravelConfig     `yaml:"travel"`
	Admin      AdminConfig      `yaml:"admin"`
	Reload     ReloadConfig     `yaml:"reload"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig describes the pool and policy the engine starts with
type SimulationConfig struct {
	Clients     int    `yaml:"clients"`
	Servers     int    `yaml:"servers"`
	Algorithm   string `yaml:"algorithm"`
	AutoMode    bool   `yaml:"auto_mode"`
	LogCapacity int    `yaml:"log_capacity"`
	RandomSeed  int64  `yaml:"random_seed"`
	MaxClients  int    `yaml:"max_clients"`
	MaxServers  int    `yaml:"max_servers"`
	MaxBatch    int    `yaml:"max_batch"`
}

// TravelConfig controls the background travel clock
type TravelConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Tick         time.Duration `yaml:"tick"`
	AutoResolve  bool          `yaml:"auto_resolve"`
	ServiceTicks int           `yaml:"service_ticks"`
}

// AdminConfig contains admin API configuration
type AdminConfig struct {
	Port         int             `yaml:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout"`
	HTTP2        bool            `yaml:"http2"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
	Auth         AuthConfig      `yaml:"auth"`
}

// RateLimitConfig limits commands per client address
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// AuthConfig enables HMAC bearer tokens on mutating admin routes
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

// ReloadConfig controls polling of the config file for simulation changes
type ReloadConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	File   string `yaml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Clients:     3,
			Servers:     3,
			Algorithm:   string(domain.RoundRobin),
			AutoMode:    true,
			LogCapacity: 10,
			MaxClients:  6,
			MaxServers:  8,
			MaxBatch:    50,
		},
		Travel: TravelConfig{
			Enabled:      true,
			Tick:         500 * time.Millisecond,
			AutoResolve:  true,
			ServiceTicks: 3,
		},
		Admin: AdminConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 20,
				BurstSize:         40,
			},
			Auth: AuthConfig{
				Issuer: "lb-simulator",
			},
		},
		Reload: ReloadConfig{
			Enabled:  false,
			Interval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	config, err := parseFile(filename)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func parseFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return config, nil
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	sim := c.Simulation
	if sim.MaxClients < 1 {
		return invalid("simulation.max_clients must be positive: %d", sim.MaxClients)
	}
	if sim.MaxServers < 1 {
		return invalid("simulation.max_servers must be positive: %d", sim.MaxServers)
	}
	if sim.MaxBatch < 2 {
		return invalid("simulation.max_batch must be at least 2: %d", sim.MaxBatch)
	}
	if sim.Clients < 1 || sim.Clients > sim.MaxClients {
		return invalid("simulation.clients must be between 1 and %d: %d", sim.MaxClients, sim.Clients)
	}
	if sim.Servers < 1 || sim.Servers > sim.MaxServers {
		return invalid("simulation.servers must be between 1 and %d: %d", sim.MaxServers, sim.Servers)
	}
	if !c.AlgorithmID().IsValid() {
		return invalid("unsupported algorithm: %s", sim.Algorithm)
	}
	if sim.LogCapacity < 1 {
		return invalid("simulation.log_capacity must be positive: %d", sim.LogCapacity)
	}

	if c.Travel.Enabled {
		if c.Travel.Tick <= 0 {
			return invalid("travel.tick must be positive")
		}
		if c.Travel.ServiceTicks < 1 {
			return invalid("travel.service_ticks must be positive")
		}
	}

	if c.Admin.Port <= 0 || c.Admin.Port > 65535 {
		return invalid("invalid admin port: %d", c.Admin.Port)
	}
	if c.Admin.RateLimit.Enabled {
		if c.Admin.RateLimit.RequestsPerSecond <= 0 {
			return invalid("admin.rate_limit.requests_per_second must be positive")
		}
		if c.Admin.RateLimit.BurstSize <= 0 {
			return invalid("admin.rate_limit.burst_size must be positive")
		}
	}
	if c.Admin.Auth.Enabled && c.Admin.Auth.Secret == "" {
		return invalid("admin.auth.secret is required when auth is enabled")
	}

	if c.Reload.Enabled && c.Reload.Interval <= 0 {
		return invalid("reload.interval must be positive")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[c.Logging.Level] {
		return invalid("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return invalid("invalid log format: %s", c.Logging.Format)
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validOutputs[c.Logging.Output] {
		return invalid("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return lberrors.NewInvalidConfigError("config", format, args...)
}

// AlgorithmID returns the configured selection policy
func (c *Config) AlgorithmID() domain.Algorithm {
	return domain.Algorithm(c.Simulation.Algorithm)
}

// SaveToFile saves the configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}
