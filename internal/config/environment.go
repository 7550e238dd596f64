package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnvironment loads configuration from LB_* environment variables
// on top of the defaults
func LoadFromEnvironment() *Config {
	config := DefaultConfig()
	applyEnvironment(config)
	return config
}

// LoadConfig loads configuration with priority: env vars > config file > defaults.
// The file is taken from CONFIG_FILE, falling back to config.yaml if present.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	configFile := getEnv("CONFIG_FILE", "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := parseFile(configFile)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	applyEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ConfigFile returns the path LoadConfig reads from
func ConfigFile() string {
	return getEnv("CONFIG_FILE", "config.yaml")
}

// applyEnvironment overrides only the settings whose variables are set
func applyEnvironment(config *Config) {
	sim := &config.Simulation
	setInt("LB_CLIENTS", &sim.Clients)
	setInt("LB_SERVERS", &sim.Servers)
	setString("LB_ALGORITHM", &sim.Algorithm)
	setBool("LB_AUTO_MODE", &sim.AutoMode)
	setInt("LB_LOG_CAPACITY", &sim.LogCapacity)
	if seed := getEnv("LB_RANDOM_SEED", ""); seed != "" {
		if s, err := strconv.ParseInt(seed, 10, 64); err == nil {
			sim.RandomSeed = s
		}
	}
	setInt("LB_MAX_CLIENTS", &sim.MaxClients)
	setInt("LB_MAX_SERVERS", &sim.MaxServers)
	setInt("LB_MAX_BATCH", &sim.MaxBatch)

	// Travel clock
	setBool("LB_TRAVEL_ENABLED", &config.Travel.Enabled)
	setDuration("LB_TRAVEL_TICK", &config.Travel.Tick)
	setBool("LB_TRAVEL_AUTO_RESOLVE", &config.Travel.AutoResolve)
	setInt("LB_TRAVEL_SERVICE_TICKS", &config.Travel.ServiceTicks)

	// Admin API
	if port := getEnv("LB_PORT", ""); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p <= 65535 {
			config.Admin.Port = p
		}
	}
	setBool("LB_HTTP2", &config.Admin.HTTP2)
	setBool("LB_RATE_LIMIT_ENABLED", &config.Admin.RateLimit.Enabled)
	if rps := getEnv("LB_RATE_LIMIT_RPS", ""); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil && r > 0 {
			config.Admin.RateLimit.RequestsPerSecond = r
		}
	}
	setInt("LB_RATE_LIMIT_BURST", &config.Admin.RateLimit.BurstSize)
	setBool("LB_AUTH_ENABLED", &config.Admin.Auth.Enabled)
	setString("LB_AUTH_SECRET", &config.Admin.Auth.Secret)
	setString("LB_AUTH_ISSUER", &config.Admin.Auth.Issuer)

	// Config reload
	setBool("LB_RELOAD_ENABLED", &config.Reload.Enabled)
	setDuration("LB_RELOAD_INTERVAL", &config.Reload.Interval)

	// Logging
	setString("LB_LOG_LEVEL", &config.Logging.Level)
	setString("LB_LOG_FORMAT", &config.Logging.Format)
	setString("LB_LOG_OUTPUT", &config.Logging.Output)
	setString("LB_LOG_FILE", &config.Logging.File)
}

// getEnv gets environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(key string, target *string) {
	if value := getEnv(key, ""); value != "" {
		*target = value
	}
}

func setInt(key string, target *int) {
	if value := getEnv(key, ""); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*target = i
		}
	}
}

func setBool(key string, target *bool) {
	if value := getEnv(key, ""); value != "" {
		*target = strings.ToLower(value) == "true"
	}
}

func setDuration(key string, target *time.Duration) {
	if value := getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*target = d
		}
	}
}
