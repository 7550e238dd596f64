package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, domain.RoundRobin, config.AlgorithmID())
	assert.Equal(t, 10, config.Simulation.LogCapacity)
	assert.Equal(t, 6, config.Simulation.MaxClients)
	assert.Equal(t, 8, config.Simulation.MaxServers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no clients", mutate: func(c *Config) { c.Simulation.Clients = 0 }},
		{name: "too many clients", mutate: func(c *Config) { c.Simulation.Clients = 7 }},
		{name: "no servers", mutate: func(c *Config) { c.Simulation.Servers = 0 }},
		{name: "too many servers", mutate: func(c *Config) { c.Simulation.Servers = 9 }},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Simulation.Algorithm = "weighted_round_robin" }},
		{name: "zero log capacity", mutate: func(c *Config) { c.Simulation.LogCapacity = 0 }},
		{name: "batch limit too small", mutate: func(c *Config) { c.Simulation.MaxBatch = 1 }},
		{name: "travel tick", mutate: func(c *Config) { c.Travel.Tick = 0 }},
		{name: "service ticks", mutate: func(c *Config) { c.Travel.ServiceTicks = 0 }},
		{name: "admin port", mutate: func(c *Config) { c.Admin.Port = 70000 }},
		{name: "rate limit", mutate: func(c *Config) {
			c.Admin.RateLimit.Enabled = true
			c.Admin.RateLimit.RequestsPerSecond = 0
		}},
		{name: "auth without secret", mutate: func(c *Config) { c.Admin.Auth.Enabled = true }},
		{name: "reload interval", mutate: func(c *Config) {
			c.Reload.Enabled = true
			c.Reload.Interval = 0
		}},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "log output", mutate: func(c *Config) { c.Logging.Output = "syslog" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, lberrors.ErrInvalidConfig))
		})
	}

	t.Run("disabled travel skips tick checks", func(t *testing.T) {
		config := DefaultConfig()
		config.Travel.Enabled = false
		config.Travel.Tick = 0
		assert.NoError(t, config.Validate())
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlContent := `
simulation:
  clients: 4
  servers: 5
  algorithm: least_connections
  auto_mode: false
  log_capacity: 20
  random_seed: 42
travel:
  enabled: true
  tick: 250ms
  auto_resolve: false
  service_ticks: 2
admin:
  port: 9090
  rate_limit:
    enabled: true
    requests_per_second: 5
    burst_size: 10
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	config, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 4, config.Simulation.Clients)
	assert.Equal(t, 5, config.Simulation.Servers)
	assert.Equal(t, domain.LeastConnections, config.AlgorithmID())
	assert.False(t, config.Simulation.AutoMode)
	assert.Equal(t, 20, config.Simulation.LogCapacity)
	assert.Equal(t, int64(42), config.Simulation.RandomSeed)
	assert.Equal(t, 250*time.Millisecond, config.Travel.Tick)
	assert.False(t, config.Travel.AutoResolve)
	assert.Equal(t, 9090, config.Admin.Port)
	assert.True(t, config.Admin.RateLimit.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)

	// unset fields keep their defaults
	assert.Equal(t, 8, config.Simulation.MaxServers)
	assert.Equal(t, "stdout", config.Logging.Output)

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("simulation:\n  servers: 12\n"), 0644))
		_, err := LoadFromFile(bad)
		assert.True(t, stderrors.Is(err, lberrors.ErrInvalidConfig))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(dir, "malformed.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("simulation: [unclosed"), 0644))
		_, err := LoadFromFile(bad)
		assert.Error(t, err)
	})
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")

	config := DefaultConfig()
	config.Simulation.Algorithm = string(domain.IPHash)
	config.Travel.Tick = 2 * time.Second
	require.NoError(t, config.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LB_CLIENTS", "2")
	t.Setenv("LB_SERVERS", "6")
	t.Setenv("LB_ALGORITHM", "random")
	t.Setenv("LB_AUTO_MODE", "false")
	t.Setenv("LB_RANDOM_SEED", "7")
	t.Setenv("LB_TRAVEL_TICK", "1s")
	t.Setenv("LB_PORT", "9191")
	t.Setenv("LB_HTTP2", "true")
	t.Setenv("LB_AUTH_ENABLED", "true")
	t.Setenv("LB_AUTH_SECRET", "s3cret")
	t.Setenv("LB_LOG_LEVEL", "warn")

	config := LoadFromEnvironment()

	assert.Equal(t, 2, config.Simulation.Clients)
	assert.Equal(t, 6, config.Simulation.Servers)
	assert.Equal(t, domain.Random, config.AlgorithmID())
	assert.False(t, config.Simulation.AutoMode)
	assert.Equal(t, int64(7), config.Simulation.RandomSeed)
	assert.Equal(t, time.Second, config.Travel.Tick)
	assert.Equal(t, 9191, config.Admin.Port)
	assert.True(t, config.Admin.HTTP2)
	assert.True(t, config.Admin.Auth.Enabled)
	assert.Equal(t, "s3cret", config.Admin.Auth.Secret)
	assert.Equal(t, "warn", config.Logging.Level)
	require.NoError(t, config.Validate())

	t.Run("malformed numbers are ignored", func(t *testing.T) {
		t.Setenv("LB_CLIENTS", "many")
		t.Setenv("LB_PORT", "-1")
		config := LoadFromEnvironment()
		assert.Equal(t, DefaultConfig().Simulation.Clients, config.Simulation.Clients)
		assert.Equal(t, DefaultConfig().Admin.Port, config.Admin.Port)
	})
}

func TestLoadConfigPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  clients: 5\n  algorithm: ip_hash\n"), 0644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LB_ALGORITHM", "least_connections")

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, config.Simulation.Clients, "file overrides defaults")
	assert.Equal(t, domain.LeastConnections, config.AlgorithmID(), "env overrides file")
	assert.Equal(t, path, ConfigFile())

	t.Run("invalid env fails validation", func(t *testing.T) {
		t.Setenv("LB_SERVERS", "0")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		config, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig().Simulation.Clients, config.Simulation.Clients)
	})
}
