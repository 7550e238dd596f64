package service

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// SimulationTarget is the part of the engine a reload reconfigures
type SimulationTarget interface {
	Initialize(numClients, numServers int, algorithm domain.Algorithm) error
	ToggleMode() bool
	AutoMode() bool
}

// ConfigReloadService re-applies the simulation section of the config file.
// A changed topology or algorithm re-initializes the engine; a changed
// auto_mode toggles the dispatch mode.
type ConfigReloadService struct {
	current        config.SimulationConfig
	target         SimulationTarget
	configFilePath string
	interval       time.Duration
	logger         *logger.Logger

	mutex       sync.Mutex
	lastModTime time.Time
	reloads     int
	failures    int

	isRunning   bool
	watcherStop chan struct{}
	wg          sync.WaitGroup
}

// NewConfigReloadService creates a reload service starting from current
func NewConfigReloadService(
	current config.SimulationConfig,
	target SimulationTarget,
	configFilePath string,
	interval time.Duration,
	log *logger.Logger,
) *ConfigReloadService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &ConfigReloadService{
		current:        current,
		target:         target,
		configFilePath: configFilePath,
		interval:       interval,
		logger:         log.WithField("component", "config_reload"),
	}
}

// Reload reads the config file and applies any simulation changes
func (crs *ConfigReloadService) Reload() error {
	newConfig, err := config.LoadFromFile(crs.configFilePath)
	if err != nil {
		crs.mutex.Lock()
		crs.failures++
		crs.mutex.Unlock()
		crs.logger.WithError(err).Warn("Rejected configuration reload")
		return err
	}
	return crs.apply(newConfig.Simulation)
}

func (crs *ConfigReloadService) apply(next config.SimulationConfig) error {
	crs.mutex.Lock()
	defer crs.mutex.Unlock()

	old := crs.current
	topologyChanged := old.Clients != next.Clients ||
		old.Servers != next.Servers ||
		old.Algorithm != next.Algorithm

	if topologyChanged {
		if err := crs.target.Initialize(next.Clients, next.Servers, domain.Algorithm(next.Algorithm)); err != nil {
			crs.failures++
			crs.logger.WithError(err).Error("Failed to apply reloaded simulation settings")
			return err
		}
		crs.logger.WithFields(map[string]interface{}{
			"old_clients":   old.Clients,
			"new_clients":   next.Clients,
			"old_servers":   old.Servers,
			"new_servers":   next.Servers,
			"old_algorithm": old.Algorithm,
			"new_algorithm": next.Algorithm,
		}).Info("Re-initialized simulation from configuration")
	}

	if crs.target.AutoMode() != next.AutoMode {
		crs.target.ToggleMode()
		crs.logger.WithField("auto_mode", next.AutoMode).Info("Dispatch mode changed by configuration")
	}

	if old.MaxClients != next.MaxClients || old.MaxServers != next.MaxServers || old.MaxBatch != next.MaxBatch {
		crs.logger.Warn("Simulation limits changed; they take effect on restart")
	}

	crs.current = next
	crs.reloads++
	return nil
}

// StartWatcher polls the config file and reloads when it is modified
func (crs *ConfigReloadService) StartWatcher() error {
	info, err := os.Stat(crs.configFilePath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	crs.mutex.Lock()
	defer crs.mutex.Unlock()

	if crs.isRunning {
		return fmt.Errorf("config watcher is already running")
	}
	crs.isRunning = true
	crs.lastModTime = info.ModTime()
	crs.watcherStop = make(chan struct{})

	crs.wg.Add(1)
	go crs.watchConfigFile(crs.watcherStop)

	crs.logger.WithFields(map[string]interface{}{
		"config_file": crs.configFilePath,
		"interval":    crs.interval.String(),
	}).Info("Started configuration file watcher")
	return nil
}

// StopWatcher stops the configuration file watcher
func (crs *ConfigReloadService) StopWatcher() {
	crs.mutex.Lock()
	if !crs.isRunning {
		crs.mutex.Unlock()
		return
	}
	crs.isRunning = false
	close(crs.watcherStop)
	crs.mutex.Unlock()

	crs.wg.Wait()
	crs.logger.Info("Stopped configuration file watcher")
}

func (crs *ConfigReloadService) watchConfigFile(stop <-chan struct{}) {
	defer crs.wg.Done()

	ticker := time.NewTicker(crs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := crs.checkConfigFileModification(); err != nil {
				crs.logger.WithError(err).Error("Failed to check config file modification")
			}
		case <-stop:
			return
		}
	}
}

// checkConfigFileModification reloads when the file's mtime moved forward
func (crs *ConfigReloadService) checkConfigFileModification() error {
	info, err := os.Stat(crs.configFilePath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	crs.mutex.Lock()
	changed := info.ModTime().After(crs.lastModTime)
	if changed {
		crs.lastModTime = info.ModTime()
	}
	crs.mutex.Unlock()

	if !changed {
		return nil
	}
	crs.logger.Info("Configuration file changed, reloading...")
	return crs.Reload()
}

// GetStats returns reload statistics
func (crs *ConfigReloadService) GetStats() map[string]interface{} {
	crs.mutex.Lock()
	defer crs.mutex.Unlock()

	return map[string]interface{}{
		"config_file": crs.configFilePath,
		"watching":    crs.isRunning,
		"reloads":     crs.reloads,
		"failures":    crs.failures,
		"last_mod":    crs.lastModTime,
		"clients":     crs.current.Clients,
		"servers":     crs.current.Servers,
		"algorithm":   crs.current.Algorithm,
		"auto_mode":   crs.current.AutoMode,
	}
}
