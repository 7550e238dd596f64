package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/handler"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/middleware"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/server"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/service"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

// getConfigSource returns the configuration source for logging
func getConfigSource() string {
	if _, err := os.Stat(config.ConfigFile()); err == nil {
		return "file+env"
	}

	envVars := []string{
		"LB_CLIENTS", "LB_SERVERS", "LB_ALGORITHM", "LB_PORT",
		"LB_LOG_LEVEL", "LB_TRAVEL_ENABLED", "LB_RATE_LIMIT_ENABLED",
	}
	for _, envVar := range envVars {
		if os.Getenv(envVar) != "" {
			return "environment"
		}
	}

	return "defaults"
}

func main() {
	if checkIfAdminMode() {
		runAdminProcess()
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"version":       version,
		"clients":       cfg.Simulation.Clients,
		"servers":       cfg.Simulation.Servers,
		"algorithm":     cfg.Simulation.Algorithm,
		"auto_mode":     cfg.Simulation.AutoMode,
		"config_source": getConfigSource(),
		"process":       getProcessInfo(),
	}).Info("Starting load balancer simulator")

	engine, err := newEngine(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize simulation")
	}

	travelClock := service.NewTravelClock(service.TravelClockConfig{
		Enabled:      cfg.Travel.Enabled,
		Tick:         cfg.Travel.Tick,
		AutoResolve:  cfg.Travel.AutoResolve,
		ServiceTicks: cfg.Travel.ServiceTicks,
	}, engine, log)

	adminHandler := handler.NewAdminHandler(engine, log)
	adminHandler.AddStatsProvider("travel", travelClock.GetStats)
	healthHandler := handler.NewHealthHandler(engine, version)

	var reloader *service.ConfigReloadService
	if cfg.Reload.Enabled {
		reloader = service.NewConfigReloadService(cfg.Simulation, engine, config.ConfigFile(), cfg.Reload.Interval, log)
		adminHandler.SetReloader(reloader)
		adminHandler.AddStatsProvider("reload", reloader.GetStats)
		if err := reloader.StartWatcher(); err != nil {
			log.WithError(err).Warn("Config file watcher not started; reload stays available over the API")
		}
	}

	middlewares := []handler.Middleware{
		middleware.RecoveryMiddleware(log),
		middleware.LoggingMiddleware(log),
		middleware.CORSMiddleware(),
	}

	if cfg.Admin.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.Admin.RateLimit, log)
		middlewares = append(middlewares, rateLimiter.RateLimitMiddleware())
		adminHandler.AddStatsProvider("rate_limit", rateLimiter.GetStats)
		log.Info("Rate limiting enabled")
	}

	auth, err := middleware.NewJWTAuthMiddleware(cfg.Admin.Auth, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure authentication")
	}
	middlewares = append(middlewares, auth.JWTAuth())

	router := handler.NewRouter(adminHandler, healthHandler, middlewares...)
	adminServer := server.NewAdminServer(cfg.Admin, getPort(cfg.Admin.Port), router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := travelClock.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start travel clock")
	}

	go func() {
		if err := adminServer.Start(); err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := travelClock.Stop(); err != nil {
		log.WithError(err).Error("Error stopping travel clock")
	}
	if reloader != nil {
		reloader.StopWatcher()
	}

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	log.Info("Load balancer simulator stopped gracefully")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
}

// newEngine builds a dispatcher from the simulation settings and applies the
// starting topology and mode
func newEngine(cfg *config.Config, log *logger.Logger) (*service.Dispatcher, error) {
	sim := cfg.Simulation

	seed := sim.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := service.NewDispatcher(service.DispatcherConfig{
		MaxClients:   sim.MaxClients,
		MaxServers:   sim.MaxServers,
		MaxBatchSize: sim.MaxBatch,
		LogCapacity:  sim.LogCapacity,
	}, service.NewRandomSource(seed), service.NewMetrics(), log)

	if err := engine.Initialize(sim.Clients, sim.Servers, cfg.AlgorithmID()); err != nil {
		return nil, err
	}
	if !sim.AutoMode {
		engine.ToggleMode()
	}

	log.WithField("seed", seed).Debug("Simulation engine ready")
	return engine, nil
}
