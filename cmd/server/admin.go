package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/config"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/middleware"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/service"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// One-off admin processes, run as `lb-simulator -admin <command> [args]`.

// runConfigValidation validates the current configuration
func runConfigValidation() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("Configuration validation passed ✓")
	fmt.Printf("Clients: %d (max %d)\n", cfg.Simulation.Clients, cfg.Simulation.MaxClients)
	fmt.Printf("Servers: %d (max %d)\n", cfg.Simulation.Servers, cfg.Simulation.MaxServers)
	fmt.Printf("Algorithm: %s\n", cfg.Simulation.Algorithm)
	fmt.Printf("Auto Mode: %t\n", cfg.Simulation.AutoMode)
	fmt.Printf("Port: %d\n", cfg.Admin.Port)
	fmt.Printf("Travel Clock: %t\n", cfg.Travel.Enabled)
	fmt.Printf("Rate Limiting: %t\n", cfg.Admin.RateLimit.Enabled)
	fmt.Printf("Authentication: %t\n", cfg.Admin.Auth.Enabled)

	return nil
}

// runIssueToken prints a bearer token for an operator
func runIssueToken(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: -admin issue-token <operator> [ttl]")
	}
	ttl := 24 * time.Hour
	if len(args) > 1 {
		parsed, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid ttl %q: %w", args[1], err)
		}
		ttl = parsed
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Admin.Auth.Secret == "" {
		return fmt.Errorf("admin.auth.secret is not configured")
	}

	auth, err := middleware.NewJWTAuthMiddleware(cfg.Admin.Auth, logger.NewNop())
	if err != nil {
		return err
	}
	token, err := auth.IssueToken(args[0], ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}

// runSimulation drives requests through the configured topology with the
// travel clock, without the HTTP server, and prints the decision log
func runSimulation(args []string) error {
	requests := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid request count %q", args[0])
		}
		requests = n
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Simulation.AutoMode = true
	cfg.Simulation.LogCapacity = requests*3 + 1

	engine, err := newEngine(cfg, logger.NewNop())
	if err != nil {
		return err
	}
	clock := service.NewTravelClock(service.TravelClockConfig{
		AutoResolve:  true,
		ServiceTicks: cfg.Travel.ServiceTicks,
	}, engine, nil)

	for i := 0; i < requests; i++ {
		if _, err := engine.AddRequest(i%cfg.Simulation.Clients, 1); err != nil {
			return err
		}
	}

	const maxTicks = 10000
	ticks := 0
	for len(engine.Requests()) > 0 && ticks < maxTicks {
		clock.Tick()
		ticks++
	}

	logs := engine.LogMessages()
	for i := len(logs) - 1; i >= 0; i-- {
		fmt.Println(logs[i])
	}

	fmt.Printf("\nSimulated %d requests with %s in %d ticks\n", requests, cfg.Simulation.Algorithm, ticks)
	for _, server := range engine.Servers() {
		fmt.Printf("  Server %d: %d completed (%s)\n", server.ID, server.TotalCompleted, server.Status())
	}
	return nil
}

// runStats prints the configured topology
func runStats() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Simulation settings:")
	fmt.Printf("Algorithm: %s (%s)\n", cfg.Simulation.Algorithm, cfg.AlgorithmID().Tag())
	fmt.Printf("Clients: %d\n", cfg.Simulation.Clients)
	for i := 0; i < cfg.Simulation.Servers; i++ {
		fmt.Printf("  Server %d\n", i)
	}
	fmt.Printf("Supported algorithms: %v\n", domain.Algorithms())

	return nil
}

// runAdminProcess handles admin process execution
func runAdminProcess() {
	args := adminArgs()
	if len(args) < 1 {
		fmt.Println("Usage: lb-simulator -admin <command>")
		fmt.Println("Commands:")
		fmt.Println("  validate-config          - Validate configuration")
		fmt.Println("  issue-token <op> [ttl]   - Sign an operator token")
		fmt.Println("  simulate [n]             - Run n requests headless and print the decision log")
		fmt.Println("  stats                    - Show the configured topology")
		os.Exit(1)
	}

	var err error
	switch command := args[0]; command {
	case "validate-config", "validate":
		err = runConfigValidation()
	case "issue-token":
		err = runIssueToken(args[1:])
	case "simulate":
		err = runSimulation(args[1:])
	case "stats":
		err = runStats()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command failed: %v\n", err)
		os.Exit(1)
	}
}

// adminArgs returns the arguments following -admin
func adminArgs() []string {
	for i, arg := range os.Args {
		if arg == "-admin" {
			return os.Args[i+1:]
		}
	}
	return nil
}

// checkIfAdminMode checks if running in admin mode
func checkIfAdminMode() bool {
	for _, arg := range os.Args {
		if arg == "-admin" {
			return true
		}
	}
	return false
}
