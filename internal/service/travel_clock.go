package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

// TravelClockConfig controls the background travel simulation
type TravelClockConfig struct {
	Enabled      bool
	Tick         time.Duration
	AutoResolve  bool
	ServiceTicks int
}

// Traveller is the part of the engine the clock drives
type Traveller interface {
	Requests() []domain.Request
	AdvanceFrom(id string, from domain.RequestStatus) error
	ResolveAtServer(id string) error
}

// TravelClock stands in for the animation layer: on every tick it reports
// arrival for each travelling request and, optionally, resolves requests
// that have been served for ServiceTicks ticks.
type TravelClock struct {
	config    TravelClockConfig
	target    Traveller
	logger    *logger.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.RWMutex

	// ticks spent AT_SERVER per request, touched only by Tick
	serving map[string]int
	tickMu  sync.Mutex
}

// NewTravelClock creates a stopped clock
func NewTravelClock(config TravelClockConfig, target Traveller, log *logger.Logger) *TravelClock {
	if config.Tick <= 0 {
		config.Tick = 500 * time.Millisecond
	}
	if config.ServiceTicks < 1 {
		config.ServiceTicks = 1
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &TravelClock{
		config:   config,
		target:   target,
		logger:   log.TravelLogger(),
		stopChan: make(chan struct{}),
		serving:  make(map[string]int),
	}
}

// Start runs the clock until ctx is cancelled or Stop is called
func (c *TravelClock) Start(ctx context.Context) error {
	if !c.config.Enabled {
		c.logger.Info("Travel clock is disabled")
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isRunning {
		return fmt.Errorf("travel clock is already running")
	}

	c.isRunning = true
	c.logger.Infof("Starting travel clock with tick %v", c.config.Tick)

	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

// Stop halts the clock and waits for the loop to exit
func (c *TravelClock) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isRunning {
		return nil
	}

	close(c.stopChan)
	c.wg.Wait()
	c.isRunning = false
	c.stopChan = make(chan struct{})

	c.logger.Info("Travel clock stopped")
	return nil
}

func (c *TravelClock) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Travel clock stopped due to context cancellation")
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick moves every travelling request one state forward and returns how many
// requests changed state. A request that another caller moved in the
// meantime is skipped.
func (c *TravelClock) Tick() int {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	moved := 0
	live := make(map[string]bool)

	for _, req := range c.target.Requests() {
		live[req.ID] = true

		switch {
		case req.Status.IsTravelling():
			err := c.target.AdvanceFrom(req.ID, req.Status)
			if err == nil {
				moved++
				continue
			}
			c.logSkip(req, "advance", err)

		case req.Status == domain.StatusAtServer && c.config.AutoResolve:
			c.serving[req.ID]++
			if c.serving[req.ID] < c.config.ServiceTicks {
				continue
			}
			delete(c.serving, req.ID)
			if err := c.target.ResolveAtServer(req.ID); err != nil {
				c.logSkip(req, "resolve", err)
				continue
			}
			moved++
		}
	}

	for id := range c.serving {
		if !live[id] {
			delete(c.serving, id)
		}
	}
	return moved
}

func (c *TravelClock) logSkip(req domain.Request, action string, err error) {
	log := c.logger.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"status":     req.Status.String(),
		"action":     action,
	}).WithError(err)

	if stderrors.Is(err, lberrors.ErrInvalidTransition) || stderrors.Is(err, lberrors.ErrUnknownRequest) {
		log.Debug("Request moved before the clock reached it")
		return
	}
	log.Warn("Travel clock failed to move request")
}

// GetStats returns travel clock statistics
func (c *TravelClock) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"enabled":       c.config.Enabled,
		"running":       c.isRunning,
		"tick":          c.config.Tick.String(),
		"auto_resolve":  c.config.AutoResolve,
		"service_ticks": c.config.ServiceTicks,
	}
}

// IsRunning returns true if the clock loop is active
func (c *TravelClock) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
