package service

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
)

// BaseStrategy provides common functionality for all strategies
type BaseStrategy struct {
	name      string
	algorithm domain.Algorithm
}

func (s *BaseStrategy) Name() string {
	return s.name
}

func (s *BaseStrategy) Algorithm() domain.Algorithm {
	return s.algorithm
}

// chosen fills the parts of a Selection shared by every successful decision
func (s *BaseStrategy) chosen(healthy []domain.Server, index int, cursor uint64, origin int) domain.Selection {
	target := healthy[index]
	return domain.Selection{
		ServerID:   target.ID,
		Found:      true,
		NextCursor: cursor,
		Rationale: domain.Rationale{
			Algorithm:  s.algorithm,
			OriginID:   origin,
			Cursor:     cursor,
			HealthyIDs: domain.ServerIDs(healthy),
			Index:      index,
			ServerID:   target.ID,
		},
	}
}

// RoundRobinStrategy cycles through the healthy list using the shared cursor
type RoundRobinStrategy struct {
	BaseStrategy
}

// NewRoundRobinStrategy creates a new round-robin strategy
func NewRoundRobinStrategy() *RoundRobinStrategy {
	return &RoundRobinStrategy{
		BaseStrategy: BaseStrategy{name: "Round Robin", algorithm: domain.RoundRobin},
	}
}

func (s *RoundRobinStrategy) Select(healthy []domain.Server, cursor uint64, affinityKey int) domain.Selection {
	index := int(cursor % uint64(len(healthy)))
	sel := s.chosen(healthy, index, cursor, affinityKey)
	sel.NextCursor = cursor + 1
	sel.Summary = fmt.Sprintf("[RR] Selected Server %d", sel.ServerID)
	sel.Rationale.Steps = []string{
		fmt.Sprintf("1. Checking sequence: the cursor is at position %d.", cursor),
		fmt.Sprintf("2. Healthy servers in order: %s.", formatIDs(sel.Rationale.HealthyIDs)),
		fmt.Sprintf("3. Index: %d %% %d = %d.", cursor, len(healthy), index),
		fmt.Sprintf("4. Decision: route to Server %d and advance the cursor to %d.", sel.ServerID, sel.NextCursor),
	}
	return sel
}

// LeastConnectionsStrategy routes to the healthy server with the fewest active requests
type LeastConnectionsStrategy struct {
	BaseStrategy
}

// NewLeastConnectionsStrategy creates a new least connections strategy
func NewLeastConnectionsStrategy() *LeastConnectionsStrategy {
	return &LeastConnectionsStrategy{
		BaseStrategy: BaseStrategy{name: "Least Connections", algorithm: domain.LeastConnections},
	}
}

func (s *LeastConnectionsStrategy) Select(healthy []domain.Server, cursor uint64, affinityKey int) domain.Selection {
	// healthy is in id order, so strict < keeps the lowest id on ties
	best := 0
	loads := make([]domain.ServerLoad, len(healthy))
	for i, server := range healthy {
		loads[i] = domain.ServerLoad{ServerID: server.ID, Load: server.ActiveLoad}
		if server.ActiveLoad < healthy[best].ActiveLoad {
			best = i
		}
	}

	sel := s.chosen(healthy, best, cursor, affinityKey)
	load := healthy[best].ActiveLoad
	sel.Rationale.Loads = loads
	sel.Summary = fmt.Sprintf("[LC] Selected Server %d (Load: %d)", sel.ServerID, load)
	sel.Rationale.Steps = []string{
		fmt.Sprintf("1. Polling server loads: [%s].", formatLoads(loads)),
		fmt.Sprintf("2. Comparing: Server %d has the fewest active requests (%d); ties go to the lowest id.", sel.ServerID, load),
		fmt.Sprintf("3. Decision: route to Server %d to balance the load.", sel.ServerID),
	}
	return sel
}

// RandomStrategy picks a healthy server uniformly at random
type RandomStrategy struct {
	BaseStrategy
	rng domain.RandomSource
}

// NewRandomStrategy creates a new random strategy drawing from rng
func NewRandomStrategy(rng domain.RandomSource) *RandomStrategy {
	return &RandomStrategy{
		BaseStrategy: BaseStrategy{name: "Random", algorithm: domain.Random},
		rng:          rng,
	}
}

func (s *RandomStrategy) Select(healthy []domain.Server, cursor uint64, affinityKey int) domain.Selection {
	index := s.rng.Intn(len(healthy))
	sel := s.chosen(healthy, index, cursor, affinityKey)
	sel.Summary = fmt.Sprintf("[RND] Selected Server %d", sel.ServerID)
	sel.Rationale.Steps = []string{
		fmt.Sprintf("1. Identifying pool: %d healthy servers available %s.", len(healthy), formatIDs(sel.Rationale.HealthyIDs)),
		fmt.Sprintf("2. Rolling a number in [0, %d): index %d.", len(healthy), index),
		fmt.Sprintf("3. Decision: random selection chose Server %d.", sel.ServerID),
	}
	return sel
}

// IPHashStrategy maps the origin id onto a position in the healthy list.
// The position is stable for a fixed healthy set; the server behind it is not
// once servers go down or come back.
type IPHashStrategy struct {
	BaseStrategy
}

// NewIPHashStrategy creates a new source affinity strategy
func NewIPHashStrategy() *IPHashStrategy {
	return &IPHashStrategy{
		BaseStrategy: BaseStrategy{name: "IP Hash", algorithm: domain.IPHash},
	}
}

func (s *IPHashStrategy) Select(healthy []domain.Server, cursor uint64, affinityKey int) domain.Selection {
	n := len(healthy)
	index := ((affinityKey % n) + n) % n
	sel := s.chosen(healthy, index, cursor, affinityKey)
	sel.Summary = fmt.Sprintf("[IP-HASH] Client %d -> Server %d", affinityKey, sel.ServerID)
	sel.Rationale.Steps = []string{
		fmt.Sprintf("1. Reading origin: the request is from Client %d.", affinityKey),
		fmt.Sprintf("2. Hashing: %d %% %d = index %d.", affinityKey, n, index),
		fmt.Sprintf("3. Decision: index %d of %s maps to Server %d.", index, formatIDs(sel.Rationale.HealthyIDs), sel.ServerID),
	}
	return sel
}

// NewStrategy creates the strategy implementing algorithm. rng is only used
// by the random strategy.
func NewStrategy(algorithm domain.Algorithm, rng domain.RandomSource) (domain.SelectionStrategy, error) {
	switch algorithm {
	case domain.RoundRobin:
		return NewRoundRobinStrategy(), nil
	case domain.LeastConnections:
		return NewLeastConnectionsStrategy(), nil
	case domain.Random:
		if rng == nil {
			return nil, lberrors.NewInvalidConfigError("strategy", "random strategy requires a random source")
		}
		return NewRandomStrategy(rng), nil
	case domain.IPHash:
		return NewIPHashStrategy(), nil
	default:
		return nil, lberrors.NewInvalidConfigError("strategy", "unsupported selection algorithm: %q", algorithm)
	}
}

// NewRandomSource returns a seeded source for the random strategy.
// The result is not safe for concurrent use; the dispatcher serializes access.
func NewRandomSource(seed int64) domain.RandomSource {
	return rand.New(rand.NewSource(seed))
}

// Select runs one policy decision over the full server list. An empty healthy
// set is a normal outcome: Found is false, the cursor is unchanged and the
// rationale explains the drop.
func Select(servers []domain.Server, strategy domain.SelectionStrategy, cursor uint64, affinityKey int) domain.Selection {
	filter := &domain.HealthyServerFilter{}
	healthy := filter.Filter(servers)
	if len(healthy) == 0 {
		return exhausted(servers, strategy.Algorithm(), cursor, affinityKey)
	}
	return strategy.Select(healthy, cursor, affinityKey)
}

// SelectByAlgorithm is Select for callers holding only a policy identifier
func SelectByAlgorithm(servers []domain.Server, algorithm domain.Algorithm, cursor uint64, affinityKey int, rng domain.RandomSource) (domain.Selection, error) {
	strategy, err := NewStrategy(algorithm, rng)
	if err != nil {
		return domain.Selection{}, err
	}
	return Select(servers, strategy, cursor, affinityKey), nil
}

func exhausted(servers []domain.Server, algorithm domain.Algorithm, cursor uint64, origin int) domain.Selection {
	return domain.Selection{
		ServerID:   domain.NoServer,
		NextCursor: cursor,
		Summary:    "No active servers available!",
		Rationale: domain.Rationale{
			Algorithm:  algorithm,
			OriginID:   origin,
			Cursor:     cursor,
			HealthyIDs: []int{},
			Index:      -1,
			ServerID:   domain.NoServer,
			Exhausted:  true,
			Steps: []string{
				fmt.Sprintf("1. Checking server health: 0 of %d servers are healthy.", len(servers)),
				"2. Result: all servers are offline or unreachable.",
				"3. Action: dropping the request.",
			},
		},
	}
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatLoads(loads []domain.ServerLoad) string {
	parts := make([]string, len(loads))
	for i, l := range loads {
		parts[i] = fmt.Sprintf("Server %d: %d active", l.ServerID, l.Load)
	}
	return strings.Join(parts, ", ")
}
