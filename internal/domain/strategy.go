package domain

import (
	"strings"
)

// SelectionStrategy defines the interface for server selection policies.
// Implementations must be pure: the outcome depends only on the arguments
// (and, for Random, on the injected random source).
type SelectionStrategy interface {
	// Select chooses among healthy, which is never empty and sorted by id
	Select(healthy []Server, cursor uint64, affinityKey int) Selection

	// Algorithm returns the policy this strategy implements
	Algorithm() Algorithm

	// Name returns the human-readable name of the strategy
	Name() string
}

// RandomSource yields uniformly distributed integers in [0, n)
type RandomSource interface {
	Intn(n int) int
}

// Selection is the outcome of one policy decision
type Selection struct {
	ServerID   int       `json:"server_id"`
	Found      bool      `json:"found"`
	NextCursor uint64    `json:"next_cursor"`
	Rationale  Rationale `json:"rationale"`
	// Summary is the one-line decision log record
	Summary string `json:"summary"`
}

// ServerLoad is a (server, load) pair considered by a decision
type ServerLoad struct {
	ServerID int `json:"server_id"`
	Load     int `json:"load"`
}

// Rationale is a structured trace of a single decision.
// Every field is derived from the decision inputs.
type Rationale struct {
	Algorithm  Algorithm    `json:"algorithm"`
	OriginID   int          `json:"origin_id"`
	Cursor     uint64       `json:"cursor"`
	HealthyIDs []int        `json:"healthy_ids"`
	Loads      []ServerLoad `json:"loads,omitempty"`
	Index      int          `json:"index"`
	ServerID   int          `json:"server_id"`
	Exhausted  bool         `json:"exhausted"`
	Steps      []string     `json:"steps"`
}

// String renders the steps as a multi-line explanation
func (r Rationale) String() string {
	return strings.Join(r.Steps, "\n")
}

// Severity returns how the rationale should be presented to an operator
func (r Rationale) Severity() Severity {
	if r.Exhausted {
		return SeverityError
	}
	return SeveritySuccess
}

// ServerFilter narrows a server list before selection
type ServerFilter interface {
	Filter(servers []Server) []Server
	Name() string
}

// HealthyServerFilter keeps only healthy servers, preserving order
type HealthyServerFilter struct{}

func (f *HealthyServerFilter) Filter(servers []Server) []Server {
	healthy := make([]Server, 0, len(servers))
	for _, server := range servers {
		if server.Healthy {
			healthy = append(healthy, server)
		}
	}
	return healthy
}

func (f *HealthyServerFilter) Name() string {
	return "healthy_servers"
}

// ServerIDs returns the ids of servers in order
func ServerIDs(servers []Server) []int {
	ids := make([]int, len(servers))
	for i, server := range servers {
		ids[i] = server.ID
	}
	return ids
}
