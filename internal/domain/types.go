package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// NoServer marks a request that has no assigned server
const NoServer = -1

// ServerStatus represents the health status of a simulated server
type ServerStatus int

const (
	// StatusHealthy indicates the server is eligible for routing
	StatusHealthy ServerStatus = iota
	// StatusDown indicates the server was taken offline by an operator
	StatusDown
)

// String returns the string representation of ServerStatus
func (s ServerStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// Server is a point-in-time view of one server in the pool.
// Values are copies; mutating them never affects the pool.
type Server struct {
	ID             int  `json:"id" yaml:"id"`
	ActiveLoad     int  `json:"active_load" yaml:"active_load"`
	TotalCompleted int  `json:"total_completed" yaml:"total_completed"`
	Healthy        bool `json:"healthy" yaml:"healthy"`
}

// Status returns the health status of the server
func (s Server) Status() ServerStatus {
	if s.Healthy {
		return StatusHealthy
	}
	return StatusDown
}

// RequestKind distinguishes single requests from batches awaiting expansion
type RequestKind string

const (
	// KindSingle is a request routed to exactly one server
	KindSingle RequestKind = "SINGLE"
	// KindBatch is expanded into BatchSize single requests at the gateway
	KindBatch RequestKind = "BATCH"
)

// Request is a point-in-time view of one live request
type Request struct {
	ID        string        `json:"id"`
	OriginID  int           `json:"origin_id"`
	ServerID  int           `json:"server_id"`
	Status    RequestStatus `json:"status"`
	Kind      RequestKind   `json:"kind"`
	BatchSize int           `json:"batch_size,omitempty"`
	Payload   string        `json:"payload"`
	Dropped   bool          `json:"dropped"`
}

// HasServer reports whether the request is currently assigned to a server
func (r Request) HasServer() bool {
	return r.ServerID != NoServer
}

// IsBatch reports whether the request still needs to be expanded
func (r Request) IsBatch() bool {
	return r.Kind == KindBatch
}

// Algorithm identifies a server selection policy
type Algorithm string

const (
	// RoundRobin cycles through healthy servers using the shared cursor
	RoundRobin Algorithm = "round_robin"
	// LeastConnections picks the healthy server with the fewest active requests
	LeastConnections Algorithm = "least_connections"
	// Random picks a healthy server uniformly at random
	Random Algorithm = "random"
	// IPHash maps the origin id onto the healthy server list
	IPHash Algorithm = "ip_hash"
)

// Algorithms lists every supported selection policy
func Algorithms() []Algorithm {
	return []Algorithm{RoundRobin, LeastConnections, Random, IPHash}
}

// IsValid reports whether the algorithm is supported
func (a Algorithm) IsValid() bool {
	switch a {
	case RoundRobin, LeastConnections, Random, IPHash:
		return true
	default:
		return false
	}
}

// Tag returns the short label used in decision log records
func (a Algorithm) Tag() string {
	switch a {
	case RoundRobin:
		return "RR"
	case LeastConnections:
		return "LC"
	case Random:
		return "RND"
	case IPHash:
		return "IP-HASH"
	default:
		return "?"
	}
}

// Dispatcher defines the command and query surface of the decision engine.
// Collaborators (HTTP handlers, the travel clock) depend on this interface.
type Dispatcher interface {
	Initialize(numClients, numServers int, algorithm Algorithm) error
	Reset()
	AddRequest(originID, count int) (string, error)
	AdvanceRequest(id string) error
	ResolveAtServer(id string) error
	ToggleServerHealth(id int) (bool, error)
	ToggleMode() bool
	Step() StepResult
	Snapshot() Snapshot
}

// Metrics defines the interface for collecting decision statistics
type Metrics interface {
	// RecordDecision counts a committed assignment
	RecordDecision(algorithm Algorithm, serverID int)
	// RecordDrop counts a request dropped for lack of healthy servers
	RecordDrop(algorithm Algorithm)
	// RecordResolution counts a request resolved at a server
	RecordResolution(serverID int)
	// RecordCompletion counts a request leaving the live set
	RecordCompletion()
	// RecordBatchExpansion counts a batch expanded into size requests
	RecordBatchExpansion(size int)
	// RecordModeSwitch counts an operator mode toggle
	RecordModeSwitch()
	// GetStats returns current statistics
	GetStats() map[string]interface{}
}

// Snapshot is a consistent read-only view of the whole engine
type Snapshot struct {
	Initialized bool        `json:"initialized"`
	NumClients  int         `json:"num_clients"`
	Algorithm   Algorithm   `json:"algorithm"`
	AutoMode    bool        `json:"auto_mode"`
	Cursor      uint64      `json:"cursor"`
	Servers     []Server    `json:"servers"`
	Requests    []Request   `json:"requests"`
	Pending     *Rationale  `json:"pending,omitempty"`
	Notice      *Notice     `json:"notice,omitempty"`
	Logs        []LogRecord `json:"logs"`
}

// LogRecord is one human-readable entry of the decision log
type LogRecord struct {
	Sequence  uint64    `json:"sequence"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Severity classifies a step result for the operator
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityError   Severity = "ERROR"
)

// Notice is an informational message shown to the operator
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// StepOutcome tells what a manual step did
type StepOutcome string

const (
	// StepIdle means no request was waiting for a decision
	StepIdle StepOutcome = "idle"
	// StepAnalyzing means a decision was previewed but not committed
	StepAnalyzing StepOutcome = "analyzing"
	// StepCommitted means the previewed decision was applied
	StepCommitted StepOutcome = "committed"
)

// StepResult is returned by every call to Step
type StepResult struct {
	Outcome   StepOutcome `json:"outcome"`
	RequestID string      `json:"request_id,omitempty"`
	Rationale *Rationale  `json:"rationale,omitempty"`
	Notice    Notice      `json:"notice"`
}

// RequestContext contains HTTP request-specific information
type RequestContext struct {
	RequestID  string
	RemoteAddr string
	UserAgent  string
	Method     string
	Path       string
	StartTime  time.Time
}

type requestContextKey struct{}

// NewRequestContext creates a new RequestContext from an HTTP request
func NewRequestContext(r *http.Request) *RequestContext {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return &RequestContext{
		RequestID:  requestID,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
		Method:     r.Method,
		Path:       r.URL.Path,
		StartTime:  time.Now(),
	}
}

// WithRequestContext stores rc in ctx
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFrom returns the RequestContext stored in ctx, if any
func RequestContextFrom(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}
