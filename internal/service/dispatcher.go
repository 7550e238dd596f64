package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
	lberrors "github.com/Joker-Bat/load-balancer-vizualizer/internal/errors"
	"github.com/Joker-Bat/load-balancer-vizualizer/internal/repository"
	"github.com/Joker-Bat/load-balancer-vizualizer/pkg/logger"
)

const idleMessage = "No requests waiting at Load Balancer."

// DispatcherConfig bounds what operators may ask of the engine
type DispatcherConfig struct {
	MaxClients   int
	MaxServers   int
	MaxBatchSize int
	LogCapacity  int
}

// DefaultDispatcherConfig returns the limits used by the simulator UI
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxClients:   6,
		MaxServers:   8,
		MaxBatchSize: 50,
		LogCapacity:  DefaultLogCapacity,
	}
}

// pendingDecision is a manual-mode decision that was previewed but not applied
type pendingDecision struct {
	requestID string
	selection domain.Selection
	revision  uint64
}

// Dispatcher is the decision engine. It owns the server pool, the round-robin
// cursor and the live requests. Every exported method is applied as one
// atomic step under mu.
type Dispatcher struct {
	config     DispatcherConfig
	rng        domain.RandomSource
	metrics    domain.Metrics
	logger     *logger.Logger
	poolLogger *logger.Logger
	log        *DecisionLog
	newID      func() string

	mu          sync.Mutex
	initialized bool
	numClients  int
	algorithm   domain.Algorithm
	strategy    domain.SelectionStrategy
	pool        *repository.InMemoryServerPool
	requests    *repository.InMemoryRequestRepository
	cursor      uint64
	autoMode    bool
	pending     *pendingDecision
	notice      *domain.Notice

	// revision changes whenever server load or health changes
	revision uint64
}

var _ domain.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates an uninitialized engine in auto mode.
// rng feeds the random policy; metrics and log may be nil.
func NewDispatcher(config DispatcherConfig, rng domain.RandomSource, metrics domain.Metrics, log *logger.Logger) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.MaxClients < 1 {
		config.MaxClients = defaults.MaxClients
	}
	if config.MaxServers < 1 {
		config.MaxServers = defaults.MaxServers
	}
	if config.MaxBatchSize < 2 {
		config.MaxBatchSize = defaults.MaxBatchSize
	}
	if rng == nil {
		rng = NewRandomSource(1)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Dispatcher{
		config:     config,
		rng:        rng,
		metrics:    metrics,
		logger:     log.DispatcherLogger(),
		poolLogger: log.PoolLogger(),
		log:        NewDecisionLog(config.LogCapacity),
		newID:      func() string { return uuid.New().String() },
		requests:   repository.NewInMemoryRequestRepository(),
		autoMode:   true,
	}
}

// Initialize builds a fresh pool and clears every live request
func (d *Dispatcher) Initialize(numClients, numServers int, algorithm domain.Algorithm) error {
	if numClients < 1 || numClients > d.config.MaxClients {
		return lberrors.NewInvalidConfigError("dispatcher", "client count must be between 1 and %d, got %d", d.config.MaxClients, numClients)
	}
	if numServers > d.config.MaxServers {
		return lberrors.NewInvalidConfigError("dispatcher", "server count must be between 1 and %d, got %d", d.config.MaxServers, numServers)
	}
	strategy, err := NewStrategy(algorithm, d.rng)
	if err != nil {
		return err
	}
	pool, err := repository.NewInMemoryServerPool(numServers)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = true
	d.numClients = numClients
	d.algorithm = algorithm
	d.strategy = strategy
	d.pool = pool
	d.requests.Clear()
	d.cursor = 0
	d.pending = nil
	d.notice = nil
	d.revision++
	d.log.Clear()
	d.log.Add("System Initialized. Waiting for requests...")

	d.logger.WithFields(map[string]interface{}{
		"clients":   numClients,
		"servers":   numServers,
		"algorithm": algorithm,
	}).Info("Simulation initialized")
	return nil
}

// Reset returns the engine to its freshly created state
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = false
	d.numClients = 0
	d.strategy = nil
	d.pool = nil
	d.requests.Clear()
	d.cursor = 0
	d.autoMode = true
	d.pending = nil
	d.notice = nil
	d.revision++
	d.log.Clear()

	d.logger.Info("Simulation reset")
}

// AddRequest creates a request from originID at ORIGIN_TO_GATEWAY.
// count 1 creates a single request, larger counts a batch of that size.
func (d *Dispatcher) AddRequest(originID, count int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return "", lberrors.NewInvalidConfigError("dispatcher", "simulation is not initialized")
	}
	if originID < 0 || originID >= d.numClients {
		return "", lberrors.NewInvalidConfigError("dispatcher", "origin %d is outside the %d configured clients", originID, d.numClients)
	}
	if count < 1 || count > d.config.MaxBatchSize {
		return "", lberrors.NewInvalidConfigError("dispatcher", "request count must be between 1 and %d, got %d", d.config.MaxBatchSize, count)
	}

	req := d.newRequest(originID)
	if count > 1 {
		req.Kind = domain.KindBatch
		req.BatchSize = count
		req.Payload = fmt.Sprintf("BATCH (%d)", count)
	}
	if err := d.requests.Add(req); err != nil {
		return "", lberrors.WrapError(err, lberrors.ErrCodeInternalError, "dispatcher", "failed to store request")
	}

	d.logger.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"origin_id":  originID,
		"kind":       req.Kind,
		"count":      count,
	}).Debug("Request created")
	return req.ID, nil
}

// AdvanceRequest signals that the request finished travelling in its current
// state. Requests waiting for a decision or being served cannot be advanced.
func (d *Dispatcher) AdvanceRequest(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	req, err := d.requests.Get(id)
	if err != nil {
		d.logger.WithField("request_id", id).Debug("Ignoring advance for unknown request")
		return err
	}
	return d.advance(req)
}

// AdvanceFrom is AdvanceRequest guarded by the state the caller observed.
// It fails with INVALID_TRANSITION when the request has already moved on.
func (d *Dispatcher) AdvanceFrom(id string, from domain.RequestStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	req, err := d.requests.Get(id)
	if err != nil {
		return err
	}
	if req.Status != from {
		return lberrors.NewInvalidTransitionError(id, "advance from "+from.String(), req.Status.String())
	}
	return d.advance(req)
}

// advance applies one travel transition; callers hold d.mu
func (d *Dispatcher) advance(req domain.Request) error {
	next, ok := req.Status.Next()
	if !ok {
		return lberrors.NewInvalidTransitionError(req.ID, "advance", req.Status.String())
	}

	switch {
	case req.Status == domain.StatusOriginToGateway && req.IsBatch():
		return d.expandBatch(req)

	case next == domain.StatusAwaitingDecision:
		req.Status = next
		if d.autoMode {
			d.apply(&req, d.selectFor(req))
		}
		return d.requests.Update(req)

	case next == domain.StatusDone:
		if err := d.requests.Remove(req.ID); err != nil {
			return err
		}
		d.metrics.RecordCompletion()
		d.logger.WithFields(map[string]interface{}{
			"request_id": req.ID,
			"dropped":    req.Dropped,
		}).Debug("Request completed")
		return nil

	default:
		req.Status = next
		return d.requests.Update(req)
	}
}

// expandBatch replaces a batch with BatchSize single requests. In auto mode
// every sub-request is decided in order, sharing the cursor and the loads
// left by the previous decision, before any of them becomes visible.
func (d *Dispatcher) expandBatch(batch domain.Request) error {
	subs := make([]domain.Request, batch.BatchSize)
	for i := range subs {
		subs[i] = d.newRequest(batch.OriginID)
		subs[i].Status = domain.StatusAwaitingDecision
	}

	if d.autoMode {
		for i := range subs {
			d.apply(&subs[i], d.selectFor(subs[i]))
		}
		d.log.Add(fmt.Sprintf("Expanded Batch into %d requests.", batch.BatchSize))
	} else {
		d.log.Add(fmt.Sprintf("Expanded Batch into %d requests. Waiting for manual processing...", batch.BatchSize))
	}

	if err := d.requests.Replace(batch.ID, subs); err != nil {
		return lberrors.WrapError(err, lberrors.ErrCodeInternalError, "dispatcher", "failed to expand batch")
	}
	d.metrics.RecordBatchExpansion(batch.BatchSize)

	d.logger.WithFields(map[string]interface{}{
		"request_id": batch.ID,
		"size":       batch.BatchSize,
		"auto_mode":  d.autoMode,
	}).Debug("Batch expanded")
	return nil
}

// ResolveAtServer completes service of a request at its server
func (d *Dispatcher) ResolveAtServer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	req, err := d.requests.Get(id)
	if err != nil {
		d.logger.WithField("request_id", id).Debug("Ignoring resolve for unknown request")
		return err
	}
	if req.Status != domain.StatusAtServer || !req.HasServer() {
		return lberrors.NewInvalidTransitionError(id, "resolve", req.Status.String())
	}

	if err := d.pool.DecrementLoad(req.ServerID); err != nil {
		return err
	}
	d.revision++
	req.Status = domain.StatusServerToGateway
	if err := d.requests.Update(req); err != nil {
		return err
	}

	d.log.Add(fmt.Sprintf("[RESP] Server %d resolved %s. Returning...", req.ServerID, req.Payload))
	d.metrics.RecordResolution(req.ServerID)
	return nil
}

// ToggleServerHealth flips a server between healthy and down. Requests
// already on the server stay there.
func (d *Dispatcher) ToggleServerHealth(id int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pool == nil {
		return false, lberrors.NewUnknownServerError(id)
	}
	healthy, err := d.pool.ToggleHealth(id)
	if err != nil {
		return false, err
	}
	d.revision++

	state := "DOWN"
	if healthy {
		state = "UP"
	}
	d.log.Add(fmt.Sprintf("Server %d marked as %s", id, state))
	d.poolLogger.WithFields(map[string]interface{}{
		"server_id": id,
		"healthy":   healthy,
	}).Info("Server health toggled")
	return healthy, nil
}

// ToggleMode switches between auto and manual dispatch and returns the new
// mode (true for auto). Switching to auto decides every waiting request in
// arrival order, each committed before the next.
func (d *Dispatcher) ToggleMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.autoMode = !d.autoMode
	d.metrics.RecordModeSwitch()

	if !d.autoMode {
		d.logger.Info("Switched to manual mode")
		return false
	}

	d.pending = nil
	d.notice = nil

	waiting := d.requests.WithStatus(domain.StatusAwaitingDecision)
	for _, req := range waiting {
		d.apply(&req, d.selectFor(req))
		if err := d.requests.Update(req); err != nil {
			d.logger.WithError(err).WithField("request_id", req.ID).Error("Failed to flush waiting request")
		}
	}

	d.logger.WithField("flushed", len(waiting)).Info("Switched to auto mode")
	return true
}

// Step drives manual mode. The first call previews a decision for the oldest
// waiting request; the second applies it. With nothing waiting it only
// reports an informational notice.
func (d *Dispatcher) Step() domain.StepResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		if result, ok := d.commitPending(); ok {
			return result
		}
	}

	var req domain.Request
	found := false
	if d.initialized {
		req, found = d.requests.FirstWithStatus(domain.StatusAwaitingDecision)
	}
	if !found {
		notice := domain.Notice{Severity: domain.SeverityInfo, Message: idleMessage}
		d.notice = &notice
		return domain.StepResult{Outcome: domain.StepIdle, Notice: notice}
	}

	sel := d.selectFor(req)
	d.pending = &pendingDecision{
		requestID: req.ID,
		selection: sel,
		revision:  d.revision,
	}
	notice := domain.Notice{Severity: sel.Rationale.Severity(), Message: sel.Rationale.String()}
	d.notice = &notice

	rationale := sel.Rationale
	return domain.StepResult{
		Outcome:   domain.StepAnalyzing,
		RequestID: req.ID,
		Rationale: &rationale,
		Notice:    notice,
	}
}

// commitPending applies the previewed decision. The preview is reused only
// while the pool and cursor are exactly as they were when it was made;
// otherwise the policy runs again against the current state. It reports false
// if the previewed request is no longer waiting.
func (d *Dispatcher) commitPending() (domain.StepResult, bool) {
	pending := d.pending
	d.pending = nil
	d.notice = nil

	req, err := d.requests.Get(pending.requestID)
	if err != nil || req.Status != domain.StatusAwaitingDecision {
		return domain.StepResult{}, false
	}

	sel := pending.selection
	if pending.revision != d.revision || sel.Rationale.Cursor != d.cursor {
		d.logger.WithField("request_id", req.ID).Info("Pool changed since analysis, re-evaluating decision")
		sel = d.selectFor(req)
	}

	d.apply(&req, sel)
	if err := d.requests.Update(req); err != nil {
		d.logger.WithError(err).WithField("request_id", req.ID).Error("Failed to commit decision")
	}

	rationale := sel.Rationale
	return domain.StepResult{
		Outcome:   domain.StepCommitted,
		RequestID: req.ID,
		Rationale: &rationale,
		Notice:    domain.Notice{Severity: rationale.Severity(), Message: sel.Summary},
	}, true
}

// selectFor runs the policy for req against the current pool; callers hold d.mu
func (d *Dispatcher) selectFor(req domain.Request) domain.Selection {
	return Select(d.pool.Snapshot(), d.strategy, d.cursor, req.OriginID)
}

// apply commits sel to req and to the pool. It does not store req; callers
// hold d.mu and persist the request in the same step.
func (d *Dispatcher) apply(req *domain.Request, sel domain.Selection) {
	log := d.logger.WithFields(map[string]interface{}{
		"request_id": req.ID,
		"origin_id":  req.OriginID,
		"algorithm":  d.algorithm,
		"cursor":     d.cursor,
	})

	if !sel.Found {
		req.Status = domain.StatusGatewayToOrigin
		req.ServerID = domain.NoServer
		req.Dropped = true
		req.Payload = "DROPPED"
		d.log.Add(sel.Summary)
		d.metrics.RecordDrop(d.algorithm)
		log.Warn("Request dropped, no healthy servers")
		return
	}

	if err := d.pool.IncrementLoad(sel.ServerID); err != nil {
		// the pool only shrinks on Initialize, which also clears requests
		log.WithError(err).Error("Selected server vanished from pool")
		return
	}
	d.revision++
	d.cursor = sel.NextCursor
	req.ServerID = sel.ServerID
	req.Status = domain.StatusGatewayToServer

	d.log.Add(sel.Summary)
	d.metrics.RecordDecision(d.algorithm, sel.ServerID)
	log.WithField("server_id", sel.ServerID).Debug("Selected server for request")
}

func (d *Dispatcher) newRequest(originID int) domain.Request {
	id := d.newID()
	return domain.Request{
		ID:       id,
		OriginID: originID,
		ServerID: domain.NoServer,
		Status:   domain.StatusOriginToGateway,
		Kind:     domain.KindSingle,
		Payload:  "REQ-" + strings.ToUpper(shortID(id)),
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Servers returns the current server views in id order
func (d *Dispatcher) Servers() []domain.Server {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.servers()
}

func (d *Dispatcher) servers() []domain.Server {
	if d.pool == nil {
		return []domain.Server{}
	}
	return d.pool.Snapshot()
}

// Requests returns the live requests in arrival order
func (d *Dispatcher) Requests() []domain.Request {
	return d.requests.All()
}

// Request returns one live request
func (d *Dispatcher) Request(id string) (domain.Request, error) {
	return d.requests.Get(id)
}

// Cursor returns the raw round-robin cursor
func (d *Dispatcher) Cursor() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// AutoMode reports whether decisions are made without operator steps
func (d *Dispatcher) AutoMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.autoMode
}

// Algorithm returns the configured selection policy
func (d *Dispatcher) Algorithm() domain.Algorithm {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.algorithm
}

// PendingRationale returns the previewed manual decision, if any
func (d *Dispatcher) PendingRationale() (domain.Rationale, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return domain.Rationale{}, false
	}
	return d.pending.selection.Rationale, true
}

// Logs returns the decision log, newest first
func (d *Dispatcher) Logs() []domain.LogRecord {
	return d.log.Records()
}

// LogMessages returns the decision log messages, newest first
func (d *Dispatcher) LogMessages() []string {
	return d.log.Messages()
}

// Snapshot returns a consistent view of the whole engine
func (d *Dispatcher) Snapshot() domain.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := domain.Snapshot{
		Initialized: d.initialized,
		NumClients:  d.numClients,
		Algorithm:   d.algorithm,
		AutoMode:    d.autoMode,
		Cursor:      d.cursor,
		Servers:     d.servers(),
		Requests:    d.requests.All(),
		Logs:        d.log.Records(),
	}
	if d.pending != nil {
		rationale := d.pending.selection.Rationale
		snapshot.Pending = &rationale
	}
	if d.notice != nil {
		notice := *d.notice
		snapshot.Notice = &notice
	}
	return snapshot
}

// GetStats returns engine statistics
func (d *Dispatcher) GetStats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := map[string]interface{}{
		"initialized":   d.initialized,
		"algorithm":     d.algorithm,
		"auto_mode":     d.autoMode,
		"cursor":        d.cursor,
		"live_requests": d.requests.Count(),
		"metrics":       d.metrics.GetStats(),
	}
	if d.pool != nil {
		stats["pool"] = d.pool.GetStats()
	}
	return stats
}
