package service

import (
	"sync"
	"time"

	"github.com/Joker-Bat/load-balancer-vizualizer/internal/domain"
)

// DefaultLogCapacity is the number of decision records kept when none is configured
const DefaultLogCapacity = 10

// DecisionLog keeps the most recent human-readable decision records,
// newest first. Older records are discarded silently.
type DecisionLog struct {
	mu       sync.RWMutex
	capacity int
	records  []domain.LogRecord
	sequence uint64
	now      func() time.Time
}

// NewDecisionLog creates a log holding at most capacity records
func NewDecisionLog(capacity int) *DecisionLog {
	if capacity < 1 {
		capacity = DefaultLogCapacity
	}
	return &DecisionLog{
		capacity: capacity,
		records:  make([]domain.LogRecord, 0, capacity),
		now:      time.Now,
	}
}

// Add prepends a record
func (l *DecisionLog) Add(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sequence++
	record := domain.LogRecord{
		Sequence:  l.sequence,
		Message:   message,
		Timestamp: l.now(),
	}

	if len(l.records) < l.capacity {
		l.records = append(l.records, domain.LogRecord{})
	}
	copy(l.records[1:], l.records)
	l.records[0] = record
}

// Records returns a copy of the records, newest first
func (l *DecisionLog) Records() []domain.LogRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]domain.LogRecord, len(l.records))
	copy(records, l.records)
	return records
}

// Messages returns the record messages, newest first
func (l *DecisionLog) Messages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	messages := make([]string, len(l.records))
	for i, r := range l.records {
		messages[i] = r.Message
	}
	return messages
}

// Capacity returns the maximum number of records kept
func (l *DecisionLog) Capacity() int {
	return l.capacity
}

// Clear drops every record. The sequence keeps counting.
func (l *DecisionLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = l.records[:0]
}
