package observability

import (
	"sync"
	"time"

	"github.com/spec-kit/support-bot/internal/domain"
)

// Metrics provides basic in-memory counters for the poll loop.
type Metrics struct {
	mu           sync.Mutex
	started      time.Time
	outcomeCount map[domain.Outcome]int64
	errorCount   map[string]int64
	polls        int64
	lastIntake   time.Time
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Started    time.Time                `json:"started"`
	Polls      int64                    `json:"polls"`
	Outcomes   map[domain.Outcome]int64 `json:"outcomes"`
	Errors     map[string]int64         `json:"errors"`
	LastIntake *time.Time               `json:"last_intake,omitempty"`
}

// NewMetrics initializes metrics storage.
func NewMetrics(now time.Time) *Metrics {
	return &Metrics{
		started:      now,
		outcomeCount: make(map[domain.Outcome]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordPoll counts one scan for unread conversations.
func (m *Metrics) RecordPoll() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
}

// RecordOutcome counts a finished conversation.
func (m *Metrics) RecordOutcome(outcome domain.Outcome, at time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomeCount[outcome]++
	m.lastIntake = at
}

// RecordError increments error counters by stage and error code.
func (m *Metrics) RecordError(stage, code string) {
	if m == nil {
		return
	}
	key := stage + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Started:  m.started,
		Polls:    m.polls,
		Outcomes: make(map[domain.Outcome]int64, len(m.outcomeCount)),
		Errors:   make(map[string]int64, len(m.errorCount)),
	}
	for k, v := range m.outcomeCount {
		s.Outcomes[k] = v
	}
	for k, v := range m.errorCount {
		s.Errors[k] = v
	}
	if !m.lastIntake.IsZero() {
		last := m.lastIntake
		s.LastIntake = &last
	}
	return s
}
