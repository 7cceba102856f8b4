// Package sessions implements the session and transaction lifecycle. A
// session coordinates a multi-step automation workflow; it is active from
// creation, may hold at most one open transaction at a time, and once
// invalidated stays invalidated. All state lives behind one mutex with no
// call-outs while held.
package sessions

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// State is a session's lifecycle state.
type State string

const (
	StateActive        State = "active"
	StateInTransaction State = "in_transaction"
	StateInvalidated   State = "invalidated"
)

// Transaction is one open transaction within a session.
type Transaction struct {
	ID        string    `yaml:"id" json:"id"`
	StartTime time.Time `yaml:"start_time" json:"start_time"`
}

// Session is the public view of one session.
type Session struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	DisplayName string            `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	State       State             `yaml:"state" json:"state"`
	Isolation   string            `yaml:"isolation,omitempty" json:"isolation,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreateTime  time.Time         `yaml:"create_time" json:"create_time"`
	UpdateTime  time.Time         `yaml:"update_time" json:"update_time"`

	// Transaction is set only while State is in_transaction.
	Transaction *Transaction `yaml:"transaction,omitempty" json:"transaction,omitempty"`
}

// Snapshot summarizes a session for the get-snapshot surface.
type Snapshot struct {
	Session Session       `yaml:"session" json:"session"`
	Age     time.Duration `yaml:"age" json:"age"`
	InTx    bool          `yaml:"in_transaction" json:"in_transaction"`
}

// CreateOptions configures a new session. An empty ID asks the manager to
// generate one.
type CreateOptions struct {
	ID          string
	DisplayName string
	Isolation   string
	Timeout     time.Duration
	Metadata    map[string]string
}

// Manager owns every session. Safe for concurrent use; all operations
// serialize on one internal mutex and never call out while holding it.
type Manager struct {
	mu       sync.Mutex
	clock    platform.Clock
	ids      platform.IDGenerator
	sessions map[string]*Session
}

// NewManager builds an empty session manager.
func NewManager(clock platform.Clock, ids platform.IDGenerator) *Manager {
	return &Manager{
		clock:    clock,
		ids:      ids,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new active session. A caller-supplied ID must be
// unused and must not contain path separators.
func (m *Manager) Create(opts CreateOptions) (Session, error) {
	id := strings.TrimSpace(opts.ID)
	if strings.Contains(id, "/") {
		return Session{}, errdefs.Validationf("session_id", "%q must not contain '/'", id)
	}
	if id == "" {
		id = m.ids.NewID()
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return Session{}, errdefs.Validationf("session_id", "session %q already exists", id)
	}
	s := &Session{
		ID:          id,
		Name:        naming.Session(id),
		DisplayName: opts.DisplayName,
		State:       StateActive,
		Isolation:   opts.Isolation,
		Timeout:     opts.Timeout,
		Metadata:    copyMetadata(opts.Metadata),
		CreateTime:  now,
		UpdateTime:  now,
	}
	m.sessions[id] = s
	return cloneSession(s), nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, errdefs.NotFound(naming.Session(id))
	}
	return cloneSession(s), nil
}

// List returns every session ordered by resource name, so repeated listings
// over unchanged state paginate identically.
func (m *Manager) List() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a session. Sessions that are still active or mid-transaction
// require force; invalidated sessions delete freely.
func (m *Manager) Delete(id string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return errdefs.NotFound(naming.Session(id))
	}
	if s.State != StateInvalidated && !force {
		return errdefs.Validationf("name", "session %q is %s; pass force to delete", id, s.State)
	}
	delete(m.sessions, id)
	return nil
}

// BeginTransaction opens the session's single transaction slot. It fails
// with not-found for unknown sessions and a validation error when the
// session is invalidated or already mid-transaction.
func (m *Manager) BeginTransaction(id string) (Session, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, errdefs.NotFound(naming.Session(id))
	}
	switch s.State {
	case StateInvalidated:
		return Session{}, errdefs.Validationf("name", "session %q is invalidated", id)
	case StateInTransaction:
		return Session{}, errdefs.Validationf("name", "session %q already has an open transaction", id)
	}
	s.State = StateInTransaction
	s.Transaction = &Transaction{ID: m.ids.NewID(), StartTime: now}
	s.UpdateTime = now
	return cloneSession(s), nil
}

// CommitTransaction closes the named transaction and returns the session to
// active.
func (m *Manager) CommitTransaction(id, txID string) (Session, error) {
	return m.closeTransaction(id, txID)
}

// RollbackTransaction discards the named transaction and returns the session
// to active. The core tracks only lifecycle; the work queued under the
// transaction is the service layer's to unwind.
func (m *Manager) RollbackTransaction(id, txID string) (Session, error) {
	return m.closeTransaction(id, txID)
}

func (m *Manager) closeTransaction(id, txID string) (Session, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, errdefs.NotFound(naming.Session(id))
	}
	if s.State != StateInTransaction || s.Transaction == nil {
		return Session{}, errdefs.Validationf("transaction_id", "session %q has no open transaction", id)
	}
	if s.Transaction.ID != txID {
		return Session{}, errdefs.NotFound("transaction " + txID)
	}
	s.State = StateActive
	s.Transaction = nil
	s.UpdateTime = now
	return cloneSession(s), nil
}

// InvalidateAll moves every live session to the invalidated state, closing
// any open transactions, and returns how many sessions it transitioned.
// Already-invalidated sessions are not counted, so a second call with no
// intervening creates returns zero.
func (m *Manager) InvalidateAll() int {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.State == StateInvalidated {
			continue
		}
		s.State = StateInvalidated
		s.Transaction = nil
		s.UpdateTime = now
		n++
	}
	return n
}

// GetSnapshot summarizes one session's current state.
func (m *Manager) GetSnapshot(id string) (Snapshot, error) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Snapshot{}, errdefs.NotFound(naming.Session(id))
	}
	return Snapshot{
		Session: cloneSession(s),
		Age:     now.Sub(s.CreateTime),
		InTx:    s.State == StateInTransaction,
	}, nil
}

func cloneSession(s *Session) Session {
	out := *s
	out.Metadata = copyMetadata(s.Metadata)
	if s.Transaction != nil {
		tx := *s.Transaction
		out.Transaction = &tx
	}
	return out
}

func copyMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
