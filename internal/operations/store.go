// Package operations implements the long-running-operation registry.
// Operations are tracked by opaque resource name from creation until a
// single Finish or Fail, and DrainAll accounts for every live operation
// exactly once across concurrent callers.
package operations

import (
	"sort"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// Operation is one tracked unit of asynchronous work. Once Done, exactly
// one of Result or Error is set.
type Operation struct {
	Name       string            `yaml:"name" json:"name"`
	Done       bool              `yaml:"done" json:"done"`
	Metadata   map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Result     any               `yaml:"result,omitempty" json:"result,omitempty"`
	Error      string            `yaml:"error,omitempty" json:"error,omitempty"`
	CreateTime time.Time         `yaml:"create_time" json:"create_time"`
	EndTime    time.Time         `yaml:"end_time,omitempty" json:"end_time,omitempty"`
}

// Store is the in-memory operation registry. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	clock platform.Clock
	ops   map[string]*Operation
}

// NewStore builds an empty registry reading time from clock.
func NewStore(clock platform.Clock) *Store {
	return &Store{clock: clock, ops: make(map[string]*Operation)}
}

// Create registers a pending operation under name. Re-creating an existing
// name is a validation error; a finished operation must be observed, not
// silently replaced.
func (s *Store) Create(name string, metadata map[string]string) (Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[name]; exists {
		return Operation{}, errdefs.Validationf("name", "operation %q already exists", name)
	}
	op := &Operation{Name: name, Metadata: metadata, CreateTime: s.clock.Now()}
	s.ops[name] = op
	return *op, nil
}

// Get returns the operation for name, or false for unknown names.
func (s *Store) Get(name string) (Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[name]
	if !ok {
		return Operation{}, false
	}
	return *op, true
}

// Finish marks name done with a result. The first terminal call wins;
// repeats return the existing record unchanged. Unknown names return false.
func (s *Store) Finish(name string, result any) (Operation, bool) {
	return s.terminate(name, result, "")
}

// Fail marks name done with an error message. Same idempotence as Finish.
func (s *Store) Fail(name string, reason string) (Operation, bool) {
	if reason == "" {
		reason = "operation failed"
	}
	return s.terminate(name, nil, reason)
}

func (s *Store) terminate(name string, result any, errMsg string) (Operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.ops[name]
	if !ok {
		return Operation{}, false
	}
	if op.Done {
		return *op, true
	}
	op.Done = true
	op.Result = result
	op.Error = errMsg
	op.EndTime = s.clock.Now()
	return *op, true
}

// List returns all operations ordered by name.
func (s *Store) List() []Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Operation, 0, len(s.ops))
	for _, op := range s.ops {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DrainAll atomically removes every operation, returning how many were
// still pending (treated as cancelled) and how many existed in total.
// Concurrent drains partition the total between them: each operation is
// counted by exactly one caller, and draining an empty store yields zeros.
func (s *Store) DrainAll() (cancelled, total int) {
	s.mu.Lock()
	drained := s.ops
	s.ops = make(map[string]*Operation)
	s.mu.Unlock()

	for _, op := range drained {
		if !op.Done {
			cancelled++
		}
	}
	return cancelled, len(drained)
}
