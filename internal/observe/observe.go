// Package observe owns the observation lifecycle: creating pending
// observations, starting one background polling task per active observation,
// streaming detected changes to subscribers, and tearing the tasks down on
// cancel, complete, fail, or bulk drain.
package observe

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/detect"
	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// Type selects what an observation watches.
type Type string

const (
	TypeElementChanges     Type = "element_changes"
	TypeWindowChanges      Type = "window_changes"
	TypeApplicationChanges Type = "application_changes"
	TypeAttributeChanges   Type = "attribute_changes"
	TypeTreeChanges        Type = "tree_changes"
)

// ParseType validates an observation type string.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeElementChanges, TypeWindowChanges, TypeApplicationChanges,
		TypeAttributeChanges, TypeTreeChanges:
		return t, nil
	}
	return "", errdefs.Validationf("type", "unknown observation type %q", s)
}

// elementScoped reports whether the type reads the element tree and so
// needs a concrete target process.
func (t Type) elementScoped() bool {
	switch t {
	case TypeElementChanges, TypeAttributeChanges, TypeTreeChanges:
		return true
	}
	return false
}

// State is an observation lifecycle state. Transitions are monotonic:
// pending -> active -> one terminal state, which is then sticky.
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether s is a sticky end state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Filter scopes what an observation's poller captures and how often.
type Filter struct {
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	VisibleOnly  bool          `yaml:"visible_only,omitempty" json:"visible_only,omitempty"`
	Roles        []string      `yaml:"roles,omitempty" json:"roles,omitempty"`
	Attributes   []string      `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Observation is one change subscription and its lifecycle record.
type Observation struct {
	Name       string    `yaml:"name" json:"name"`
	ID         string    `yaml:"id" json:"id"`
	PID        int       `yaml:"pid" json:"pid"`
	Type       Type      `yaml:"type" json:"type"`
	State      State     `yaml:"state" json:"state"`
	Filter     Filter    `yaml:"filter" json:"filter"`
	CreateTime time.Time `yaml:"create_time" json:"create_time"`
	StartTime  time.Time `yaml:"start_time,omitempty" json:"start_time,omitempty"`
	EndTime    time.Time `yaml:"end_time,omitempty" json:"end_time,omitempty"`
	Sequence   int64     `yaml:"sequence" json:"sequence"`
	Error      string    `yaml:"error,omitempty" json:"error,omitempty"`
}

// ElementEvent is the element-side event payload: the identity key plus,
// for attribute-level changes, one attribute's canonical old/new values.
type ElementEvent struct {
	Key       string                   `yaml:"key" json:"key"`
	Kind      detect.ElementChangeKind `yaml:"kind" json:"kind"`
	Role      string                   `yaml:"role,omitempty" json:"role,omitempty"`
	Attribute string                   `yaml:"attribute,omitempty" json:"attribute,omitempty"`
	Old       string                   `yaml:"old,omitempty" json:"old,omitempty"`
	New       string                   `yaml:"new,omitempty" json:"new,omitempty"`
}

// Event is one emitted change. Sequence numbers increase strictly within
// an observation. Exactly one payload field is set.
type Event struct {
	Observation string               `yaml:"observation" json:"observation"`
	Time        time.Time            `yaml:"time" json:"time"`
	Sequence    int64                `yaml:"sequence" json:"sequence"`
	Window      *detect.WindowChange `yaml:"window,omitempty" json:"window,omitempty"`
	Element     *ElementEvent        `yaml:"element,omitempty" json:"element,omitempty"`
}

// WindowSource produces canonical merged window snapshots; pid <= 0 means
// every application. The reconciler satisfies this.
type WindowSource interface {
	Snapshot(pid int) ([]model.WindowSnapshot, error)
}

// Source bundles the external state a poller reads between ticks. Either
// half may be nil; starting an observation whose type needs the missing
// half fails.
type Source struct {
	Windows  WindowSource
	Elements platform.ElementReader
}

// Options configures a Manager. Zero values select production defaults.
type Options struct {
	Clock          platform.Clock
	IDs            platform.IDGenerator
	Logger         *slog.Logger
	Source         Source
	Breaker        *detect.Breaker
	SelfActivation *detect.SelfActivation
	Epsilon        float64

	// DefaultInterval applies when a filter carries no poll interval;
	// MinInterval is the floor below which requested intervals are clamped.
	DefaultInterval time.Duration
	MinInterval     time.Duration

	// StreamBuffer is the per-observation event channel capacity. A full
	// buffer drops the event rather than stalling the poller.
	StreamBuffer int
}

const (
	defaultPollInterval = time.Second
	defaultMinInterval  = 100 * time.Millisecond
	defaultStreamBuffer = 64
)

type record struct {
	obs     Observation
	events  chan Event
	cancel  context.CancelFunc
	started bool
}

// Manager is the observation store plus the supervisor of its polling
// tasks. All state transitions serialize through one mutex; pollers run
// outside it and re-enter only for sequence allocation and terminal
// transitions.
type Manager struct {
	mu      sync.Mutex
	clock   platform.Clock
	ids     platform.IDGenerator
	logger  *slog.Logger
	source  Source
	breaker *detect.Breaker
	selfAct *detect.SelfActivation
	epsilon float64

	defaultInterval time.Duration
	minInterval     time.Duration
	streamBuffer    int

	recs map[string]*record
}

// NewManager builds a Manager from opts.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = platform.SystemClock{}
	}
	if opts.IDs == nil {
		opts.IDs = platform.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Breaker == nil {
		opts.Breaker = detect.NewBreaker(opts.Clock, 0, 0)
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = detect.DefaultEpsilon
	}
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = defaultPollInterval
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.StreamBuffer <= 0 {
		opts.StreamBuffer = defaultStreamBuffer
	}
	return &Manager{
		clock:           opts.Clock,
		ids:             opts.IDs,
		logger:          opts.Logger,
		source:          opts.Source,
		breaker:         opts.Breaker,
		selfAct:         opts.SelfActivation,
		epsilon:         opts.Epsilon,
		defaultInterval: opts.DefaultInterval,
		minInterval:     opts.MinInterval,
		streamBuffer:    opts.StreamBuffer,
		recs:            make(map[string]*record),
	}
}

// CreateOptions configures a new observation. An empty ID asks the manager
// to generate one.
type CreateOptions struct {
	ID     string
	PID    int
	Type   Type
	Filter Filter
}

// Create allocates a pending observation under applications/{pid}. Element,
// attribute, and tree observations need a concrete pid; window and
// application observations accept pid 0 as "whole desktop".
func (m *Manager) Create(opts CreateOptions) (Observation, error) {
	typ, err := ParseType(string(opts.Type))
	if err != nil {
		return Observation{}, err
	}
	if opts.PID < 0 {
		return Observation{}, errdefs.Validationf("pid", "must be >= 0, got %d", opts.PID)
	}
	if typ.elementScoped() && opts.PID == 0 {
		return Observation{}, errdefs.Validationf("pid", "%s observations need a target process", typ)
	}
	id := strings.TrimSpace(opts.ID)
	if strings.Contains(id, "/") {
		return Observation{}, errdefs.Validationf("observation_id", "%q must not contain '/'", id)
	}
	if id == "" {
		id = m.ids.NewID()
	}
	filter := opts.Filter
	if filter.PollInterval <= 0 {
		filter.PollInterval = m.defaultInterval
	}
	if filter.PollInterval < m.minInterval {
		filter.PollInterval = m.minInterval
	}
	name := naming.Observation(opts.PID, id)
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[name]; exists {
		return Observation{}, errdefs.Validationf("observation_id", "%s already exists", name)
	}
	rec := &record{obs: Observation{
		Name:       name,
		ID:         id,
		PID:        opts.PID,
		Type:       typ,
		State:      StatePending,
		Filter:     filter,
		CreateTime: now,
	}}
	m.recs[name] = rec
	return cloneObservation(rec.obs), nil
}

// Start activates a pending observation: it stamps the start time, opens
// the event stream, and spawns the polling task. Starting an already-active
// observation returns the existing record and stream without spawning a
// second task. Starting a terminal observation fails.
func (m *Manager) Start(ctx context.Context, name string) (Observation, <-chan Event, error) {
	m.mu.Lock()
	rec, ok := m.recs[name]
	if !ok {
		m.mu.Unlock()
		return Observation{}, nil, errdefs.NotFound(name)
	}
	if rec.obs.State.Terminal() {
		state := rec.obs.State
		m.mu.Unlock()
		return Observation{}, nil, errdefs.Validationf("state", "%s is already %s", name, state)
	}
	if rec.started {
		obs, events := cloneObservation(rec.obs), rec.events
		m.mu.Unlock()
		return obs, events, nil
	}
	rec.started = true
	rec.obs.State = StateActive
	rec.obs.StartTime = m.clock.Now()
	rec.events = make(chan Event, m.streamBuffer)
	pollCtx, cancel := context.WithCancel(ctx)
	rec.cancel = cancel
	obs, events := cloneObservation(rec.obs), rec.events
	m.mu.Unlock()

	go m.poll(pollCtx, obs, events)
	return obs, events, nil
}

// Get returns the named observation.
func (m *Manager) Get(name string) (Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[name]
	if !ok {
		return Observation{}, errdefs.NotFound(name)
	}
	return cloneObservation(rec.obs), nil
}

// List pages through the observations under applications/{pid}, every
// observation when all is true. Ordering is lexicographic by name and
// stable across calls with unchanged state.
func (m *Manager) List(pid int, all bool, pageSize int, token string) ([]Observation, string, error) {
	prefix := ""
	if !all {
		prefix = naming.Application(pid) + "/observations/"
	}

	m.mu.Lock()
	matched := make([]Observation, 0, len(m.recs))
	for name, rec := range m.recs {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		matched = append(matched, cloneObservation(rec.obs))
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return naming.Page(matched, pageSize, token)
}

// Cancel moves an observation to cancelled, stopping its poller and closing
// its stream. Cancelling an already-terminal observation returns the
// existing record without error.
func (m *Manager) Cancel(name string) (Observation, error) {
	obs, _, err := m.terminate(name, StateCancelled, "")
	return obs, err
}

// Complete moves an observation to completed.
func (m *Manager) Complete(name string) (Observation, error) {
	obs, _, err := m.terminate(name, StateCompleted, "")
	return obs, err
}

// Fail moves an observation to failed, recording the reason.
func (m *Manager) Fail(name, reason string) (Observation, error) {
	obs, _, err := m.terminate(name, StateFailed, reason)
	return obs, err
}

// terminate applies a sticky terminal transition. The bool reports whether
// this call performed the transition (false when already terminal), which
// is what bulk cancellation tallies.
func (m *Manager) terminate(name string, state State, reason string) (Observation, bool, error) {
	now := m.clock.Now()
	m.mu.Lock()
	rec, ok := m.recs[name]
	if !ok {
		m.mu.Unlock()
		return Observation{}, false, errdefs.NotFound(name)
	}
	if rec.obs.State.Terminal() {
		obs := cloneObservation(rec.obs)
		m.mu.Unlock()
		return obs, false, nil
	}
	rec.obs.State = state
	rec.obs.EndTime = now
	if reason != "" {
		rec.obs.Error = reason
	}
	cancel := rec.cancel
	rec.cancel = nil
	obs := cloneObservation(rec.obs)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return obs, true, nil
}

// CancelAll cancels every non-terminal observation and returns how many
// this call transitioned. Concurrent callers partition the total exactly:
// each observation is counted by the one caller that flipped it.
func (m *Manager) CancelAll() int {
	now := m.clock.Now()
	m.mu.Lock()
	count := 0
	var cancels []context.CancelFunc
	for _, rec := range m.recs {
		if rec.obs.State.Terminal() {
			continue
		}
		rec.obs.State = StateCancelled
		rec.obs.EndTime = now
		if rec.cancel != nil {
			cancels = append(cancels, rec.cancel)
			rec.cancel = nil
		}
		count++
	}
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return count
}

// Count returns the number of stored observations in any state.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

// nextSeq allocates the next event sequence number for name. The zero
// return means the observation vanished and the poller should stop.
func (m *Manager) nextSeq(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[name]
	if !ok {
		return 0
	}
	rec.obs.Sequence++
	return rec.obs.Sequence
}

func cloneObservation(o Observation) Observation {
	out := o
	if o.Filter.Roles != nil {
		out.Filter.Roles = append([]string(nil), o.Filter.Roles...)
	}
	if o.Filter.Attributes != nil {
		out.Filter.Attributes = append([]string(nil), o.Filter.Attributes...)
	}
	return out
}
