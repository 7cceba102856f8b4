// Package macros implements the reusable-action-sequence registry: CRUD over
// named macros, an execution counter, and versioned persistence through a
// durable byte store. In-memory and on-disk representations round-trip
// exactly.
package macros

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// Action is one step of a macro. Steps execute in order; the core stores
// them verbatim and never interprets Target or Value itself.
type Action struct {
	Type    string            `yaml:"type" json:"type"`
	Target  string            `yaml:"target,omitempty" json:"target,omitempty"`
	Value   string            `yaml:"value,omitempty" json:"value,omitempty"`
	Params  map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
	DelayMs int               `yaml:"delay_ms,omitempty" json:"delay_ms,omitempty"`
}

// Parameter declares one substitutable input of a parameterized macro.
type Parameter struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Required     bool   `yaml:"required,omitempty" json:"required,omitempty"`
	DefaultValue string `yaml:"default_value,omitempty" json:"default_value,omitempty"`
}

// Macro is one stored action sequence.
type Macro struct {
	ID             string      `yaml:"id" json:"id"`
	Name           string      `yaml:"name" json:"name"`
	DisplayName    string      `yaml:"display_name" json:"display_name"`
	Description    string      `yaml:"description,omitempty" json:"description,omitempty"`
	Actions        []Action    `yaml:"actions,omitempty" json:"actions,omitempty"`
	Parameters     []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	Tags           []string    `yaml:"tags,omitempty" json:"tags,omitempty"`
	ExecutionCount int64       `yaml:"execution_count" json:"execution_count"`
	CreateTime     time.Time   `yaml:"create_time" json:"create_time"`
	UpdateTime     time.Time   `yaml:"update_time" json:"update_time"`
	LastExecutedAt time.Time   `yaml:"last_executed_at,omitempty" json:"last_executed_at,omitempty"`
}

// CreateOptions configures a new macro. An empty ID asks the registry to
// generate one.
type CreateOptions struct {
	ID          string
	DisplayName string
	Description string
	Actions     []Action
	Parameters  []Parameter
	Tags        []string
}

// UpdateOptions carries the fields to change; nil fields stay untouched.
type UpdateOptions struct {
	DisplayName *string
	Description *string
	Actions     *[]Action
	Parameters  *[]Parameter
	Tags        *[]string
}

// Registry owns every macro plus its persistence location. Safe for
// concurrent use; the blob store is never called while the internal mutex
// is held.
type Registry struct {
	mu     sync.Mutex
	saveMu sync.Mutex // serializes Save calls; always acquired before mu
	clock  platform.Clock
	ids    platform.IDGenerator
	store  platform.BlobStore
	path   string
	macros map[string]*Macro
}

// NewRegistry builds an empty registry persisting to path in store.
func NewRegistry(clock platform.Clock, ids platform.IDGenerator, store platform.BlobStore, path string) *Registry {
	return &Registry{
		clock:  clock,
		ids:    ids,
		store:  store,
		path:   path,
		macros: make(map[string]*Macro),
	}
}

// Create registers a new macro. DisplayName is required; a caller-supplied
// ID must be unused and must not contain path separators.
func (r *Registry) Create(opts CreateOptions) (Macro, error) {
	if strings.TrimSpace(opts.DisplayName) == "" {
		return Macro{}, errdefs.Validationf("display_name", "must be non-empty")
	}
	id := strings.TrimSpace(opts.ID)
	if strings.Contains(id, "/") {
		return Macro{}, errdefs.Validationf("macro_id", "%q must not contain '/'", id)
	}
	if id == "" {
		id = r.ids.NewID()
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.macros[id]; exists {
		return Macro{}, errdefs.Validationf("macro_id", "macro %q already exists", id)
	}
	m := &Macro{
		ID:          id,
		Name:        naming.Macro(id),
		DisplayName: opts.DisplayName,
		Description: opts.Description,
		Actions:     cloneActions(opts.Actions),
		Parameters:  cloneParameters(opts.Parameters),
		Tags:        cloneStrings(opts.Tags),
		CreateTime:  now,
		UpdateTime:  now,
	}
	r.macros[id] = m
	return cloneMacro(m), nil
}

// Get returns the macro with the given id.
func (r *Registry) Get(id string) (Macro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.macros[id]
	if !ok {
		return Macro{}, errdefs.NotFound(naming.Macro(id))
	}
	return cloneMacro(m), nil
}

// List returns every macro ordered by resource name.
func (r *Registry) List() []Macro {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Macro, 0, len(r.macros))
	for _, m := range r.macros {
		out = append(out, cloneMacro(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Update applies the non-nil fields of opts to an existing macro. Clearing
// the display name to empty is rejected.
func (r *Registry) Update(id string, opts UpdateOptions) (Macro, error) {
	if opts.DisplayName != nil && strings.TrimSpace(*opts.DisplayName) == "" {
		return Macro{}, errdefs.Validationf("display_name", "must be non-empty")
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.macros[id]
	if !ok {
		return Macro{}, errdefs.NotFound(naming.Macro(id))
	}
	if opts.DisplayName != nil {
		m.DisplayName = *opts.DisplayName
	}
	if opts.Description != nil {
		m.Description = *opts.Description
	}
	if opts.Actions != nil {
		m.Actions = cloneActions(*opts.Actions)
	}
	if opts.Parameters != nil {
		m.Parameters = cloneParameters(*opts.Parameters)
	}
	if opts.Tags != nil {
		m.Tags = cloneStrings(*opts.Tags)
	}
	m.UpdateTime = now
	return cloneMacro(m), nil
}

// Delete removes a macro.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.macros[id]; !ok {
		return errdefs.NotFound(naming.Macro(id))
	}
	delete(r.macros, id)
	return nil
}

// RecordExecution increments the macro's execution counter and stamps the
// time. The counter only ever grows.
func (r *Registry) RecordExecution(id string) (Macro, error) {
	now := r.clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.macros[id]
	if !ok {
		return Macro{}, errdefs.NotFound(naming.Macro(id))
	}
	m.ExecutionCount++
	m.LastExecutedAt = now
	m.UpdateTime = now
	return cloneMacro(m), nil
}

// Count returns the number of stored macros.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.macros)
}

func cloneMacro(m *Macro) Macro {
	out := *m
	out.Actions = cloneActions(m.Actions)
	out.Parameters = cloneParameters(m.Parameters)
	out.Tags = cloneStrings(m.Tags)
	return out
}

func cloneActions(in []Action) []Action {
	if in == nil {
		return nil
	}
	out := make([]Action, len(in))
	for i, a := range in {
		out[i] = a
		if a.Params != nil {
			p := make(map[string]string, len(a.Params))
			for k, v := range a.Params {
				p[k] = v
			}
			out[i].Params = p
		}
	}
	return out
}

func cloneParameters(in []Parameter) []Parameter {
	if in == nil {
		return nil
	}
	out := make([]Parameter, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
