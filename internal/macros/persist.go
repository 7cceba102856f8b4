package macros

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
)

// storeVersion is the only envelope version this build reads or writes.
const storeVersion = 1

// storeFile is the on-disk envelope. Macros are written sorted by resource
// name so consecutive saves of the same state produce identical bytes.
type storeFile struct {
	Version int     `json:"version"`
	Macros  []Macro `json:"macros"`
}

// Save writes every macro to the registry's persistence path as one
// versioned envelope. Writers are serialized, and the underlying store
// replaces the file atomically, so readers never observe a partial save.
func (r *Registry) Save() error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	f := storeFile{Version: storeVersion, Macros: r.List()}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode macro store: %w", err)
	}
	data = append(data, '\n')
	if err := r.store.Write(r.path, data); err != nil {
		return fmt.Errorf("save macro store: %w", err)
	}
	return nil
}

// Load reads the persistence path back into the registry. A missing file
// starts empty without error. A file that cannot be parsed, carries an
// unsupported version, or contains a malformed entry fails as corrupted
// state and applies nothing. With clearExisting true the in-memory set is
// replaced wholesale; with false, loaded macros are merged over it and
// memory-only entries survive.
func (r *Registry) Load(clearExisting bool) error {
	if !r.store.Exists(r.path) {
		if clearExisting {
			r.mu.Lock()
			r.macros = make(map[string]*Macro)
			r.mu.Unlock()
		}
		return nil
	}
	data, err := r.store.Read(r.path)
	if err != nil {
		return fmt.Errorf("read macro store: %w", err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return errdefs.Corruptedf(r.path, "parse: %v", err)
	}
	if f.Version != storeVersion {
		return errdefs.Corruptedf(r.path, "unsupported store version %d (want %d)", f.Version, storeVersion)
	}

	// Validate the whole file before touching registry state.
	staged := make(map[string]*Macro, len(f.Macros))
	for i := range f.Macros {
		m := f.Macros[i]
		if strings.TrimSpace(m.ID) == "" {
			return errdefs.Corruptedf(r.path, "macro %d: empty id", i)
		}
		if strings.Contains(m.ID, "/") {
			return errdefs.Corruptedf(r.path, "macro %d: id %q contains '/'", i, m.ID)
		}
		if strings.TrimSpace(m.DisplayName) == "" {
			return errdefs.Corruptedf(r.path, "macro %q: empty display_name", m.ID)
		}
		if m.ExecutionCount < 0 {
			return errdefs.Corruptedf(r.path, "macro %q: negative execution_count %d", m.ID, m.ExecutionCount)
		}
		if _, dup := staged[m.ID]; dup {
			return errdefs.Corruptedf(r.path, "macro %q: duplicate id", m.ID)
		}
		m.Name = naming.Macro(m.ID)
		staged[m.ID] = &m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if clearExisting {
		r.macros = staged
		return nil
	}
	for id, m := range staged {
		r.macros[id] = m
	}
	return nil
}
