// Package platform defines the seams between the control-plane core and the
// OS-level capture layer. The core never touches the OS directly: it consumes
// typed snapshots through these interfaces, and an OS-specific package
// registers a Provider at init time.
package platform

import (
	"fmt"
	"runtime"

	"github.com/deskpilot/deskpilot/internal/model"
)

// WindowLister enumerates the structural window view: existence, stacking
// order, bounds, and the on-screen flag. pid <= 0 enumerates all applications.
type WindowLister interface {
	ListWindows(pid int) ([]model.StructuralWindow, error)
}

// AttributeFetcher fetches the accessibility view of a single window:
// minimized, hidden, focused. Implementations return an error satisfying
// errdefs.ErrNotFound when the window no longer exists; callers must treat
// that as not-found, never as a mergeable default.
type AttributeFetcher interface {
	WindowAttributes(pid, windowID int) (model.WindowAttributes, error)
}

// ElementReadOptions scopes an accessibility-tree read.
type ElementReadOptions struct {
	PID         int      // Target process (required)
	VisibleOnly bool     // Skip off-screen elements
	Roles       []string // Only include these roles (empty = all)
	Attributes  []string // Extra attributes to capture by name (empty = none)
}

// ElementReader captures element attribute snapshots for one process.
type ElementReader interface {
	ReadElements(opts ElementReadOptions) ([]model.ElementSnapshot, error)
}

// Provider bundles the capture backends for the current OS.
type Provider struct {
	Windows    WindowLister
	Attributes AttributeFetcher
	Elements   ElementReader
}

// ErrUnsupported is returned on platforms with no registered capture backend.
var ErrUnsupported = fmt.Errorf("deskpilot has no capture backend on %s/%s", runtime.GOOS, runtime.GOARCH)

// NewProviderFunc is set by platform-specific packages via init().
var NewProviderFunc func() (*Provider, error)

// NewProvider returns the Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc()
}
