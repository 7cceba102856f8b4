// Package reconcile merges the two independently polled window views into
// one canonical snapshot per window. The structural (enumeration) view is
// authoritative for existence, stacking order, bounds, title, and the
// on-screen flag; the accessibility view, when present, is authoritative for
// minimized, hidden, and focused. The precedence lives entirely in
// MergeWindow so the rule is testable in one place.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// MergeWindow applies the hybrid-authority precedence table to one window.
// attrs == nil means the accessibility view was unavailable (not a race; see
// Reconciler.Window for the raced-to-nonexistence case): the three AX flags
// stay at their defaults and Visible falls back to the on-screen flag.
func MergeWindow(sw model.StructuralWindow, attrs *model.WindowAttributes) model.WindowSnapshot {
	snap := model.WindowSnapshot{
		WindowID: sw.WindowID,
		PID:      sw.PID,
		Title:    sw.Title,
		Bounds:   sw.Bounds,
		Layer:    sw.Layer,
		OnScreen: sw.OnScreen,
	}
	if attrs == nil {
		snap.Visible = sw.OnScreen
		return snap
	}
	snap.HasAX = true
	snap.Minimized = attrs.Minimized
	snap.Hidden = attrs.Hidden
	snap.Focused = attrs.Focused
	snap.Visible = !(attrs.Minimized || attrs.Hidden)
	return snap
}

// Reconciler produces canonical window snapshots from a structural lister
// and an optional per-window attribute fetcher.
type Reconciler struct {
	windows platform.WindowLister
	attrs   platform.AttributeFetcher
}

// New builds a Reconciler. attrs may be nil when the platform exposes no
// accessibility view; snapshots then carry structural data only.
func New(windows platform.WindowLister, attrs platform.AttributeFetcher) *Reconciler {
	return &Reconciler{windows: windows, attrs: attrs}
}

// Snapshot enumerates and merges all windows for pid (pid <= 0 for every
// application). A window whose attribute fetch reports not-found closed
// between the two polls and is dropped from the result rather than merged
// with defaults. Other fetch errors abort the snapshot.
func (r *Reconciler) Snapshot(pid int) ([]model.WindowSnapshot, error) {
	structural, err := r.windows.ListWindows(pid)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	out := make([]model.WindowSnapshot, 0, len(structural))
	for _, sw := range structural {
		snap, err := r.merge(sw)
		if err != nil {
			if errors.Is(err, errdefs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// Window merges a single window. A structural hit whose attribute fetch
// races to nonexistence is reported as not found, never as a merge with
// stale or default values.
func (r *Reconciler) Window(pid, windowID int) (model.WindowSnapshot, error) {
	structural, err := r.windows.ListWindows(pid)
	if err != nil {
		return model.WindowSnapshot{}, fmt.Errorf("list windows: %w", err)
	}
	for _, sw := range structural {
		if sw.WindowID != windowID {
			continue
		}
		return r.merge(sw)
	}
	return model.WindowSnapshot{}, errdefs.NotFound(naming.Window(pid, windowID))
}

func (r *Reconciler) merge(sw model.StructuralWindow) (model.WindowSnapshot, error) {
	if r.attrs == nil {
		return MergeWindow(sw, nil), nil
	}
	attrs, err := r.attrs.WindowAttributes(sw.PID, sw.WindowID)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return model.WindowSnapshot{}, errdefs.NotFound(naming.Window(sw.PID, sw.WindowID))
		}
		return model.WindowSnapshot{}, fmt.Errorf("window attributes %d/%d: %w", sw.PID, sw.WindowID, err)
	}
	return MergeWindow(sw, &attrs), nil
}
