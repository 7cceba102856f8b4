// Package detect holds the pure change-detection pieces: window and element
// diffs, the per-process event-rate circuit breaker, and the self-activation
// suppression tracker. Nothing here touches the platform; callers feed in
// snapshots and a clock.
package detect

import "github.com/deskpilot/deskpilot/internal/model"

// WindowChangeKind is the kind of a detected window change.
type WindowChangeKind string

const (
	WindowCreated      WindowChangeKind = "created"
	WindowDestroyed    WindowChangeKind = "destroyed"
	WindowMoved        WindowChangeKind = "moved"
	WindowResized      WindowChangeKind = "resized"
	WindowMinimized    WindowChangeKind = "minimized"
	WindowRestored     WindowChangeKind = "restored"
	WindowHidden       WindowChangeKind = "hidden"
	WindowShown        WindowChangeKind = "shown"
	WindowTitleChanged WindowChangeKind = "title_changed"
	WindowFocused      WindowChangeKind = "focused"
)

// WindowChange is one detected change between two window snapshots.
type WindowChange struct {
	Kind     WindowChangeKind `yaml:"kind" json:"kind"`
	WindowID int              `yaml:"window_id" json:"window_id"`
	PID      int              `yaml:"pid" json:"pid"`
}

// DiffWindows compares two canonical window lists matched by window id.
// Current windows are walked in order for created/changed, then previous
// ones for destroyed, so output order is stable for identical inputs.
//
// The minimized and hidden axes are compared independently: minimizing a
// window emits only minimized/restored, and a visibility change with the
// minimized flag unchanged emits only hidden/shown. Moved and resized are
// likewise independent and may both fire for one window.
func DiffWindows(prev, curr []model.WindowSnapshot) []WindowChange {
	prevByID := make(map[int]model.WindowSnapshot, len(prev))
	for _, w := range prev {
		prevByID[w.WindowID] = w
	}
	currByID := make(map[int]model.WindowSnapshot, len(curr))
	for _, w := range curr {
		currByID[w.WindowID] = w
	}

	var changes []WindowChange
	for _, w := range curr {
		before, existed := prevByID[w.WindowID]
		if !existed {
			changes = append(changes, change(WindowCreated, w))
			continue
		}
		changes = append(changes, diffWindow(before, w)...)
	}
	for _, w := range prev {
		if _, exists := currByID[w.WindowID]; !exists {
			changes = append(changes, change(WindowDestroyed, w))
		}
	}
	return changes
}

func diffWindow(prev, curr model.WindowSnapshot) []WindowChange {
	var out []WindowChange
	if !prev.Bounds.SameOrigin(curr.Bounds) {
		out = append(out, change(WindowMoved, curr))
	}
	if !prev.Bounds.SameSize(curr.Bounds) {
		out = append(out, change(WindowResized, curr))
	}
	if !prev.Minimized && curr.Minimized {
		out = append(out, change(WindowMinimized, curr))
	} else if prev.Minimized && !curr.Minimized {
		out = append(out, change(WindowRestored, curr))
	}
	if prevObs, currObs := obscured(prev), obscured(curr); prevObs != currObs {
		if currObs {
			out = append(out, change(WindowHidden, curr))
		} else {
			out = append(out, change(WindowShown, curr))
		}
	}
	if prev.Title != curr.Title {
		out = append(out, change(WindowTitleChanged, curr))
	}
	if !prev.Focused && curr.Focused {
		out = append(out, change(WindowFocused, curr))
	}
	return out
}

// obscured is the visibility axis orthogonal to minimized: the AX hidden
// flag when the accessibility view contributed, else the inverted on-screen
// flag from the structural view.
func obscured(w model.WindowSnapshot) bool {
	if w.HasAX {
		return w.Hidden
	}
	return !w.OnScreen
}

func change(kind WindowChangeKind, w model.WindowSnapshot) WindowChange {
	return WindowChange{Kind: kind, WindowID: w.WindowID, PID: w.PID}
}
