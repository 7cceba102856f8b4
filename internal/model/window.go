package model

// Bounds is a window or element rectangle in global display coordinates
// (top-left origin).
type Bounds struct {
	X      float64 `yaml:"x"      json:"x"`
	Y      float64 `yaml:"y"      json:"y"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// SameOrigin reports whether two rectangles share a top-left corner.
func (b Bounds) SameOrigin(o Bounds) bool { return b.X == o.X && b.Y == o.Y }

// SameSize reports whether two rectangles have identical dimensions.
func (b Bounds) SameSize(o Bounds) bool { return b.Width == o.Width && b.Height == o.Height }

// StructuralWindow is one window as reported by the window-enumeration
// snapshot. This view is authoritative for existence, stacking order, bounds,
// and the on-screen flag; it carries no accessibility state.
type StructuralWindow struct {
	WindowID int    `yaml:"id"              json:"id"`
	PID      int    `yaml:"pid"             json:"pid"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Bounds   Bounds `yaml:"bounds"          json:"bounds"`
	Layer    int    `yaml:"layer"           json:"layer"`
	OnScreen bool   `yaml:"on_screen"       json:"on_screen"`
}

// WindowAttributes is the per-window accessibility state, fetched separately
// from enumeration and possibly unavailable (the window may close between the
// two polls). When present it is authoritative for minimized, hidden, and
// focused.
type WindowAttributes struct {
	Minimized bool `yaml:"minimized" json:"minimized"`
	Hidden    bool `yaml:"hidden"    json:"hidden"`
	Focused   bool `yaml:"focused"   json:"focused"`
}

// WindowSnapshot is the canonical merged record for one window within a single
// refresh cycle. Snapshots are rebuilt wholesale on every poll and never
// mutated in place.
type WindowSnapshot struct {
	WindowID int    `yaml:"id"              json:"id"`
	PID      int    `yaml:"pid"             json:"pid"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`
	Bounds   Bounds `yaml:"bounds"          json:"bounds"`
	Layer    int    `yaml:"layer"           json:"layer"`
	OnScreen bool   `yaml:"on_screen"       json:"on_screen"`

	// HasAX records whether the accessibility view contributed to this
	// snapshot. When false the three AX flags are defaults and Visible
	// falls back to OnScreen.
	HasAX     bool `yaml:"has_ax"              json:"has_ax"`
	Minimized bool `yaml:"minimized,omitempty" json:"minimized,omitempty"`
	Hidden    bool `yaml:"hidden,omitempty"    json:"hidden,omitempty"`
	Focused   bool `yaml:"focused,omitempty"   json:"focused,omitempty"`

	Visible bool `yaml:"visible" json:"visible"`
}
