package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ElementSnapshot is the attribute snapshot of one UI element at a point in
// time. Path locates the element in the accessibility tree as ordered sibling
// indices; it is the matching key across reads, never a diffable value.
type ElementSnapshot struct {
	Role    string  `yaml:"role"              json:"role"`
	Text    string  `yaml:"text,omitempty"    json:"text,omitempty"`
	X       float64 `yaml:"x"                 json:"x"`
	Y       float64 `yaml:"y"                 json:"y"`
	Width   float64 `yaml:"width"             json:"width"`
	Height  float64 `yaml:"height"            json:"height"`
	Enabled bool    `yaml:"enabled"           json:"enabled"`
	Focused bool    `yaml:"focused,omitempty" json:"focused,omitempty"`

	// Path is the ordered sibling-index chain from the root. Empty for
	// elements captured without tree context (e.g. hit-test results).
	Path []int `yaml:"path,omitempty" json:"path,omitempty"`

	// Attributes carries additional accessibility attributes beyond the
	// tracked set, keyed by attribute name.
	Attributes map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`

	PID int `yaml:"pid,omitempty" json:"pid,omitempty"`
}

// IdentityKey returns the stable matching key for this element. The
// structural path wins when present ("0/2/5"); otherwise a positional key is
// synthesized from role and coordinates. Non-finite coordinates are
// normalized to 0 so the fallback key never varies between reads of the same
// element.
func (e ElementSnapshot) IdentityKey() string {
	if len(e.Path) > 0 {
		parts := make([]string, len(e.Path))
		for i, idx := range e.Path {
			parts[i] = strconv.Itoa(idx)
		}
		return strings.Join(parts, "/")
	}
	x := finiteOrZero(e.X)
	y := finiteOrZero(e.Y)
	w := finiteOrZero(e.Width)
	h := finiteOrZero(e.Height)
	if w != 0 || h != 0 {
		return fmt.Sprintf("root:%s@%g,%g,%g,%g", e.Role, x, y, w, h)
	}
	return fmt.Sprintf("root:%s@%g,%g", e.Role, x, y)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// CanonicalBool renders a boolean attribute value for event payloads.
func CanonicalBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// CanonicalFloat renders a numeric attribute value for event payloads.
// Integral values print without a fractional part ("42", not "42.0").
func CanonicalFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
