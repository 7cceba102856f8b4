package detect

import (
	"math"

	"github.com/deskpilot/deskpilot/internal/model"
)

// DefaultEpsilon is the sub-unit threshold for numeric element attributes.
// A delta strictly below it is jitter, not a change; exactly one unit counts
// as changed.
const DefaultEpsilon = 1.0

// ElementChangeKind is the kind of a detected element change.
type ElementChangeKind string

const (
	ElementAdded   ElementChangeKind = "element_added"
	ElementRemoved ElementChangeKind = "element_removed"
	ElementChanged ElementChangeKind = "element_changed"
)

// AttributeChange is one tracked attribute whose canonical string value
// differs between two reads of the same element.
type AttributeChange struct {
	Attribute string `yaml:"attribute" json:"attribute"`
	Old       string `yaml:"old" json:"old"`
	New       string `yaml:"new" json:"new"`
}

// ElementChange is one detected change between two element lists. Key is
// the element's identity key (structural path, or the synthesized fallback).
type ElementChange struct {
	Kind       ElementChangeKind `yaml:"kind" json:"kind"`
	Key        string            `yaml:"key" json:"key"`
	Role       string            `yaml:"role,omitempty" json:"role,omitempty"`
	Text       string            `yaml:"text,omitempty" json:"text,omitempty"`
	Attributes []AttributeChange `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// DiffElementAttributes compares the fixed tracked attribute set of one
// element across two reads: role, text, x, y, width, height, enabled,
// focused. Identity fields (handle id, path) are the matching key, never a
// value, and are deliberately absent here. Numeric attributes treat a delta
// strictly below epsilon as unchanged; epsilon <= 0 selects DefaultEpsilon.
// Values are rendered as canonical strings for the old/new pair.
func DiffElementAttributes(old, curr model.ElementSnapshot, epsilon float64) []AttributeChange {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	var out []AttributeChange
	add := func(attr, oldV, newV string) {
		out = append(out, AttributeChange{Attribute: attr, Old: oldV, New: newV})
	}

	if old.Role != curr.Role {
		add("role", old.Role, curr.Role)
	}
	if old.Text != curr.Text {
		add("text", old.Text, curr.Text)
	}
	numeric := []struct {
		name     string
		old, new float64
	}{
		{"x", old.X, curr.X},
		{"y", old.Y, curr.Y},
		{"width", old.Width, curr.Width},
		{"height", old.Height, curr.Height},
	}
	for _, n := range numeric {
		if numericChanged(n.old, n.new, epsilon) {
			add(n.name, model.CanonicalFloat(n.old), model.CanonicalFloat(n.new))
		}
	}
	if old.Enabled != curr.Enabled {
		add("enabled", model.CanonicalBool(old.Enabled), model.CanonicalBool(curr.Enabled))
	}
	if old.Focused != curr.Focused {
		add("focused", model.CanonicalBool(old.Focused), model.CanonicalBool(curr.Focused))
	}
	return out
}

// numericChanged applies the epsilon rule: delta < epsilon is not a change,
// so a delta of exactly epsilon counts as changed. Non-finite values compare
// by bit meaning: NaN against anything (including NaN) is a change only if
// the other side is finite or differently infinite.
func numericChanged(old, curr float64, epsilon float64) bool {
	if math.IsNaN(old) || math.IsNaN(curr) {
		return !(math.IsNaN(old) && math.IsNaN(curr))
	}
	if math.IsInf(old, 0) || math.IsInf(curr, 0) {
		return old != curr
	}
	return math.Abs(curr-old) >= epsilon
}

// DiffElements compares two element lists matched by identity key. Current
// elements are walked in order for added/changed, then previous ones for
// removed. When duplicate keys occur (identically positioned same-role
// elements with no path) the first occurrence wins, matching capture order.
func DiffElements(prev, curr []model.ElementSnapshot, epsilon float64) []ElementChange {
	prevByKey := make(map[string]model.ElementSnapshot, len(prev))
	for _, el := range prev {
		key := el.IdentityKey()
		if _, dup := prevByKey[key]; !dup {
			prevByKey[key] = el
		}
	}
	currByKey := make(map[string]model.ElementSnapshot, len(curr))
	for _, el := range curr {
		key := el.IdentityKey()
		if _, dup := currByKey[key]; !dup {
			currByKey[key] = el
		}
	}

	var changes []ElementChange
	seen := make(map[string]bool, len(curr))
	for _, el := range curr {
		key := el.IdentityKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		before, existed := prevByKey[key]
		if !existed {
			changes = append(changes, ElementChange{
				Kind: ElementAdded,
				Key:  key,
				Role: el.Role,
				Text: el.Text,
			})
			continue
		}
		if attrs := DiffElementAttributes(before, el, epsilon); len(attrs) > 0 {
			changes = append(changes, ElementChange{
				Kind:       ElementChanged,
				Key:        key,
				Role:       el.Role,
				Attributes: attrs,
			})
		}
	}
	reported := make(map[string]bool, len(prev))
	for _, el := range prev {
		key := el.IdentityKey()
		if reported[key] {
			continue
		}
		reported[key] = true
		if _, exists := currByKey[key]; !exists {
			changes = append(changes, ElementChange{
				Kind: ElementRemoved,
				Key:  key,
				Role: el.Role,
				Text: el.Text,
			})
		}
	}
	return changes
}
