// Package selector defines the small boolean predicate language used to
// describe UI elements, with validation, normalization, and matching.
//
// A selector carries at most one predicate: a role, a text-contains query,
// a text regex, a position probe, an attribute map, or a compound node
// combining child selectors with AND/OR/NOT. The empty selector matches
// everything.
package selector

import (
	"regexp"
	"strings"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

// Compound operators.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// Position probes for an element whose center lies within tolerance units
// of (X, Y) on both axes.
type Position struct {
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// Compound combines child selectors under a boolean operator.
type Compound struct {
	Op       string     `json:"op" yaml:"op"`
	Children []Selector `json:"children" yaml:"children"`
}

// Selector is one predicate over an element. At most one field may be set;
// the zero Selector matches any element.
type Selector struct {
	Role         string            `json:"role,omitempty" yaml:"role,omitempty"`
	TextContains string            `json:"text_contains,omitempty" yaml:"text_contains,omitempty"`
	TextRegex    string            `json:"text_regex,omitempty" yaml:"text_regex,omitempty"`
	Position     *Position         `json:"position,omitempty" yaml:"position,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Compound     *Compound         `json:"compound,omitempty" yaml:"compound,omitempty"`
}

// IsEmpty reports whether no predicate is set.
func (s Selector) IsEmpty() bool {
	return s.Role == "" && s.TextContains == "" && s.TextRegex == "" &&
		s.Position == nil && len(s.Attributes) == 0 && s.Compound == nil
}

// Validate checks the selector tree, surfacing the first failure found.
// Compound children are validated depth-first in order.
func Validate(s Selector) error {
	if err := checkOneKind(s); err != nil {
		return err
	}
	switch {
	case s.Role != "":
		if strings.TrimSpace(s.Role) == "" {
			return errdefs.Validationf("selector.role", "must be non-empty")
		}
	case s.TextContains != "":
		if strings.TrimSpace(s.TextContains) == "" {
			return errdefs.Validationf("selector.text_contains", "must be non-empty")
		}
	case s.TextRegex != "":
		if _, err := regexp.Compile(s.TextRegex); err != nil {
			return errdefs.Validationf("selector.text_regex", "invalid pattern %q: %v", s.TextRegex, err)
		}
	case s.Position != nil:
		if s.Position.Tolerance < 0 {
			return errdefs.Validationf("selector.position.tolerance", "must be >= 0, got %g", s.Position.Tolerance)
		}
	case s.Attributes != nil:
		if len(s.Attributes) == 0 {
			return errdefs.Validationf("selector.attributes", "must contain at least one key")
		}
	case s.Compound != nil:
		return validateCompound(s.Compound)
	}
	return nil
}

func validateCompound(c *Compound) error {
	op := strings.ToUpper(strings.TrimSpace(c.Op))
	switch op {
	case OpAnd, OpOr:
		if len(c.Children) == 0 {
			return errdefs.Validationf("selector.compound", "%s requires at least one child", op)
		}
	case OpNot:
		if len(c.Children) != 1 {
			return errdefs.Validationf("selector.compound", "NOT requires exactly one child, got %d", len(c.Children))
		}
	default:
		return errdefs.Validationf("selector.compound", "unknown operator %q", c.Op)
	}
	for _, child := range c.Children {
		if err := Validate(child); err != nil {
			return err
		}
	}
	return nil
}

// checkOneKind rejects selectors that set more than one predicate, since
// the wire form cannot express which one was meant.
func checkOneKind(s Selector) error {
	n := 0
	if s.Role != "" {
		n++
	}
	if s.TextContains != "" {
		n++
	}
	if s.TextRegex != "" {
		n++
	}
	if s.Position != nil {
		n++
	}
	if s.Attributes != nil {
		n++
	}
	if s.Compound != nil {
		n++
	}
	if n > 1 {
		return errdefs.Validationf("selector", "at most one predicate may be set, got %d", n)
	}
	return nil
}

// Normalize returns a copy with compound operators upcased and surrounding
// whitespace stripped from scalar predicates, recursively.
func Normalize(s Selector) Selector {
	out := s
	out.Role = strings.TrimSpace(s.Role)
	out.TextContains = strings.TrimSpace(s.TextContains)
	if s.Compound != nil {
		c := &Compound{Op: strings.ToUpper(strings.TrimSpace(s.Compound.Op))}
		c.Children = make([]Selector, len(s.Compound.Children))
		for i, child := range s.Compound.Children {
			c.Children[i] = Normalize(child)
		}
		out.Compound = c
	}
	return out
}
