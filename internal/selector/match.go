package selector

import (
	"math"
	"regexp"
	"strings"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/model"
)

// Matches evaluates a selector against one element snapshot. Invalid
// selectors surface a validation error; callers that already ran Validate
// will never see one. Text comparison is case-insensitive, and roles
// compare with the "AX" prefix stripped so "button" matches "AXButton".
func Matches(s Selector, el model.ElementSnapshot) (bool, error) {
	switch {
	case s.IsEmpty():
		return true, nil
	case s.Role != "":
		return normalizeRole(s.Role) == normalizeRole(el.Role), nil
	case s.TextContains != "":
		return strings.Contains(strings.ToLower(el.Text), strings.ToLower(s.TextContains)), nil
	case s.TextRegex != "":
		re, err := regexp.Compile(s.TextRegex)
		if err != nil {
			return false, errdefs.Validationf("selector.text_regex", "invalid pattern %q: %v", s.TextRegex, err)
		}
		return re.MatchString(el.Text), nil
	case s.Position != nil:
		if s.Position.Tolerance < 0 {
			return false, errdefs.Validationf("selector.position.tolerance", "must be >= 0, got %g", s.Position.Tolerance)
		}
		cx := el.X + el.Width/2
		cy := el.Y + el.Height/2
		return math.Abs(cx-s.Position.X) <= s.Position.Tolerance &&
			math.Abs(cy-s.Position.Y) <= s.Position.Tolerance, nil
	case len(s.Attributes) > 0:
		for k, v := range s.Attributes {
			if el.Attributes[k] != v {
				return false, nil
			}
		}
		return true, nil
	case s.Compound != nil:
		return matchCompound(s.Compound, el)
	}
	return false, errdefs.Validationf("selector", "unrecognized predicate")
}

func matchCompound(c *Compound, el model.ElementSnapshot) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(c.Op)) {
	case OpAnd:
		for _, child := range c.Children {
			ok, err := Matches(child, el)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OpOr:
		for _, child := range c.Children {
			ok, err := Matches(child, el)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case OpNot:
		if len(c.Children) != 1 {
			return false, errdefs.Validationf("selector.compound", "NOT requires exactly one child, got %d", len(c.Children))
		}
		ok, err := Matches(c.Children[0], el)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return false, errdefs.Validationf("selector.compound", "unknown operator %q", c.Op)
}

// normalizeRole lowercases and strips the accessibility "AX" prefix so
// callers can write roles in either form.
func normalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if strings.HasPrefix(role, "AX") {
		role = role[2:]
	}
	return strings.ToLower(role)
}

// Filter returns the elements matching the selector, preserving order.
func Filter(s Selector, els []model.ElementSnapshot) ([]model.ElementSnapshot, error) {
	if s.IsEmpty() {
		return els, nil
	}
	var out []model.ElementSnapshot
	for _, el := range els {
		ok, err := Matches(s, el)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, el)
		}
	}
	return out, nil
}
