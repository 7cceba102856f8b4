package selector

import (
	"errors"
	"strings"
	"testing"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

func TestValidate_EmptyMatchesAnything(t *testing.T) {
	if err := Validate(Selector{}); err != nil {
		t.Fatalf("empty selector should be valid, got %v", err)
	}
}

func TestValidate_NotRequiresExactlyOneChild(t *testing.T) {
	cases := []struct {
		desc     string
		children []Selector
	}{
		{"zero children", nil},
		{"two children", []Selector{{Role: "button"}, {Role: "link"}}},
	}
	for _, tc := range cases {
		s := Selector{Compound: &Compound{Op: OpNot, Children: tc.children}}
		err := Validate(s)
		if !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("%s: error = %v, want validation error", tc.desc, err)
			continue
		}
		msg := err.Error()
		if !strings.Contains(msg, "NOT") || !strings.Contains(msg, "exactly one") {
			t.Errorf("%s: message %q should name NOT and exactly one", tc.desc, msg)
		}
	}
}

func TestValidate_NotWithOneChildPasses(t *testing.T) {
	s := Selector{Compound: &Compound{Op: OpNot, Children: []Selector{{Role: "button"}}}}
	if err := Validate(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AndOrRequireChildren(t *testing.T) {
	for _, op := range []string{OpAnd, OpOr} {
		s := Selector{Compound: &Compound{Op: op}}
		if err := Validate(s); !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("%s with no children: error = %v, want validation error", op, err)
		}
	}
}

func TestValidate_Regex(t *testing.T) {
	if err := Validate(Selector{TextRegex: `^Save( As)?$`}); err != nil {
		t.Fatalf("valid regex rejected: %v", err)
	}

	err := Validate(Selector{TextRegex: `[unclosed`})
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("invalid regex error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "[unclosed") {
		t.Errorf("message %q should contain the offending pattern", err.Error())
	}
}

func TestValidate_PositionTolerance(t *testing.T) {
	if err := Validate(Selector{Position: &Position{X: 10, Y: 20, Tolerance: 0}}); err != nil {
		t.Fatalf("zero tolerance rejected: %v", err)
	}
	err := Validate(Selector{Position: &Position{X: 10, Y: 20, Tolerance: -1}})
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("negative tolerance error = %v, want validation error", err)
	}
}

func TestValidate_EmptyAttributes(t *testing.T) {
	err := Validate(Selector{Attributes: map[string]string{}})
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("empty attributes error = %v, want validation error", err)
	}
}

func TestValidate_MultiplePredicatesRejected(t *testing.T) {
	err := Validate(Selector{Role: "button", TextContains: "Save"})
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestValidate_SurfacesFirstNestedFailure(t *testing.T) {
	s := Selector{Compound: &Compound{Op: OpAnd, Children: []Selector{
		{Role: "button"},
		{TextRegex: `(bad`},
		{Compound: &Compound{Op: OpNot}},
	}}}
	err := Validate(s)
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "(bad") {
		t.Errorf("message %q should surface the first nested failure", err.Error())
	}
}

func TestValidate_UnknownOperator(t *testing.T) {
	err := Validate(Selector{Compound: &Compound{Op: "XOR", Children: []Selector{{Role: "button"}}}})
	if !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestNormalize_UpcasesOperators(t *testing.T) {
	s := Normalize(Selector{Compound: &Compound{
		Op:       "and",
		Children: []Selector{{Compound: &Compound{Op: " not ", Children: []Selector{{Role: " button "}}}}},
	}})
	if s.Compound.Op != OpAnd {
		t.Errorf("outer op = %q", s.Compound.Op)
	}
	inner := s.Compound.Children[0].Compound
	if inner.Op != OpNot {
		t.Errorf("inner op = %q", inner.Op)
	}
	if inner.Children[0].Role != "button" {
		t.Errorf("role = %q", inner.Children[0].Role)
	}
}
