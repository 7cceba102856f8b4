package naming

import (
	"errors"
	"testing"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

func TestParseApplication_RoundTrip(t *testing.T) {
	name := Application(1234)
	if name != "applications/1234" {
		t.Fatalf("Application(1234) = %q", name)
	}
	pid, err := ParseApplication(name)
	if err != nil {
		t.Fatalf("ParseApplication(%q) error: %v", name, err)
	}
	if pid != 1234 {
		t.Errorf("pid = %d, want 1234", pid)
	}
}

func TestParseApplication_Rejects(t *testing.T) {
	bad := []string{
		"",
		"applications",
		"applications/",
		"applications/abc",
		"applications/-12",
		"applications/+12",
		"applications/12/windows",
		"apps/12",
		"applications/12/",
		"/applications/12",
	}
	for _, name := range bad {
		if _, err := ParseApplication(name); !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("ParseApplication(%q) error = %v, want validation error", name, err)
		}
	}
}

func TestParseApplicationScope_Wildcard(t *testing.T) {
	pid, all, err := ParseApplicationScope("applications/-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !all || pid != 0 {
		t.Errorf("got pid=%d all=%v, want pid=0 all=true", pid, all)
	}

	pid, all, err = ParseApplicationScope("applications/77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if all || pid != 77 {
		t.Errorf("got pid=%d all=%v, want pid=77 all=false", pid, all)
	}

	if _, _, err := ParseApplicationScope("applications/--"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("double dash accepted: %v", err)
	}
}

func TestParseWindow(t *testing.T) {
	name := Window(500, 42)
	pid, id, err := ParseWindow(name)
	if err != nil {
		t.Fatalf("ParseWindow(%q) error: %v", name, err)
	}
	if pid != 500 || id != 42 {
		t.Errorf("got pid=%d id=%d, want 500/42", pid, id)
	}

	bad := []string{
		"applications/500/windows",
		"applications/500/windows/",
		"applications/500/window/42",
		"applications/-/windows/42",
		"applications/500/windows/42/extra",
		"windows/42",
	}
	for _, n := range bad {
		if _, _, err := ParseWindow(n); !errors.Is(err, errdefs.ErrValidation) {
			t.Errorf("ParseWindow(%q) error = %v, want validation error", n, err)
		}
	}
}

func TestParseObservation(t *testing.T) {
	name := Observation(9, "obs-abc123")
	pid, id, err := ParseObservation(name)
	if err != nil {
		t.Fatalf("ParseObservation(%q) error: %v", name, err)
	}
	if pid != 9 || id != "obs-abc123" {
		t.Errorf("got pid=%d id=%q", pid, id)
	}
	if _, _, err := ParseObservation("applications/9/observations/"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("empty id accepted: %v", err)
	}
}

func TestParseElement(t *testing.T) {
	pid, id, err := ParseElement(Element(3, "el-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pid != 3 || id != "el-1" {
		t.Errorf("got pid=%d id=%q", pid, id)
	}
}

func TestFlatNames(t *testing.T) {
	cases := []struct {
		format func(string) string
		parse  func(string) (string, error)
		id     string
		want   string
	}{
		{Session, ParseSession, "s1", "sessions/s1"},
		{Macro, ParseMacro, "m1", "macros/m1"},
		{Operation, ParseOperation, "op1", "operations/op1"},
	}
	for _, tc := range cases {
		name := tc.format(tc.id)
		if name != tc.want {
			t.Errorf("format = %q, want %q", name, tc.want)
		}
		id, err := tc.parse(tc.want)
		if err != nil {
			t.Errorf("parse(%q) error: %v", tc.want, err)
			continue
		}
		if id != tc.id {
			t.Errorf("parse(%q) = %q, want %q", tc.want, id, tc.id)
		}
	}

	if _, err := ParseSession("macros/s1"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("cross-collection parse accepted: %v", err)
	}
	if _, err := ParseOperation("operations/a/b"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("extra segment accepted: %v", err)
	}
}

func TestParseDisplay(t *testing.T) {
	id, err := ParseDisplay(Display(69732928))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 69732928 {
		t.Errorf("id = %d", id)
	}
	if _, err := ParseDisplay("displays/main"); !errors.Is(err, errdefs.ErrValidation) {
		t.Errorf("non-numeric display accepted: %v", err)
	}
}
