// Package naming implements the resource-name grammar, opaque page tokens,
// and field-mask projection that form deskpilot's stable external contract.
//
// Name patterns:
//
//	applications/{pid}
//	applications/{pid}/windows/{id}
//	applications/{pid}/observations/{id}
//	applications/{pid}/elements/{id}
//	sessions/{id}
//	macros/{id}
//	operations/{id}
//	displays/{id}
//
// A literal "-" in the application-scope position means "all applications"
// and is accepted only by ParseApplicationScope.
package naming

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deskpilot/deskpilot/internal/errdefs"
)

// Wildcard is the unscoped application segment.
const Wildcard = "-"

// Application formats applications/{pid}.
func Application(pid int) string {
	return fmt.Sprintf("applications/%d", pid)
}

// ParseApplication parses applications/{pid} with a concrete pid.
func ParseApplication(name string) (int, error) {
	segs, ok := splitExact(name, 2, "applications")
	if !ok {
		return 0, badName(name, "applications/{pid}")
	}
	pid, ok := intSegment(segs[1])
	if !ok {
		return 0, badName(name, "applications/{pid}")
	}
	return pid, nil
}

// ParseApplicationScope parses applications/{pid} where pid may be the
// wildcard "-". all is true (and pid zero) for the wildcard form.
func ParseApplicationScope(name string) (pid int, all bool, err error) {
	segs, ok := splitExact(name, 2, "applications")
	if !ok {
		return 0, false, badName(name, "applications/{pid} or applications/-")
	}
	if segs[1] == Wildcard {
		return 0, true, nil
	}
	pid, ok = intSegment(segs[1])
	if !ok {
		return 0, false, badName(name, "applications/{pid} or applications/-")
	}
	return pid, false, nil
}

// Window formats applications/{pid}/windows/{id}.
func Window(pid, windowID int) string {
	return fmt.Sprintf("applications/%d/windows/%d", pid, windowID)
}

// ParseWindow parses applications/{pid}/windows/{id}.
func ParseWindow(name string) (pid, windowID int, err error) {
	segs, ok := splitExact(name, 4, "applications")
	if !ok || segs[2] != "windows" {
		return 0, 0, badName(name, "applications/{pid}/windows/{id}")
	}
	pid, pidOK := intSegment(segs[1])
	id, idOK := intSegment(segs[3])
	if !pidOK || !idOK {
		return 0, 0, badName(name, "applications/{pid}/windows/{id}")
	}
	return pid, id, nil
}

// Observation formats applications/{pid}/observations/{id}.
func Observation(pid int, id string) string {
	return fmt.Sprintf("applications/%d/observations/%s", pid, id)
}

// ParseObservation parses applications/{pid}/observations/{id}.
func ParseObservation(name string) (pid int, id string, err error) {
	segs, ok := splitExact(name, 4, "applications")
	if !ok || segs[2] != "observations" || segs[3] == "" {
		return 0, "", badName(name, "applications/{pid}/observations/{id}")
	}
	pid, ok = intSegment(segs[1])
	if !ok {
		return 0, "", badName(name, "applications/{pid}/observations/{id}")
	}
	return pid, segs[3], nil
}

// Element formats applications/{pid}/elements/{id}.
func Element(pid int, id string) string {
	return fmt.Sprintf("applications/%d/elements/%s", pid, id)
}

// ParseElement parses applications/{pid}/elements/{id}.
func ParseElement(name string) (pid int, id string, err error) {
	segs, ok := splitExact(name, 4, "applications")
	if !ok || segs[2] != "elements" || segs[3] == "" {
		return 0, "", badName(name, "applications/{pid}/elements/{id}")
	}
	pid, ok = intSegment(segs[1])
	if !ok {
		return 0, "", badName(name, "applications/{pid}/elements/{id}")
	}
	return pid, segs[3], nil
}

// Session formats sessions/{id}.
func Session(id string) string { return "sessions/" + id }

// ParseSession parses sessions/{id}.
func ParseSession(name string) (string, error) {
	return parseFlat(name, "sessions")
}

// Macro formats macros/{id}.
func Macro(id string) string { return "macros/" + id }

// ParseMacro parses macros/{id}.
func ParseMacro(name string) (string, error) {
	return parseFlat(name, "macros")
}

// Operation formats operations/{id}.
func Operation(id string) string { return "operations/" + id }

// ParseOperation parses operations/{id}.
func ParseOperation(name string) (string, error) {
	return parseFlat(name, "operations")
}

// Display formats displays/{id}.
func Display(id int) string { return fmt.Sprintf("displays/%d", id) }

// ParseDisplay parses displays/{id}.
func ParseDisplay(name string) (int, error) {
	segs, ok := splitExact(name, 2, "displays")
	if !ok {
		return 0, badName(name, "displays/{id}")
	}
	id, ok := intSegment(segs[1])
	if !ok {
		return 0, badName(name, "displays/{id}")
	}
	return id, nil
}

func parseFlat(name, collection string) (string, error) {
	segs, ok := splitExact(name, 2, collection)
	if !ok || segs[1] == "" {
		return "", badName(name, collection+"/{id}")
	}
	return segs[1], nil
}

// splitExact splits name on "/" and checks segment count and collection
// prefix. Empty segments anywhere fail the count check downstream because
// callers validate each segment.
func splitExact(name string, want int, collection string) ([]string, bool) {
	segs := strings.Split(name, "/")
	if len(segs) != want || segs[0] != collection {
		return nil, false
	}
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}

// intSegment parses a digits-only non-negative integer segment. Signs,
// spaces, and leading "+" all fail: resource ids are canonical decimal.
func intSegment(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func badName(name, pattern string) error {
	return errdefs.Validationf("name", "%q does not match %s", name, pattern)
}
