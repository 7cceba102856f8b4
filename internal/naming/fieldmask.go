package naming

import "strings"

// Mask selects which fields of a rendered resource to return. The zero
// mask and the "*" path both mean "everything". The identifier field is
// always kept so callers can re-request the resource they were shown.
type Mask struct {
	all   bool
	paths map[string]bool
}

// NewMask builds a mask from explicit paths. No paths means full resource.
func NewMask(paths []string) Mask {
	m := Mask{paths: make(map[string]bool, len(paths))}
	seen := false
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		seen = true
		if p == "*" {
			m.all = true
			continue
		}
		m.paths[p] = true
	}
	if !seen {
		m.all = true
	}
	return m
}

// ParseMask builds a mask from a comma-separated path list, the form the
// serve layer receives masks in.
func ParseMask(s string) Mask {
	if strings.TrimSpace(s) == "" {
		return NewMask(nil)
	}
	return NewMask(strings.Split(s, ","))
}

// All reports whether the mask selects every field.
func (m Mask) All() bool { return m.all }

// Has reports whether the mask selects path.
func (m Mask) Has(path string) bool {
	return m.all || m.paths[path]
}

// Project filters a rendered resource down to the identifier field plus
// the masked paths. Mask paths that name no field are ignored.
func (m Mask) Project(resource map[string]any, idField string) map[string]any {
	if m.all {
		return resource
	}
	out := make(map[string]any, len(m.paths)+1)
	for k, v := range resource {
		if k == idField || m.paths[k] {
			out[k] = v
		}
	}
	return out
}
