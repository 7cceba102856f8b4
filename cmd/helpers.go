package cmd

import "strings"

// splitRoles parses a comma-separated role list, trimming whitespace and
// dropping empty entries.
func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
