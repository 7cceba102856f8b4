package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/deskpilot/deskpilot/internal/output"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/selector"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search one process's element tree with a selector",
	Long: `Capture the accessibility element tree of one process and print the
elements matching a selector expression.

A selector is a YAML mapping with exactly one predicate (role, text_contains,
position, or a compound and/or/not), for example:

  deskpilot find --pid 1234 --selector 'role: button'
  deskpilot find --pid 1234 --selector '{and: [{role: button}, {text_contains: Save}]}'`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().Int("pid", 0, "Target process (required)")
	findCmd.Flags().String("selector", "", "Selector expression (YAML); empty matches everything")
	findCmd.Flags().String("roles", "", "Comma-separated roles to capture (narrows the read, not the match)")
	findCmd.Flags().Bool("visible-only", false, "Skip off-screen elements")
	findCmd.Flags().Int("limit", 0, "Max matching elements to print (0 = all)")
}

func runFind(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	selectorStr, _ := cmd.Flags().GetString("selector")
	rolesStr, _ := cmd.Flags().GetString("roles")
	visibleOnly, _ := cmd.Flags().GetBool("visible-only")
	limit, _ := cmd.Flags().GetInt("limit")

	if pid <= 0 {
		return fmt.Errorf("--pid is required")
	}
	var sel selector.Selector
	if err := yaml.Unmarshal([]byte(selectorStr), &sel); err != nil {
		return fmt.Errorf("parse selector: %w", err)
	}
	if err := selector.Validate(sel); err != nil {
		return err
	}

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	if provider.Elements == nil {
		return fmt.Errorf("element capture not available on this platform")
	}

	snaps, err := provider.Elements.ReadElements(platform.ElementReadOptions{
		PID:         pid,
		VisibleOnly: visibleOnly,
		Roles:       splitRoles(rolesStr),
	})
	if err != nil {
		return err
	}
	matched, err := selector.Filter(selector.Normalize(sel), snaps)
	if err != nil {
		return err
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return output.Print(output.ElementsResult{
		PID:      pid,
		TS:       time.Now().Unix(),
		Elements: matched,
	})
}
