package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/output"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/reconcile"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List windows merged from both capture views",
	Long: `List open windows as canonical merged snapshots: existence, stacking
order, bounds, and the on-screen flag from the window enumeration, plus
minimized, hidden, and focused from the accessibility view when available.
Windows appear in stacking order, frontmost first.`,
	RunE: runWindows,
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().Int("pid", 0, "Filter windows by PID (0 = all applications)")
	windowsCmd.Flags().Bool("apps", false, "Aggregate to one entry per application")
}

// appEntry is the output row for --apps mode.
type appEntry struct {
	Name    string `yaml:"name"    json:"name"`
	PID     int    `yaml:"pid"     json:"pid"`
	Windows int    `yaml:"windows" json:"windows"`
}

func runWindows(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	if provider.Windows == nil {
		return fmt.Errorf("window capture not available on this platform")
	}

	pid, _ := cmd.Flags().GetInt("pid")
	apps, _ := cmd.Flags().GetBool("apps")

	snapshots, err := reconcile.New(provider.Windows, provider.Attributes).Snapshot(pid)
	if err != nil {
		return err
	}

	if apps {
		counts := make(map[int]int)
		for _, w := range snapshots {
			counts[w.PID]++
		}
		entries := make([]appEntry, 0, len(counts))
		for pid, n := range counts {
			entries = append(entries, appEntry{Name: naming.Application(pid), PID: pid, Windows: n})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].PID < entries[j].PID })
		return output.Print(entries)
	}

	return output.Print(output.WindowsResult{
		PID:     pid,
		TS:      time.Now().Unix(),
		Windows: snapshots,
	})
}
