package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/detect"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/observe"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/reconcile"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch for desktop changes and stream events as JSONL",
	Long: `Create an observation, start its polling task, and emit each detected
change as one JSON line on stdout. No output is emitted while the desktop is
stable, which is far more token-efficient than repeated full snapshots.

Window-level types (window_changes, application_changes) watch the whole
desktop unless --pid is set. Element-level types (element_changes,
attribute_changes, tree_changes) require --pid.

Output is always JSONL regardless of the --format flag.

Use Ctrl+C or --duration to stop observing.`,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	observeCmd.Flags().Int("pid", 0, "Scope to one process (required for element-level types)")
	observeCmd.Flags().String("type", "window_changes", "Observation type: window_changes, element_changes, application_changes, attribute_changes, tree_changes")
	observeCmd.Flags().Int("interval", 0, "Polling interval in milliseconds (0 = configured default)")
	observeCmd.Flags().Int("duration", 0, "Max seconds to observe (0 = until Ctrl+C)")
	observeCmd.Flags().String("roles", "", "Comma-separated roles to include (element-level types)")
	observeCmd.Flags().Bool("visible-only", false, "Skip off-screen elements (element-level types)")
}

func runObserve(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	typeStr, _ := cmd.Flags().GetString("type")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	durationSec, _ := cmd.Flags().GetInt("duration")
	rolesStr, _ := cmd.Flags().GetString("roles")
	visibleOnly, _ := cmd.Flags().GetBool("visible-only")

	typ, err := observe.ParseType(typeStr)
	if err != nil {
		return err
	}
	roles := splitRoles(rolesStr)

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}

	cfg := config.Load()
	clock := platform.SystemClock{}
	source := observe.Source{Elements: provider.Elements}
	if provider.Windows != nil {
		source.Windows = reconcile.New(provider.Windows, provider.Attributes)
	}
	mgr := observe.NewManager(observe.Options{
		Clock:           clock,
		Logger:          logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "observe"}),
		Source:          source,
		Breaker:         detect.NewBreaker(clock, cfg.BreakerThreshold, cfg.BreakerWindow()),
		Epsilon:         cfg.DiffEpsilon,
		DefaultInterval: cfg.PollInterval(),
		MinInterval:     cfg.PollFloor(),
	})

	obs, err := mgr.Create(observe.CreateOptions{
		PID:  pid,
		Type: typ,
		Filter: observe.Filter{
			PollInterval: time.Duration(intervalMs) * time.Millisecond,
			VisibleOnly:  visibleOnly,
			Roles:        roles,
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if durationSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(durationSec)*time.Second)
		defer cancel()
	}

	obs, events, err := mgr.Start(ctx, obs.Name)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	start := time.Now()

	enc.Encode(map[string]interface{}{
		"type":        "start",
		"ts":          start.Unix(),
		"observation": obs.Name,
		"interval":    obs.Filter.PollInterval.String(),
	})

	eventCount := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				// The poller closed the stream: the observation went terminal.
				break loop
			}
			enc.Encode(ev)
			eventCount++
		}
	}

	mgr.Cancel(obs.Name)
	if final, err := mgr.Get(obs.Name); err == nil && final.State == observe.StateFailed {
		enc.Encode(map[string]interface{}{
			"type":  "error",
			"ts":    time.Now().Unix(),
			"error": final.Error,
		})
	}

	elapsed := time.Since(start)
	enc.Encode(map[string]interface{}{
		"type":    "done",
		"ts":      time.Now().Unix(),
		"elapsed": fmt.Sprintf("%.1fs", elapsed.Seconds()),
		"events":  eventCount,
	})

	return nil
}
