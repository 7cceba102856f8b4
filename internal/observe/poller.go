package observe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deskpilot/deskpilot/internal/detect"
	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// maxConsecutiveFailures is how many transient capture errors in a row a
// poller tolerates before failing its observation. A not-found capture
// fails immediately: the poll target is gone, not flaky.
const maxConsecutiveFailures = 3

// poll runs as the single background task of one active observation. It
// owns the event channel: nothing else sends on it, and it closes the
// channel on exit so stream consumers always unblock.
func (m *Manager) poll(ctx context.Context, obs Observation, events chan<- Event) {
	defer close(events)
	log := m.logger.With("observation", obs.Name, "observation_type", string(obs.Type))

	switch obs.Type {
	case TypeWindowChanges:
		m.pollWindows(ctx, obs, events, obs.PID, false, log)
	case TypeApplicationChanges:
		m.pollWindows(ctx, obs, events, 0, true, log)
	default:
		m.pollElements(ctx, obs, events, log)
	}
}

// captureFailed applies the shared failure policy to one capture error and
// reports whether the poller must stop. Stopping always fails the
// observation first, so the stream close that follows is explained.
func (m *Manager) captureFailed(name string, err error, failures *int, what string, log *slog.Logger) bool {
	if errors.Is(err, errdefs.ErrNotFound) {
		log.Warn("poll target gone", "error", err)
		m.Fail(name, "poll target exited: "+err.Error())
		return true
	}
	*failures++
	log.Warn(what+" failed", "error", err, "consecutive", *failures)
	if *failures >= maxConsecutiveFailures {
		m.Fail(name, err.Error())
		return true
	}
	return false
}

// pollWindows drives window_changes and application_changes observations.
// appLevel reduces the diff to process granularity: one created event when
// a pid gains its first window, one destroyed when it loses its last.
func (m *Manager) pollWindows(ctx context.Context, obs Observation, events chan<- Event, pid int, appLevel bool, log *slog.Logger) {
	if m.source.Windows == nil {
		m.Fail(obs.Name, "no window source configured")
		return
	}

	failures := 0
	capture := func() ([]model.WindowSnapshot, bool, bool) {
		snap, err := m.source.Windows.Snapshot(pid)
		if err != nil {
			return nil, false, m.captureFailed(obs.Name, err, &failures, "window snapshot", log)
		}
		failures = 0
		return snap, true, false
	}

	// Take the baseline before the first tick so the first diff compares
	// against start-time state instead of reporting everything as created.
	prev, havePrev, stop := capture()
	if stop {
		return
	}

	ticker := time.NewTicker(obs.Filter.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			curr, ok, stop := capture()
			if stop {
				return
			}
			if !ok {
				continue
			}
			if !havePrev {
				prev, havePrev = curr, true
				continue
			}
			var changes []detect.WindowChange
			if appLevel {
				changes = applicationChanges(prev, curr)
			} else {
				changes = detect.DiffWindows(prev, curr)
			}
			for _, change := range changes {
				if !m.emitWindow(obs.Name, change, events, log) {
					return
				}
			}
			prev = curr
		}
	}
}

// pollElements drives element_changes, attribute_changes, and tree_changes
// observations over the accessibility element tree.
func (m *Manager) pollElements(ctx context.Context, obs Observation, events chan<- Event, log *slog.Logger) {
	if m.source.Elements == nil {
		m.Fail(obs.Name, "no element source configured")
		return
	}
	readOpts := platform.ElementReadOptions{
		PID:         obs.PID,
		VisibleOnly: obs.Filter.VisibleOnly,
		Roles:       obs.Filter.Roles,
		Attributes:  obs.Filter.Attributes,
	}

	failures := 0
	capture := func() ([]model.ElementSnapshot, bool, bool) {
		snap, err := m.source.Elements.ReadElements(readOpts)
		if err != nil {
			return nil, false, m.captureFailed(obs.Name, err, &failures, "element read", log)
		}
		failures = 0
		return snap, true, false
	}

	prev, havePrev, stop := capture()
	if stop {
		return
	}

	ticker := time.NewTicker(obs.Filter.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			curr, ok, stop := capture()
			if stop {
				return
			}
			if !ok {
				continue
			}
			if !havePrev {
				prev, havePrev = curr, true
				continue
			}
			for _, change := range detect.DiffElements(prev, curr, m.epsilon) {
				if !m.emitElement(obs, change, events, log) {
					return
				}
			}
			prev = curr
		}
	}
}

// emitWindow pushes one window change through the suppression gates onto
// the stream. The false return means the observation record vanished and
// the poller should stop.
func (m *Manager) emitWindow(name string, change detect.WindowChange, events chan<- Event, log *slog.Logger) bool {
	if m.selfAct != nil && m.selfAct.IsSelfTriggered(change.PID) {
		log.Debug("suppressing self-triggered change", "pid", change.PID, "kind", string(change.Kind))
		return true
	}
	if !m.breaker.Allow(change.PID) {
		log.Debug("breaker suppressed change", "pid", change.PID, "kind", string(change.Kind))
		return true
	}
	seq := m.nextSeq(name)
	if seq == 0 {
		return false
	}
	m.send(events, Event{
		Observation: name,
		Time:        m.clock.Now(),
		Sequence:    seq,
		Window:      &change,
	}, log)
	return true
}

// emitElement fans one element change out as events: membership changes as
// a single event, attribute changes as one event per changed attribute.
// The observation type picks which of the two families pass.
func (m *Manager) emitElement(obs Observation, change detect.ElementChange, events chan<- Event, log *slog.Logger) bool {
	membership := change.Kind == detect.ElementAdded || change.Kind == detect.ElementRemoved
	switch obs.Type {
	case TypeElementChanges:
		if !membership {
			return true
		}
	case TypeAttributeChanges:
		if membership {
			return true
		}
	}

	if m.selfAct != nil && m.selfAct.IsSelfTriggered(obs.PID) {
		log.Debug("suppressing self-triggered change", "pid", obs.PID, "key", change.Key)
		return true
	}
	if !m.breaker.Allow(obs.PID) {
		log.Debug("breaker suppressed change", "pid", obs.PID, "key", change.Key)
		return true
	}

	if membership {
		seq := m.nextSeq(obs.Name)
		if seq == 0 {
			return false
		}
		m.send(events, Event{
			Observation: obs.Name,
			Time:        m.clock.Now(),
			Sequence:    seq,
			Element:     &ElementEvent{Key: change.Key, Kind: change.Kind, Role: change.Role},
		}, log)
		return true
	}
	for _, attr := range change.Attributes {
		seq := m.nextSeq(obs.Name)
		if seq == 0 {
			return false
		}
		m.send(events, Event{
			Observation: obs.Name,
			Time:        m.clock.Now(),
			Sequence:    seq,
			Element: &ElementEvent{
				Key:       change.Key,
				Kind:      change.Kind,
				Role:      change.Role,
				Attribute: attr.Attribute,
				Old:       attr.Old,
				New:       attr.New,
			},
		}, log)
	}
	return true
}

// send delivers without ever stalling the poller: a full stream buffer
// drops the event. Streams are live feeds, not durable logs.
func (m *Manager) send(events chan<- Event, ev Event, log *slog.Logger) {
	select {
	case events <- ev:
	default:
		log.Warn("stream buffer full, dropping event", "sequence", ev.Sequence)
	}
}

// applicationChanges reduces two whole-desktop window snapshots to process
// arrivals and departures. The window id reported is the first window seen
// for that pid in the respective snapshot.
func applicationChanges(prev, curr []model.WindowSnapshot) []detect.WindowChange {
	prevPIDs := make(map[int]bool, len(prev))
	for _, w := range prev {
		prevPIDs[w.PID] = true
	}
	currPIDs := make(map[int]bool, len(curr))
	for _, w := range curr {
		currPIDs[w.PID] = true
	}

	var out []detect.WindowChange
	seen := make(map[int]bool)
	for _, w := range curr {
		if seen[w.PID] {
			continue
		}
		seen[w.PID] = true
		if !prevPIDs[w.PID] {
			out = append(out, detect.WindowChange{Kind: detect.WindowCreated, WindowID: w.WindowID, PID: w.PID})
		}
	}
	seen = make(map[int]bool)
	for _, w := range prev {
		if seen[w.PID] {
			continue
		}
		seen[w.PID] = true
		if !currPIDs[w.PID] {
			out = append(out, detect.WindowChange{Kind: detect.WindowDestroyed, WindowID: w.WindowID, PID: w.PID})
		}
	}
	return out
}
