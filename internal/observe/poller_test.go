package observe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/internal/detect"
	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/platform"
)

const (
	pollEvery   = 10 * time.Millisecond
	waitTimeout = 5 * time.Second
)

// newPollingManager builds a manager on the real clock with a breaker wide
// enough to never trip, for tests that exercise live polling.
func newPollingManager(src Source) *Manager {
	return NewManager(Options{
		Clock:       platform.SystemClock{},
		IDs:         platform.NewSequenceIDs("obs"),
		Source:      src,
		Breaker:     detect.NewBreaker(platform.SystemClock{}, 100000, time.Hour),
		MinInterval: time.Millisecond,
	})
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("stream closed while waiting for an event")
		}
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for an event")
	}
	return Event{}
}

// collectQuiet drains events until the stream stays silent for quiet (or
// closes, or the overall deadline passes).
func collectQuiet(t *testing.T, ch <-chan Event, quiet time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(quiet):
			return out
		case <-deadline:
			return out
		}
	}
}

func (f *fakeWindows) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polled
}

func (f *fakeElements) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polled
}

func testWindow(id, pid int, title string, x float64) model.WindowSnapshot {
	return model.WindowSnapshot{
		WindowID: id,
		PID:      pid,
		Title:    title,
		Bounds:   model.Bounds{X: x, Y: 0, Width: 400, Height: 300},
		OnScreen: true,
		Visible:  true,
	}
}

func TestPoller_StreamsWindowChanges(t *testing.T) {
	src := &fakeWindows{}
	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 0)})
	m := newPollingManager(Source{Windows: src})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 50)})
	ev := waitEvent(t, events)
	if ev.Window == nil || ev.Window.Kind != detect.WindowMoved || ev.Window.WindowID != 1 {
		t.Fatalf("event = %+v, want moved window 1", ev)
	}
	if ev.Sequence != 1 {
		t.Errorf("sequence = %d, want 1", ev.Sequence)
	}
	if ev.Observation != created.Name {
		t.Errorf("observation = %q", ev.Observation)
	}

	src.set(nil)
	ev = waitEvent(t, events)
	if ev.Window == nil || ev.Window.Kind != detect.WindowDestroyed {
		t.Fatalf("event = %+v, want destroyed", ev)
	}
	if ev.Sequence != 2 {
		t.Errorf("sequence = %d, want strictly increasing", ev.Sequence)
	}
}

func TestPoller_StreamClosesOnCancel(t *testing.T) {
	src := &fakeWindows{}
	m := newPollingManager(Source{Windows: src})
	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})

	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Cancel(created.Name); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitClosed(t, events, waitTimeout)
}

func TestPoller_AttributeChangesSkipMembership(t *testing.T) {
	base := model.ElementSnapshot{Role: "AXButton", Text: "OK", Path: []int{0, 1}, X: 10, Y: 10, Width: 50, Height: 20, Enabled: true}
	src := &fakeElements{}
	src.set([]model.ElementSnapshot{base})
	m := newPollingManager(Source{Elements: src})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeAttributeChanges, Filter: Filter{PollInterval: pollEvery, VisibleOnly: true}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	// Text changes; X moves by half a unit (below epsilon, not a change);
	// a brand-new element appears but membership is out of scope here.
	changed := base
	changed.Text = "Done"
	changed.X = 10.5
	newcomer := model.ElementSnapshot{Role: "AXCheckBox", Path: []int{0, 2}, X: 80, Y: 10, Width: 20, Height: 20}
	src.set([]model.ElementSnapshot{changed, newcomer})

	ev := waitEvent(t, events)
	if ev.Element == nil {
		t.Fatalf("event = %+v, want element payload", ev)
	}
	if ev.Element.Kind != detect.ElementChanged || ev.Element.Attribute != "text" {
		t.Fatalf("element = %+v, want text change", ev.Element)
	}
	if ev.Element.Old != "OK" || ev.Element.New != "Done" {
		t.Errorf("old/new = %q/%q", ev.Element.Old, ev.Element.New)
	}
	if ev.Element.Key != "0/1" {
		t.Errorf("key = %q, want path key", ev.Element.Key)
	}

	if rest := collectQuiet(t, events, 150*time.Millisecond); len(rest) != 0 {
		t.Errorf("attribute observation leaked %d extra events: %+v", len(rest), rest)
	}

	opts := src.readOpts()
	if !opts.VisibleOnly || opts.PID != 7 {
		t.Errorf("read options = %+v, want filter passed through", opts)
	}
}

func TestPoller_ElementChangesSeeMembershipOnly(t *testing.T) {
	base := model.ElementSnapshot{Role: "AXButton", Text: "OK", Path: []int{0}, X: 10, Y: 10, Width: 50, Height: 20}
	src := &fakeElements{}
	src.set([]model.ElementSnapshot{base})
	m := newPollingManager(Source{Elements: src})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeElementChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	changed := base
	changed.Text = "Ignored"
	added := model.ElementSnapshot{Role: "AXTextField", Path: []int{1}, X: 10, Y: 40, Width: 200, Height: 24}
	src.set([]model.ElementSnapshot{changed, added})

	ev := waitEvent(t, events)
	if ev.Element == nil || ev.Element.Kind != detect.ElementAdded || ev.Element.Key != "1" {
		t.Fatalf("event = %+v, want added element 1", ev)
	}

	src.set([]model.ElementSnapshot{changed})
	ev = waitEvent(t, events)
	if ev.Element == nil || ev.Element.Kind != detect.ElementRemoved || ev.Element.Key != "1" {
		t.Fatalf("event = %+v, want removed element 1", ev)
	}
}

func TestPoller_TreeChangesSeeEverything(t *testing.T) {
	base := model.ElementSnapshot{Role: "AXButton", Text: "OK", Path: []int{0}, X: 10, Y: 10, Width: 50, Height: 20}
	src := &fakeElements{}
	src.set([]model.ElementSnapshot{base})
	m := newPollingManager(Source{Elements: src})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeTreeChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	changed := base
	changed.Text = "Done"
	added := model.ElementSnapshot{Role: "AXTextField", Path: []int{1}, X: 10, Y: 40, Width: 200, Height: 24}
	src.set([]model.ElementSnapshot{changed, added})

	first := waitEvent(t, events)
	second := waitEvent(t, events)
	if first.Element == nil || first.Element.Kind != detect.ElementChanged || first.Element.Attribute != "text" {
		t.Errorf("first = %+v, want text change", first.Element)
	}
	if second.Element == nil || second.Element.Kind != detect.ElementAdded || second.Element.Key != "1" {
		t.Errorf("second = %+v, want added", second.Element)
	}
	if second.Sequence != first.Sequence+1 {
		t.Errorf("sequences %d then %d, want consecutive", first.Sequence, second.Sequence)
	}
}

func TestPoller_TargetGoneFailsObservation(t *testing.T) {
	src := &fakeWindows{}
	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 0)})
	m := newPollingManager(Source{Windows: src})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	src.setErr(errdefs.NotFound("applications/7"))
	waitFor(t, func() bool {
		obs, err := m.Get(created.Name)
		return err == nil && obs.State == StateFailed
	}, "observation never failed after target vanished")

	obs, _ := m.Get(created.Name)
	if !strings.HasPrefix(obs.Error, "poll target exited") {
		t.Errorf("error = %q", obs.Error)
	}
	if obs.EndTime.IsZero() {
		t.Error("failed observation has no end time")
	}
	waitClosed(t, events, waitTimeout)
}

func TestPoller_MissingSourceFailsFast(t *testing.T) {
	m := newPollingManager(Source{})
	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})

	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool {
		obs, err := m.Get(created.Name)
		return err == nil && obs.State == StateFailed
	}, "observation never failed without a source")
	waitClosed(t, events, waitTimeout)
}

func TestPoller_BreakerSuppressesBurst(t *testing.T) {
	src := &fakeWindows{}
	src.set(nil)
	m := NewManager(Options{
		Clock:       platform.SystemClock{},
		IDs:         platform.NewSequenceIDs("obs"),
		Source:      Source{Windows: src},
		Breaker:     detect.NewBreaker(platform.SystemClock{}, 2, time.Hour),
		MinInterval: time.Millisecond,
	})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	// Five windows appear in one tick; the breaker admits two per window.
	burst := make([]model.WindowSnapshot, 0, 5)
	for i := 1; i <= 5; i++ {
		burst = append(burst, testWindow(i, 7, "W", 0))
	}
	src.set(burst)

	got := collectQuiet(t, events, 200*time.Millisecond)
	if len(got) != 2 {
		t.Fatalf("delivered %d events through a threshold-2 breaker, want 2: %+v", len(got), got)
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Errorf("sequences = %d, %d, want 1, 2", got[0].Sequence, got[1].Sequence)
	}
}

func TestPoller_SelfActivationSuppresses(t *testing.T) {
	src := &fakeWindows{}
	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 0)})
	selfAct := detect.NewSelfActivation(platform.SystemClock{}, time.Hour)
	m := NewManager(Options{
		Clock:          platform.SystemClock{},
		IDs:            platform.NewSequenceIDs("obs"),
		Source:         Source{Windows: src},
		Breaker:        detect.NewBreaker(platform.SystemClock{}, 100000, time.Hour),
		SelfActivation: selfAct,
		MinInterval:    time.Millisecond,
	})

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	// Changes caused by our own injected input are swallowed while marked.
	selfAct.Mark(7)
	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 60)})
	if got := collectQuiet(t, events, 150*time.Millisecond); len(got) != 0 {
		t.Fatalf("self-triggered change leaked %d events: %+v", len(got), got)
	}

	selfAct.Reset()
	src.set([]model.WindowSnapshot{testWindow(1, 7, "One", 120)})
	ev := waitEvent(t, events)
	if ev.Window == nil || ev.Window.Kind != detect.WindowMoved {
		t.Fatalf("event after reset = %+v, want moved", ev)
	}
}

func TestPoller_ApplicationLevelWatchesWholeDesktop(t *testing.T) {
	src := &fakeWindows{}
	src.set([]model.WindowSnapshot{testWindow(10, 1, "Editor", 0)})
	m := newPollingManager(Source{Windows: src})

	created, _ := m.Create(CreateOptions{PID: 0, Type: TypeApplicationChanges, Filter: Filter{PollInterval: pollEvery}})
	_, events, err := m.Start(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.Cancel(created.Name)
	waitFor(t, func() bool { return src.calls() >= 1 }, "poller never took its baseline")

	if src.scope() > 0 {
		t.Errorf("application observation polled pid %d, want unscoped", src.scope())
	}

	src.set([]model.WindowSnapshot{
		testWindow(10, 1, "Editor", 0),
		testWindow(20, 2, "Terminal", 0),
	})
	ev := waitEvent(t, events)
	if ev.Window == nil || ev.Window.Kind != detect.WindowCreated || ev.Window.PID != 2 {
		t.Fatalf("event = %+v, want created for pid 2", ev)
	}

	src.set([]model.WindowSnapshot{testWindow(20, 2, "Terminal", 0)})
	ev = waitEvent(t, events)
	if ev.Window == nil || ev.Window.Kind != detect.WindowDestroyed || ev.Window.PID != 1 {
		t.Fatalf("event = %+v, want destroyed for pid 1", ev)
	}
}

func TestCaptureFailurePolicy(t *testing.T) {
	m := newTestManager(Options{})
	log := logging.Discard()

	created, _ := m.Create(CreateOptions{PID: 7, Type: TypeWindowChanges})
	failures := 0
	flaky := errors.New("capture glitch")
	if m.captureFailed(created.Name, flaky, &failures, "window snapshot", log) {
		t.Fatal("first transient failure should not stop the poller")
	}
	if m.captureFailed(created.Name, flaky, &failures, "window snapshot", log) {
		t.Fatal("second transient failure should not stop the poller")
	}
	if !m.captureFailed(created.Name, flaky, &failures, "window snapshot", log) {
		t.Fatal("third consecutive failure should stop the poller")
	}
	obs, _ := m.Get(created.Name)
	if obs.State != StateFailed {
		t.Errorf("state = %q, want failed", obs.State)
	}

	// Not-found stops on the first hit with the exited reason.
	other, _ := m.Create(CreateOptions{PID: 9, Type: TypeWindowChanges})
	failures = 0
	if !m.captureFailed(other.Name, errdefs.NotFound("applications/9"), &failures, "window snapshot", log) {
		t.Fatal("not-found capture should stop immediately")
	}
	obs, _ = m.Get(other.Name)
	if obs.State != StateFailed || !strings.HasPrefix(obs.Error, "poll target exited") {
		t.Errorf("obs = %+v", obs)
	}
}

func TestApplicationChanges_PidSetDiff(t *testing.T) {
	prev := []model.WindowSnapshot{
		testWindow(10, 1, "A", 0),
		testWindow(11, 1, "A2", 0),
		testWindow(20, 2, "B", 0),
	}
	curr := []model.WindowSnapshot{
		testWindow(11, 1, "A2", 0),
		testWindow(30, 3, "C", 0),
	}

	changes := applicationChanges(prev, curr)
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want 2", changes)
	}
	if changes[0].Kind != detect.WindowCreated || changes[0].PID != 3 || changes[0].WindowID != 30 {
		t.Errorf("changes[0] = %+v, want created pid 3", changes[0])
	}
	if changes[1].Kind != detect.WindowDestroyed || changes[1].PID != 2 || changes[1].WindowID != 20 {
		t.Errorf("changes[1] = %+v, want destroyed pid 2", changes[1])
	}
}
