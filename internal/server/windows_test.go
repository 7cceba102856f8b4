package server

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/platform"
)

type windowList struct {
	Windows []struct {
		Name     string `yaml:"name"`
		ID       int    `yaml:"id"`
		PID      int    `yaml:"pid"`
		Title    string `yaml:"title"`
		Focused  bool   `yaml:"focused"`
		Visible  bool   `yaml:"visible"`
		HasAX    bool   `yaml:"has_ax"`
		OnScreen bool   `yaml:"on_screen"`
	} `yaml:"windows"`
	NextPageToken string `yaml:"next_page_token"`
}

func TestListWindows_MergesAndSorts(t *testing.T) {
	f := newTestServer(t, testConfig())
	f.lister.set(
		model.StructuralWindow{WindowID: 2, PID: 9, Title: "Notes", OnScreen: true},
		model.StructuralWindow{WindowID: 7, PID: 4, Title: "Editor", OnScreen: true},
		model.StructuralWindow{WindowID: 1, PID: 9, Title: "Prefs", OnScreen: true},
	)
	f.attrs.set(7, model.WindowAttributes{Focused: true})

	res, err := f.srv.handleListWindows(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	var got windowList
	decodeResult(t, res, &got)

	if len(got.Windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(got.Windows))
	}
	wantNames := []string{"applications/4/windows/7", "applications/9/windows/1", "applications/9/windows/2"}
	for i, w := range got.Windows {
		if w.Name != wantNames[i] {
			t.Fatalf("windows[%d].name = %q, want %q", i, w.Name, wantNames[i])
		}
		if !w.HasAX {
			t.Fatalf("windows[%d] missing accessibility merge", i)
		}
	}
	if !got.Windows[0].Focused {
		t.Fatal("focused attribute did not merge into applications/4/windows/7")
	}
	if got.Windows[1].Focused {
		t.Fatal("focus leaked onto an unfocused window")
	}
	if got.NextPageToken != "" {
		t.Fatalf("next_page_token = %q, want empty", got.NextPageToken)
	}
}

func TestListWindows_ScopeFiltersByApplication(t *testing.T) {
	f := newTestServer(t, testConfig())
	f.lister.set(
		model.StructuralWindow{WindowID: 1, PID: 4, OnScreen: true},
		model.StructuralWindow{WindowID: 2, PID: 9, OnScreen: true},
	)

	res, err := f.srv.handleListWindows(context.Background(), callReq(map[string]any{"parent": "applications/4"}))
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	var got windowList
	decodeResult(t, res, &got)
	if len(got.Windows) != 1 || got.Windows[0].PID != 4 {
		t.Fatalf("windows = %+v, want only pid 4", got.Windows)
	}
}

func TestListWindows_DropsWindowClosedBetweenPolls(t *testing.T) {
	f := newTestServer(t, testConfig())
	f.lister.set(
		model.StructuralWindow{WindowID: 1, PID: 4, OnScreen: true},
		model.StructuralWindow{WindowID: 2, PID: 4, OnScreen: true},
	)
	f.attrs.gone = map[int]bool{2: true}

	res, err := f.srv.handleListWindows(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	var got windowList
	decodeResult(t, res, &got)
	if len(got.Windows) != 1 || got.Windows[0].ID != 1 {
		t.Fatalf("windows = %+v, want only window 1", got.Windows)
	}
}

func TestListWindows_Paginates(t *testing.T) {
	f := newTestServer(t, testConfig())
	f.lister.set(
		model.StructuralWindow{WindowID: 1, PID: 4, OnScreen: true},
		model.StructuralWindow{WindowID: 2, PID: 4, OnScreen: true},
		model.StructuralWindow{WindowID: 3, PID: 4, OnScreen: true},
	)

	res, err := f.srv.handleListWindows(context.Background(), callReq(map[string]any{"page_size": float64(2)}))
	if err != nil {
		t.Fatalf("list_windows page 1: %v", err)
	}
	var first windowList
	decodeResult(t, res, &first)
	if len(first.Windows) != 2 || first.NextPageToken == "" {
		t.Fatalf("page 1 = %d windows, token %q", len(first.Windows), first.NextPageToken)
	}

	res, err = f.srv.handleListWindows(context.Background(), callReq(map[string]any{
		"page_size":  float64(2),
		"page_token": first.NextPageToken,
	}))
	if err != nil {
		t.Fatalf("list_windows page 2: %v", err)
	}
	var second windowList
	decodeResult(t, res, &second)
	if len(second.Windows) != 1 || second.NextPageToken != "" {
		t.Fatalf("page 2 = %d windows, token %q", len(second.Windows), second.NextPageToken)
	}
	if second.Windows[0].ID != 3 {
		t.Fatalf("page 2 window = %d, want 3", second.Windows[0].ID)
	}
}

func TestListWindows_RejectsForeignPageToken(t *testing.T) {
	f := newTestServer(t, testConfig())
	res, err := f.srv.handleListWindows(context.Background(), callReq(map[string]any{"page_token": "not-a-token"}))
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	wantToolError(t, res, "invalid_argument: ")
}

func TestGetWindow_ProjectsReadMask(t *testing.T) {
	f := newTestServer(t, testConfig())
	f.lister.set(model.StructuralWindow{WindowID: 7, PID: 4, Title: "Editor", OnScreen: true})

	res, err := f.srv.handleGetWindow(context.Background(), callReq(map[string]any{
		"name":      "applications/4/windows/7",
		"read_mask": "title",
	}))
	if err != nil {
		t.Fatalf("get_window: %v", err)
	}
	var got map[string]any
	decodeResult(t, res, &got)
	if got["name"] != "applications/4/windows/7" || got["title"] != "Editor" {
		t.Fatalf("projection = %v", got)
	}
	if _, ok := got["bounds"]; ok {
		t.Fatalf("read_mask leaked unrequested fields: %v", got)
	}
}

func TestGetWindow_UnknownWindowIsNotFound(t *testing.T) {
	f := newTestServer(t, testConfig())
	res, err := f.srv.handleGetWindow(context.Background(), callReq(map[string]any{"name": "applications/4/windows/99"}))
	if err != nil {
		t.Fatalf("get_window: %v", err)
	}
	wantToolError(t, res, "not_found: ")
	if text := resultText(t, res); !strings.Contains(text, "applications/4/windows/99") {
		t.Fatalf("error %q does not name the window", text)
	}
}

func TestListWindows_WithoutWindowCapture(t *testing.T) {
	srv, err := New(Options{
		Config: testConfig(),
		Clock:  platform.NewFakeClock(time.Unix(7000, 0)),
		Blobs:  platform.NewMemoryBlobStore(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	res, err := srv.handleListWindows(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "not available") {
		t.Fatalf("result = %q, want capture-unavailable error", resultText(t, res))
	}
}
