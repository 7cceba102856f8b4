package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/observe"
)

const (
	defaultStreamEvents  = 10
	maxStreamEvents      = 500
	defaultStreamTimeout = 5 * time.Second
)

// streamResult is the stream_observation payload: the events collected in
// one bounded window plus whether the stream has closed for good.
type streamResult struct {
	Observation string          `yaml:"observation" json:"observation"`
	State       observe.State   `yaml:"state" json:"state"`
	Events      []observe.Event `yaml:"events" json:"events"`
	Closed      bool            `yaml:"closed" json:"closed"`
}

func (s *Server) handleCreateObservation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	obs, err := s.observations.Create(observe.CreateOptions{
		ID:   stringParam(params, "id", ""),
		PID:  intParam(params, "pid", 0),
		Type: observe.Type(stringParam(params, "type", "")),
		Filter: observe.Filter{
			PollInterval: time.Duration(intParam(params, "poll_interval_ms", 0)) * time.Millisecond,
			VisibleOnly:  boolParam(params, "visible_only", false),
			Roles:        csvParam(params, "roles"),
			Attributes:   csvParam(params, "attributes"),
		},
	})
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(obs), nil
}

func (s *Server) handleGetObservation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	obs, err := s.observations.Get(name)
	if err != nil {
		return toolError(err), nil
	}
	return maskedResult(obs, mask, "name"), nil
}

func (s *Server) handleListObservations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	parent := stringParam(params, "parent", "applications/-")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	pid, all, err := naming.ParseApplicationScope(parent)
	if err != nil {
		return toolError(err), nil
	}
	obs, next, err := s.observations.List(pid, all,
		intParam(params, "page_size", 0), stringParam(params, "page_token", ""))
	if err != nil {
		return toolError(err), nil
	}
	items := make([]any, 0, len(obs))
	for _, o := range obs {
		items = append(items, o)
	}
	return maskedListResult(items, "observations", next, mask, "name"), nil
}

func (s *Server) handleCancelObservation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	obs, err := s.observations.Cancel(name)
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(obs), nil
}

// handleStreamObservation starts the observation if needed and collects
// events until max_events arrive, the timeout lapses, the stream closes, or
// the client goes away. The observation keeps running between calls, so an
// agent can drain it in repeated bounded reads; pollers are parented to the
// server's task context, not the request.
func (s *Server) handleStreamObservation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	maxEvents := intParam(params, "max_events", defaultStreamEvents)
	if maxEvents <= 0 {
		maxEvents = defaultStreamEvents
	} else if maxEvents > maxStreamEvents {
		maxEvents = maxStreamEvents
	}
	timeout := time.Duration(intParam(params, "timeout_ms", 0)) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}

	obs, events, err := s.observations.Start(s.taskCtx, name)
	if err != nil {
		return toolError(err), nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	collected := make([]observe.Event, 0, maxEvents)
	closed := false
collect:
	for len(collected) < maxEvents {
		select {
		case ev, ok := <-events:
			if !ok {
				closed = true
				break collect
			}
			collected = append(collected, ev)
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	state := obs.State
	if current, err := s.observations.Get(name); err == nil {
		state = current.State
	}
	return yamlResult(streamResult{
		Observation: name,
		State:       state,
		Events:      collected,
		Closed:      closed,
	}), nil
}
