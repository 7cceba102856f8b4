package server

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/naming"
)

// windowResource is one canonical window on the wire: the merged snapshot
// plus its resource name.
type windowResource struct {
	Name                 string `yaml:"name" json:"name"`
	model.WindowSnapshot `yaml:",inline"`
}

func (s *Server) handleListWindows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	parent := stringParam(params, "parent", "applications/-")
	pageSize := intParam(params, "page_size", 0)
	pageToken := stringParam(params, "page_token", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	if s.source.reconciler == nil {
		return mcp.NewToolResultError("window capture not available on this platform"), nil
	}
	pid, all, err := naming.ParseApplicationScope(parent)
	if err != nil {
		return toolError(err), nil
	}
	if all {
		pid = 0
	}

	snaps, err := s.source.Snapshot(pid)
	if err != nil {
		return toolError(err), nil
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].PID != snaps[j].PID {
			return snaps[i].PID < snaps[j].PID
		}
		return snaps[i].WindowID < snaps[j].WindowID
	})

	resources := make([]any, 0, len(snaps))
	for _, w := range snaps {
		resources = append(resources, windowResource{Name: naming.Window(w.PID, w.WindowID), WindowSnapshot: w})
	}
	page, next, err := naming.Page(resources, pageSize, pageToken)
	if err != nil {
		return toolError(err), nil
	}
	return maskedListResult(page, "windows", next, mask, "name"), nil
}

func (s *Server) handleGetWindow(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	if s.source.reconciler == nil {
		return mcp.NewToolResultError("window capture not available on this platform"), nil
	}
	pid, windowID, err := naming.ParseWindow(name)
	if err != nil {
		return toolError(err), nil
	}
	snap, err := s.source.Window(pid, windowID)
	if err != nil {
		return toolError(err), nil
	}
	return maskedResult(windowResource{Name: name, WindowSnapshot: snap}, mask, "name"), nil
}
