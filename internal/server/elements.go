package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deskpilot/deskpilot/internal/elements"
	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/selector"
)

// elementResource is one element snapshot on the wire. Name and Touched are
// set only for registered handles; Key is always the identity key the diff
// engine matches on.
type elementResource struct {
	Name                  string    `yaml:"name,omitempty" json:"name,omitempty"`
	Key                   string    `yaml:"key" json:"key"`
	Touched               time.Time `yaml:"touched,omitempty" json:"touched,omitempty"`
	model.ElementSnapshot `yaml:",inline"`
}

// selectorVerdict is the validate_selector result. Validation failure is a
// successful verdict, not a tool error.
type selectorVerdict struct {
	Valid      bool               `yaml:"valid" json:"valid"`
	Error      string             `yaml:"error,omitempty" json:"error,omitempty"`
	Normalized *selector.Selector `yaml:"normalized,omitempty" json:"normalized,omitempty"`
}

// readScope builds the capture options shared by find_elements and
// register_element.
func readScope(params map[string]any, pid int) platform.ElementReadOptions {
	return platform.ElementReadOptions{
		PID:         pid,
		VisibleOnly: boolParam(params, "visible_only", false),
		Roles:       csvParam(params, "roles"),
		Attributes:  csvParam(params, "attributes"),
	}
}

// matchElements captures the element tree for parent and filters it through
// the selector argument. An empty selector matches everything.
func (s *Server) matchElements(params map[string]any) (int, []model.ElementSnapshot, error) {
	parent := stringParam(params, "parent", "")
	if parent == "" {
		return 0, nil, errdefs.Validationf("parent", "is required")
	}
	pid, err := naming.ParseApplication(parent)
	if err != nil {
		return 0, nil, err
	}
	sel, err := parseSelector(stringParam(params, "selector", ""))
	if err != nil {
		return 0, nil, err
	}
	if err := selector.Validate(sel); err != nil {
		return 0, nil, err
	}
	snaps, err := s.source.ReadElements(readScope(params, pid))
	if err != nil {
		return 0, nil, err
	}
	matched, err := selector.Filter(selector.Normalize(sel), snaps)
	if err != nil {
		return 0, nil, err
	}
	return pid, matched, nil
}

func (s *Server) handleFindElements(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	pageSize := intParam(params, "page_size", 0)
	pageToken := stringParam(params, "page_token", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	if s.source.elements == nil {
		return mcp.NewToolResultError("element capture not available on this platform"), nil
	}
	_, matched, err := s.matchElements(params)
	if err != nil {
		return toolError(err), nil
	}

	resources := make([]any, 0, len(matched))
	for _, el := range matched {
		resources = append(resources, elementResource{Key: el.IdentityKey(), ElementSnapshot: el})
	}
	page, next, err := naming.Page(resources, pageSize, pageToken)
	if err != nil {
		return toolError(err), nil
	}
	return maskedListResult(page, "elements", next, mask, "key"), nil
}

func (s *Server) handleRegisterElement(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	if s.source.elements == nil {
		return mcp.NewToolResultError("element capture not available on this platform"), nil
	}
	pid, matched, err := s.matchElements(params)
	if err != nil {
		return toolError(err), nil
	}
	if len(matched) == 0 {
		return toolError(errdefs.NotFound(fmt.Sprintf("element matching selector in applications/%d", pid))), nil
	}

	// First match wins; agents narrow the selector when that is ambiguous.
	el := matched[0]
	now := s.clock.Now()
	id := s.cache.Register(el, nil, pid)
	return yamlResult(elementResource{
		Name:            naming.Element(pid, id),
		Key:             el.IdentityKey(),
		Touched:         now,
		ElementSnapshot: el,
	}), nil
}

func (s *Server) handleGetElement(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	pid, id, err := naming.ParseElement(name)
	if err != nil {
		return toolError(err), nil
	}
	handle, ok := s.cache.Get(id)
	if !ok || handle.PID != pid {
		return toolError(errdefs.NotFound(name)), nil
	}
	return maskedResult(elementResource{
		Name:            name,
		Key:             handle.Snapshot.IdentityKey(),
		Touched:         handle.Touched,
		ElementSnapshot: handle.Snapshot,
	}, mask, "name"), nil
}

func (s *Server) handleReleaseElement(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	pid, id, err := naming.ParseElement(name)
	if err != nil {
		return toolError(err), nil
	}
	if handle, ok := s.cache.Get(id); ok && handle.PID == pid {
		s.cache.Remove(id)
	}
	return yamlResult(map[string]any{"name": name, "released": true}), nil
}

func (s *Server) handleReleaseElements(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	parent := stringParam(params, "parent", "")
	if parent == "" {
		return toolError(errdefs.Validationf("parent", "is required")), nil
	}
	pid, err := naming.ParseApplication(parent)
	if err != nil {
		return toolError(err), nil
	}
	released := s.cache.Clear(pid)
	return yamlResult(map[string]any{"parent": parent, "released": released}), nil
}

func (s *Server) handleCacheStats(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type cacheStats struct {
		elements.Stats `yaml:",inline"`
		TTL            time.Duration `yaml:"ttl" json:"ttl"`
		SweepInterval  time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	}
	return yamlResult(cacheStats{
		Stats:         s.cache.Stats(),
		TTL:           s.cache.TTL(),
		SweepInterval: s.cfg.SweepInterval(),
	}), nil
}

func (s *Server) handleValidateSelector(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	raw := stringParam(params, "selector", "")
	if strings.TrimSpace(raw) == "" {
		return toolError(errdefs.Validationf("selector", "is required")), nil
	}
	sel, err := parseSelector(raw)
	if err != nil {
		return yamlResult(selectorVerdict{Valid: false, Error: err.Error()}), nil
	}
	if err := selector.Validate(sel); err != nil {
		return yamlResult(selectorVerdict{Valid: false, Error: err.Error()}), nil
	}
	norm := selector.Normalize(sel)
	return yamlResult(selectorVerdict{Valid: true, Normalized: &norm}), nil
}
