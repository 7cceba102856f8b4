package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/sessions"
)

func (s *Server) handleCreateSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	var metadata map[string]string
	if raw := stringParam(params, "metadata", ""); raw != "" {
		if err := yaml.Unmarshal([]byte(raw), &metadata); err != nil {
			return toolError(errdefs.Validationf("metadata", "parse: %v", err)), nil
		}
	}
	sess, err := s.sessions.Create(sessions.CreateOptions{
		ID:          stringParam(params, "id", ""),
		DisplayName: stringParam(params, "display_name", ""),
		Isolation:   stringParam(params, "isolation", ""),
		Timeout:     time.Duration(intParam(params, "timeout_ms", 0)) * time.Millisecond,
		Metadata:    metadata,
	})
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(sess), nil
}

func (s *Server) handleGetSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseSession(name)
	if err != nil {
		return toolError(err), nil
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return toolError(err), nil
	}
	return maskedResult(sess, mask, "name"), nil
}

func (s *Server) handleListSessions(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	all := s.sessions.List()
	items := make([]any, 0, len(all))
	for _, sess := range all {
		items = append(items, sess)
	}
	page, next, err := naming.Page(items, intParam(params, "page_size", 0), stringParam(params, "page_token", ""))
	if err != nil {
		return toolError(err), nil
	}
	return maskedListResult(page, "sessions", next, mask, "name"), nil
}

func (s *Server) handleDeleteSession(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseSession(name)
	if err != nil {
		return toolError(err), nil
	}
	if err := s.sessions.Delete(id, boolParam(params, "force", false)); err != nil {
		return toolError(err), nil
	}
	return yamlResult(map[string]any{"name": name, "deleted": true}), nil
}

func (s *Server) handleGetSessionSnapshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseSession(name)
	if err != nil {
		return toolError(err), nil
	}
	snap, err := s.sessions.GetSnapshot(id)
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(snap), nil
}

func (s *Server) handleBeginTransaction(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "session", "")
	if name == "" {
		return toolError(errdefs.Validationf("session", "is required")), nil
	}
	id, err := naming.ParseSession(name)
	if err != nil {
		return toolError(err), nil
	}
	sess, err := s.sessions.BeginTransaction(id)
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(sess), nil
}

// closeTransaction backs commit_transaction and rollback_transaction; the
// session core treats both as "close the named transaction and return to
// active", with unwinding left to the action layer.
func (s *Server) closeTransaction(request mcp.CallToolRequest, commit bool) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "session", "")
	txID := stringParam(params, "transaction_id", "")
	if name == "" {
		return toolError(errdefs.Validationf("session", "is required")), nil
	}
	if txID == "" {
		return toolError(errdefs.Validationf("transaction_id", "is required")), nil
	}
	id, err := naming.ParseSession(name)
	if err != nil {
		return toolError(err), nil
	}
	var sess sessions.Session
	if commit {
		sess, err = s.sessions.CommitTransaction(id, txID)
	} else {
		sess, err = s.sessions.RollbackTransaction(id, txID)
	}
	if err != nil {
		return toolError(err), nil
	}
	return yamlResult(sess), nil
}

func (s *Server) handleCommitTransaction(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.closeTransaction(request, true)
}

func (s *Server) handleRollbackTransaction(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.closeTransaction(request, false)
}
