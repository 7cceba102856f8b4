package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/macros"
	"github.com/deskpilot/deskpilot/internal/naming"
)

// persistMacros flushes the registry after a mutation. The in-memory change
// already happened; a failed flush surfaces to the caller so it knows disk
// is behind memory.
func (s *Server) persistMacros() error {
	if err := s.macros.Save(); err != nil {
		return fmt.Errorf("persist macro store: %w", err)
	}
	return nil
}

func (s *Server) handleCreateMacro(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()

	opts := macros.CreateOptions{
		ID:          stringParam(params, "id", ""),
		DisplayName: stringParam(params, "display_name", ""),
		Description: stringParam(params, "description", ""),
	}
	if v, ok := params["actions"]; ok {
		if err := decodeParam(v, &opts.Actions); err != nil {
			return toolError(errdefs.Validationf("actions", "parse: %v", err)), nil
		}
	}
	if v, ok := params["parameters"]; ok {
		if err := decodeParam(v, &opts.Parameters); err != nil {
			return toolError(errdefs.Validationf("parameters", "parse: %v", err)), nil
		}
	}
	if v, ok := params["tags"]; ok {
		if err := decodeParam(v, &opts.Tags); err != nil {
			return toolError(errdefs.Validationf("tags", "parse: %v", err)), nil
		}
	}

	m, err := s.macros.Create(opts)
	if err != nil {
		return toolError(err), nil
	}
	if err := s.persistMacros(); err != nil {
		return toolError(err), nil
	}
	return yamlResult(m), nil
}

func (s *Server) handleGetMacro(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseMacro(name)
	if err != nil {
		return toolError(err), nil
	}
	m, err := s.macros.Get(id)
	if err != nil {
		return toolError(err), nil
	}
	return maskedResult(m, mask, "name"), nil
}

func (s *Server) handleListMacros(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	all := s.macros.List()
	items := make([]any, 0, len(all))
	for _, m := range all {
		items = append(items, m)
	}
	page, next, err := naming.Page(items, intParam(params, "page_size", 0), stringParam(params, "page_token", ""))
	if err != nil {
		return toolError(err), nil
	}
	return maskedListResult(page, "macros", next, mask, "name"), nil
}

func (s *Server) handleUpdateMacro(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseMacro(name)
	if err != nil {
		return toolError(err), nil
	}

	// Absent arguments leave their fields untouched; present ones replace
	// them wholesale.
	var opts macros.UpdateOptions
	if v, ok := params["display_name"]; ok {
		dn := asString(v)
		opts.DisplayName = &dn
	}
	if v, ok := params["description"]; ok {
		desc := asString(v)
		opts.Description = &desc
	}
	if v, ok := params["actions"]; ok {
		var actions []macros.Action
		if err := decodeParam(v, &actions); err != nil {
			return toolError(errdefs.Validationf("actions", "parse: %v", err)), nil
		}
		opts.Actions = &actions
	}
	if v, ok := params["parameters"]; ok {
		var parameters []macros.Parameter
		if err := decodeParam(v, &parameters); err != nil {
			return toolError(errdefs.Validationf("parameters", "parse: %v", err)), nil
		}
		opts.Parameters = &parameters
	}
	if v, ok := params["tags"]; ok {
		var tags []string
		if err := decodeParam(v, &tags); err != nil {
			return toolError(errdefs.Validationf("tags", "parse: %v", err)), nil
		}
		opts.Tags = &tags
	}

	m, err := s.macros.Update(id, opts)
	if err != nil {
		return toolError(err), nil
	}
	if err := s.persistMacros(); err != nil {
		return toolError(err), nil
	}
	return yamlResult(m), nil
}

func (s *Server) handleDeleteMacro(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	id, err := naming.ParseMacro(name)
	if err != nil {
		return toolError(err), nil
	}
	if err := s.macros.Delete(id); err != nil {
		return toolError(err), nil
	}
	if err := s.persistMacros(); err != nil {
		return toolError(err), nil
	}
	return yamlResult(map[string]any{"name": name, "deleted": true}), nil
}

// handleRecordMacroExecution accounts one execution of a macro as a
// long-running operation: the response carries the pending operation, and
// get_operation reports the updated macro once the bump and flush land.
func (s *Server) handleRecordMacroExecution(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "macro", "")
	if name == "" {
		return toolError(errdefs.Validationf("macro", "is required")), nil
	}
	id, err := naming.ParseMacro(name)
	if err != nil {
		return toolError(err), nil
	}
	if _, err := s.macros.Get(id); err != nil {
		return toolError(err), nil
	}

	opName := naming.Operation(s.ids.NewID())
	op, err := s.operations.Create(opName, map[string]string{"macro": name})
	if err != nil {
		return toolError(err), nil
	}
	go s.runMacroExecution(opName, id)
	return yamlResult(op), nil
}

func (s *Server) runMacroExecution(opName, macroID string) {
	m, err := s.macros.RecordExecution(macroID)
	if err != nil {
		s.operations.Fail(opName, err.Error())
		return
	}
	if err := s.macros.Save(); err != nil {
		s.logger.Warn("persist macro store", "operation", opName, "error", err)
	}
	s.operations.Finish(opName, m)
}

func (s *Server) handleGetOperation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := stringParam(params, "name", "")
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))
	if name == "" {
		return toolError(errdefs.Validationf("name", "is required")), nil
	}
	if _, err := naming.ParseOperation(name); err != nil {
		return toolError(err), nil
	}
	op, ok := s.operations.Get(name)
	if !ok {
		return toolError(errdefs.NotFound(name)), nil
	}
	return maskedResult(op, mask, "name"), nil
}

func (s *Server) handleListOperations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	mask := naming.ParseMask(stringParam(params, "read_mask", ""))

	all := s.operations.List()
	items := make([]any, 0, len(all))
	for _, op := range all {
		items = append(items, op)
	}
	page, next, err := naming.Page(items, intParam(params, "page_size", 0), stringParam(params, "page_token", ""))
	if err != nil {
		return toolError(err), nil
	}
	return maskedListResult(page, "operations", next, mask, "name"), nil
}
