package server

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/deskpilot/deskpilot/internal/errdefs"
	"github.com/deskpilot/deskpilot/internal/naming"
	"github.com/deskpilot/deskpilot/internal/selector"
)

// Parameter extraction helpers for tool argument maps.

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	// Numeric arguments arrive as float64 from JSON decoding.
	return fmt.Sprintf("%v", v)
}

func stringParam(params map[string]any, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		return asString(v)
	}
	return defaultVal
}

func intParam(params map[string]any, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}

func boolParam(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// csvParam splits a comma-separated argument into trimmed entries, dropping
// empties. An absent or blank argument yields nil.
func csvParam(params map[string]any, key string) []string {
	raw := stringParam(params, key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeParam re-encodes a structured argument (already decoded from the
// request JSON) into dst, so array-of-object arguments share the stores'
// field names without a parallel wire schema.
func decodeParam(v any, dst any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, dst)
}

// parseSelector decodes a selector argument. YAML is a superset of JSON, so
// agents can send either form.
func parseSelector(raw string) (selector.Selector, error) {
	var sel selector.Selector
	if err := yaml.Unmarshal([]byte(raw), &sel); err != nil {
		return selector.Selector{}, errdefs.Validationf("selector", "parse: %v", err)
	}
	return sel, nil
}

// Result rendering. Tool results are YAML text; errors carry a category
// prefix so agents can branch without parsing prose.

func yamlResult(v any) *mcp.CallToolResult {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errdefs.IsNotFound(err):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errdefs.IsValidation(err):
		return mcp.NewToolResultError("invalid_argument: " + err.Error())
	case errdefs.IsCorrupted(err):
		return mcp.NewToolResultError("data_loss: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

// maskedResult projects v down to the fields a read_mask selects before
// rendering. The identifier field always survives projection, so callers
// can re-request whatever they were shown.
func maskedResult(v any, mask naming.Mask, idField string) *mcp.CallToolResult {
	if mask.All() {
		return yamlResult(v)
	}
	m, err := resourceMap(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return yamlResult(mask.Project(m, idField))
}

// maskedListResult is maskedResult over a slice, wrapped with the paging
// token under the given collection key.
func maskedListResult(items []any, collection, nextToken string, mask naming.Mask, idField string) *mcp.CallToolResult {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if mask.All() {
			out = append(out, item)
			continue
		}
		m, err := resourceMap(item)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
		}
		out = append(out, mask.Project(m, idField))
	}
	page := map[string]any{collection: out}
	if nextToken != "" {
		page["next_page_token"] = nextToken
	}
	return yamlResult(page)
}

func resourceMap(v any) (map[string]any, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
