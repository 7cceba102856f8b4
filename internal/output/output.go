// Package output serializes command results to stdout in the format picked
// by the root command's --format flag.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deskpilot/deskpilot/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// WindowsResult is the top-level output of the `windows` command.
type WindowsResult struct {
	PID     int                    `yaml:"pid,omitempty" json:"pid,omitempty"`
	TS      int64                  `yaml:"ts"            json:"ts"`
	Windows []model.WindowSnapshot `yaml:"windows"       json:"windows"`
}

// ElementsResult is the top-level output of the `find` command.
type ElementsResult struct {
	PID      int                     `yaml:"pid,omitempty" json:"pid,omitempty"`
	TS       int64                   `yaml:"ts"            json:"ts"`
	Elements []model.ElementSnapshot `yaml:"elements"      json:"elements"`
}

// Print serializes v to stdout in the current output format.
func Print(v any) error {
	switch OutputFormat {
	case FormatJSON:
		if PrettyOutput {
			return PrintPrettyJSON(v)
		}
		return PrintJSON(v)
	case FormatYAML:
		return PrintYAML(v)
	default:
		return fmt.Errorf("unsupported output format: %s", OutputFormat)
	}
}

// PrintJSON serializes v to stdout as compact single-line JSON.
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintPrettyJSON serializes v to stdout as indented JSON.
func PrintPrettyJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// PrintYAML serializes v to stdout as YAML.
func PrintYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
