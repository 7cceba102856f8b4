package cmd

import (
	"testing"

	"github.com/deskpilot/deskpilot/internal/output"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"serve", "observe", "windows", "find"}
	commands := rootCmd.Commands()

	found := make(map[string]bool)
	for _, c := range commands {
		found[c.Name()] = true
	}

	for _, name := range expected {
		if !found[name] {
			t.Errorf("expected subcommand %q not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	if rootCmd.Version == "" {
		t.Error("root command version should be set")
	}
}

func TestRootCommand_FormatFlag(t *testing.T) {
	oldFormat, oldPretty := output.OutputFormat, output.PrettyOutput
	t.Cleanup(func() {
		output.OutputFormat, output.PrettyOutput = oldFormat, oldPretty
		rootCmd.PersistentFlags().Set("format", "yaml")
	})

	if err := rootCmd.PersistentFlags().Set("format", "json"); err != nil {
		t.Fatal(err)
	}
	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err != nil {
		t.Fatal(err)
	}
	if output.OutputFormat != output.FormatJSON {
		t.Errorf("format: got %q, want json", output.OutputFormat)
	}

	rootCmd.PersistentFlags().Set("format", "toml")
	if err := rootCmd.PersistentPreRunE(rootCmd, nil); err == nil {
		t.Error("unsupported format should error")
	}
}
