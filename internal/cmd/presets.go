package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/thumbsmith/thumbsmith/internal/config"
	"github.com/thumbsmith/thumbsmith/internal/output"
	"github.com/thumbsmith/thumbsmith/internal/preset"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Browse style presets",
	Long: `Browse the built-in style presets and your own.

User presets are markdown files with YAML frontmatter (slug, name,
description) or plain YAML files with a style field, read from presets.dir.
A user preset replaces a built-in one with the same slug.`,
}

var presetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetsList,
}

var presetsShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show a preset's full style",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetsShow,
}

func init() {
	rootCmd.AddCommand(presetsCmd)
	presetsCmd.AddCommand(presetsListCmd)
	presetsCmd.AddCommand(presetsShowCmd)

	presetsListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json|markdown")
}

func loadPresets() (preset.Registry, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return preset.DefaultRegistry(cfg.Presets.Dir)
}

func runPresetsList(cmd *cobra.Command, _ []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	registry, err := loadPresets()
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatPresets(registry.List())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func runPresetsShow(cmd *cobra.Command, args []string) error {
	registry, err := loadPresets()
	if err != nil {
		return err
	}
	p, err := registry.Get(args[0])
	if err != nil {
		return err
	}

	lines := []string{fmt.Sprintf("%s (%s)", p.Name, p.Slug)}
	if p.Description != "" {
		lines = append(lines, p.Description)
	}
	if p.Source != "" {
		lines = append(lines, "Source: "+p.Source)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprint(out, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	_, err = fmt.Fprintf(out, "\n%s\n", p.Style)
	return err
}
