package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-tangent/internal/config"
	"github.com/l3aro/go-tangent/pkg/naming"
	"github.com/l3aro/go-tangent/pkg/report"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize tangent configuration interactively",
	Long: `Guides you through setting up tangent configuration step by step.
Creates a config file with naming templates, default analyses and output
settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

// templateField validates one naming template on its own.
func templateField(s string) error {
	return naming.Templates{Adjoint: s, Tangent: s, TempAdjoint: s, TempTangent: s, Temp: s}.Validate()
}

func runInit(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Naming ===
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Naming templates").
				Description("Each template turns a variable name into a derived one.\nUse exactly one %s for the original name."),
			huh.NewInput().Title("Adjoint").Placeholder("b%s").Value(&cfg.Naming.Adjoint).Validate(templateField),
			huh.NewInput().Title("Tangent").Placeholder("d%s").Value(&cfg.Naming.Tangent).Validate(templateField),
			huh.NewInput().Title("Temporary adjoint").Placeholder("_b%s").Value(&cfg.Naming.TempAdjoint).Validate(templateField),
			huh.NewInput().Title("Temporary tangent").Placeholder("_d%s").Value(&cfg.Naming.TempTangent).Validate(templateField),
			huh.NewInput().Title("Temporary").Placeholder("_%s").Value(&cfg.Naming.Temp).Validate(templateField),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Analyses and output ===
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Default analyses").
				Description("Run by `tangent analyze` when --analysis is not given").
				Options(huh.NewOptions(report.AllAnalyses()...)...).
				Value(&cfg.Analyses).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return fmt.Errorf("select at least one analysis")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Output format").
				Options(
					huh.NewOption("Text", string(report.FormatText)),
					huh.NewOption("JSON", string(report.FormatJSON)),
					huh.NewOption("YAML", string(report.FormatYAML)),
				).
				Value(&cfg.Format),
			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&cfg.LogLevel),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.tangent/config.yaml)", "project"),
					huh.NewOption("Global (~/.tangent/config.yaml)", "global"),
				).
				Value(&saveLocationChoice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.ProjectConfigPath()
	if saveLocationChoice == "global" {
		configPath = config.GlobalConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", configPath)
	fmt.Fprintf(out, "Naming: adjoint=%s tangent=%s temp=%s\n", cfg.Naming.Adjoint, cfg.Naming.Tangent, cfg.Naming.Temp)
	fmt.Fprintf(out, "Analyses: %v\n", cfg.Analyses)
	fmt.Fprintf(out, "Format: %s\n", cfg.Format)
	fmt.Fprintf(out, "Log level: %s\n", cfg.LogLevel)
	fmt.Fprintln(out, "================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
