// Package commands provides the CLI commands for tangent.
package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-tangent/internal/config"
	"github.com/l3aro/go-tangent/internal/log"
	"github.com/l3aro/go-tangent/pkg/parser"
	"github.com/l3aro/go-tangent/pkg/report"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "tangent",
	Short: "tangent - control-flow and data-flow analysis for Python functions",
	Long: `tangent builds control-flow graphs of Python functions and runs the forward
data-flow analyses used by source-to-source automatic differentiation.

Commands:
  cfg         Print the control-flow graph of a function
  analyze     Run reaching definitions, defined and active variable analyses
  grads       List the gradient and temporary names for active variables
  init        Create a configuration file interactively

Use "tangent [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path (default: project, env, then global config)")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")
	RootCmd.PersistentFlags().StringP("format", "f", "", "Output format: text, json or yaml")
}

// session is the per-invocation state shared by the analysis commands.
type session struct {
	cfg    *config.Config
	logger log.Logger
	format report.Format
}

// newSession loads configuration and applies the persistent flags on top.
func newSession(cmd *cobra.Command) (*session, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cmd.Flags().Changed("verbose") {
		cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cmd.Flags().Changed("format") {
		cfg.Format, _ = cmd.Flags().GetString("format")
	}

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: cfg.Logger(), format: format}, nil
}

// readModule checks and parses a Python source file.
func (s *session) readModule(cmd *cobra.Command, filePath string) ([]byte, *syntax.Module, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("path is a directory, expected a file: %s", filePath)
	}
	if !isPythonFile(filePath) {
		return nil, nil, fmt.Errorf("unsupported file type: %s (only .py files supported)", filePath)
	}

	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading file %s: %w", filePath, err)
	}
	mod, err := parser.Parse(cmd.Context(), src)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	s.logger.Debug("parsed file", "path", filePath, "functions", len(parser.Functions(mod)))
	return src, mod, nil
}

// isPythonFile checks if the file has a .py extension.
func isPythonFile(filePath string) bool {
	return strings.HasSuffix(filePath, ".py")
}

// findFunction wraps parser.FindFunction with a hint listing what the file
// does define.
func findFunction(mod *syntax.Module, filePath, name string) (*syntax.FunctionDef, error) {
	fn, err := parser.FindFunction(mod, name)
	if err == nil {
		return fn, nil
	}
	var names []string
	for _, f := range parser.Functions(mod) {
		names = append(names, f.Name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s (file defines no functions)", err, filePath)
	}
	return nil, fmt.Errorf("%w in %s\nAvailable: %s", err, filePath, strings.Join(names, ", "))
}
