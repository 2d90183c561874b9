package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-tangent/pkg/dataflow"
	"github.com/l3aro/go-tangent/pkg/report"
)

var gradsCmd = &cobra.Command{
	Use:   "grads <file> <function>",
	Short: "List gradient and temporary names for active variables",
	Long: `Runs the active variable analysis on one function and mints, for every
variable active at the exit, a gradient name, a temporary gradient name and
a temporary name. Names never clash with identifiers already in the function
or with each other.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, functionName := args[0], args[1]

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		opts, err := analysisOptions(cmd, s)
		if err != nil {
			return err
		}
		opts.Analyses = []string{dataflow.NameActive}

		_, mod, err := s.readModule(cmd, filePath)
		if err != nil {
			return err
		}
		fn, err := findFunction(mod, filePath, functionName)
		if err != nil {
			return err
		}

		r, err := report.Analyze(fn, opts)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", functionName, err)
		}

		out := cmd.OutOrStdout()
		if s.format != report.FormatText {
			grads := r.Gradients
			if grads == nil {
				grads = []report.Gradient{}
			}
			return report.Encode(out, s.format, grads)
		}
		if len(r.Gradients) == 0 {
			fmt.Fprintf(out, "No variables of %s are active at exit.\n", functionName)
			return nil
		}
		fmt.Fprintf(out, "=== Gradients for function: %s ===", functionName)
		report.WriteGradients(out, r.Gradients)
		return nil
	},
}

func init() {
	addAnalysisFlags(gradsCmd)
	RootCmd.AddCommand(gradsCmd)
}
