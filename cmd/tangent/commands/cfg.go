package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/report"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <file> <function>",
	Short: "Print the control-flow graph of a function",
	Long: `Builds the control-flow graph of one function in a Python file.
Each node is a single statement. Loop headers, branches and back edges are
marked, and the cyclomatic complexity is reported.

The function may be given by its bare name or qualified, as in Model.forward.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath, functionName := args[0], args[1]

		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		_, mod, err := s.readModule(cmd, filePath)
		if err != nil {
			return err
		}
		fn, err := findFunction(mod, filePath, functionName)
		if err != nil {
			return err
		}

		g, err := cfg.Build(fn)
		if err != nil {
			return fmt.Errorf("building CFG: %w", err)
		}
		info := g.Info()

		out := cmd.OutOrStdout()
		if s.format == report.FormatText {
			report.WriteCFG(out, info)
			return nil
		}
		return report.Encode(out, s.format, info)
	},
}

func init() {
	RootCmd.AddCommand(cfgCmd)
}
