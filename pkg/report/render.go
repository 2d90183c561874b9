package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-tangent/pkg/cfg"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q cannot encode structured data", ErrUnknownFormat, format)
}

// WriteCFG prints a CFG in human-readable form.
func WriteCFG(w io.Writer, info *cfg.CFGInfo) {
	fmt.Fprintf(w, "=== CFG for function: %s ===\n", info.FunctionName)
	fmt.Fprintf(w, "Cyclomatic Complexity: %d\n", info.CyclomaticComplexity)
	fmt.Fprintf(w, "Entry Block: %s\n", info.EntryBlockID)
	fmt.Fprintf(w, "Exit Blocks: %v\n", info.ExitBlockIDs)
	fmt.Fprintf(w, "\nBlocks (%d):\n", len(info.Blocks))
	for _, id := range info.Order {
		block := info.Blocks[id]
		fmt.Fprintf(w, "  %s (%s, line %d)\n", id, block.Type, block.StartLine)
		for _, stmt := range block.Statements {
			fmt.Fprintf(w, "    %s\n", stmt)
		}
	}

	fmt.Fprintf(w, "\nEdges (%d):\n", len(info.Edges))
	for _, edge := range info.Edges {
		if edge.Condition != "" {
			fmt.Fprintf(w, "  %s --%s[%s]--> %s\n", edge.SourceID, edge.EdgeType, edge.Condition, edge.TargetID)
			continue
		}
		fmt.Fprintf(w, "  %s --%s--> %s\n", edge.SourceID, edge.EdgeType, edge.TargetID)
	}
}

// WriteText prints a function report in human-readable form.
func WriteText(w io.Writer, f *Function) {
	fmt.Fprintf(w, "=== %s (line %d) ===\n", f.Name, f.Line)
	if f.CFG != nil {
		fmt.Fprintf(w, "Nodes: %d  Edges: %d  Cyclomatic Complexity: %d\n",
			len(f.CFG.Blocks), len(f.CFG.Edges), f.CFG.CyclomaticComplexity)
	}

	names := analysisNames(f)
	for _, st := range f.Statements {
		fmt.Fprintf(w, "\n%s line %d: %s\n", st.Block, st.Line, st.Source)
		for _, name := range names {
			facts, ok := st.Facts[name]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "  %-12s in=%s out=%s gen=%s kill=%s\n", name,
				set(facts.In), set(facts.Out), set(facts.Gen), set(facts.Kill))
		}
	}

	fmt.Fprintln(w, "\nExit:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s  (%d visits)\n", name, set(f.Exit[name]), f.Visits[name])
	}

	if len(f.Gradients) > 0 {
		WriteGradients(w, f.Gradients)
	}
}

// WriteGradients prints the names minted for active variables.
func WriteGradients(w io.Writer, grads []Gradient) {
	fmt.Fprintln(w, "\nGradients:")
	for _, g := range grads {
		fmt.Fprintf(w, "  %-12s grad=%s temp_grad=%s temp=%s\n", g.Variable, g.Grad, g.TempGrad, g.Temp)
	}
}

// analysisNames orders the analyses of f as Analyze runs them, with any
// others after.
func analysisNames(f *Function) []string {
	var names []string
	for _, name := range AllAnalyses() {
		if _, ok := f.Exit[name]; ok {
			names = append(names, name)
		}
	}
	var rest []string
	for name := range f.Exit {
		if !slices.Contains(names, name) {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(names, rest...)
}

func set(facts []string) string {
	return "{" + strings.Join(facts, ", ") + "}"
}
