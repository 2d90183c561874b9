// Package report runs the forward analyses over one function and collects
// their results into a summary that can be printed, serialized or cached.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-tangent/internal/log"
	"github.com/l3aro/go-tangent/pkg/anno"
	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/create"
	"github.com/l3aro/go-tangent/pkg/dataflow"
	"github.com/l3aro/go-tangent/pkg/naming"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

// ErrUnknownAnalysis is returned for an analysis name Analyze does not know.
var ErrUnknownAnalysis = errors.New("unknown analysis")

// AllAnalyses lists the analyses in the order Analyze runs them.
func AllAnalyses() []string {
	return []string{dataflow.NameReachingDefinitions, dataflow.NameDefined, dataflow.NameActive}
}

// Options selects what Analyze computes.
type Options struct {
	Analyses []string `json:"analyses" yaml:"analyses" msgpack:"analyses"`
	// Wrt lists positional parameter indices for the active analysis.
	// Empty means every positional parameter.
	Wrt          []int            `json:"wrt" yaml:"wrt" msgpack:"wrt"`
	PopFunctions []string         `json:"pop_functions" yaml:"pop_functions" msgpack:"pop_functions"`
	Templates    naming.Templates `json:"templates" yaml:"templates" msgpack:"templates"`
	// Tangent names gradients for forward mode instead of adjoints.
	Tangent bool `json:"tangent" yaml:"tangent" msgpack:"tangent"`

	Logger log.Logger `json:"-" yaml:"-" msgpack:"-"`
}

// DefaultOptions runs every analysis with the default naming.
func DefaultOptions() Options {
	return Options{
		Analyses:     AllAnalyses(),
		PopFunctions: slices.Clone(dataflow.DefaultPopFunctions),
		Templates:    naming.DefaultTemplates(),
	}
}

func (o Options) withDefaults() Options {
	if len(o.Analyses) == 0 {
		o.Analyses = AllAnalyses()
	}
	if o.PopFunctions == nil {
		o.PopFunctions = slices.Clone(dataflow.DefaultPopFunctions)
	}
	if o.Templates == (naming.Templates{}) {
		o.Templates = naming.DefaultTemplates()
	}
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	return o
}

// Fingerprint identifies the options for cache keys. Options that differ
// only in defaults share a fingerprint.
func (o Options) Fingerprint() string {
	o = o.withDefaults()
	b, err := msgpack.Marshal(o)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Facts are the rendered fact sets of one statement under one analysis.
type Facts struct {
	In   []string `json:"in" yaml:"in" msgpack:"in"`
	Out  []string `json:"out" yaml:"out" msgpack:"out"`
	Gen  []string `json:"gen" yaml:"gen" msgpack:"gen"`
	Kill []string `json:"kill" yaml:"kill" msgpack:"kill"`
}

// Statement is one CFG node with its facts keyed by analysis name.
type Statement struct {
	Block  string           `json:"block" yaml:"block" msgpack:"block"`
	Line   int              `json:"line" yaml:"line" msgpack:"line"`
	Source string           `json:"source" yaml:"source" msgpack:"source"`
	Facts  map[string]Facts `json:"facts" yaml:"facts" msgpack:"facts"`
}

// Gradient lists the names minted for one active variable.
type Gradient struct {
	Variable string `json:"variable" yaml:"variable" msgpack:"variable"`
	Grad     string `json:"grad" yaml:"grad" msgpack:"grad"`
	TempGrad string `json:"temp_grad" yaml:"temp_grad" msgpack:"temp_grad"`
	Temp     string `json:"temp" yaml:"temp" msgpack:"temp"`
}

// Function is the analysis report of one function.
type Function struct {
	Name       string              `json:"name" yaml:"name" msgpack:"name"`
	Line       int                 `json:"line" yaml:"line" msgpack:"line"`
	CFG        *cfg.CFGInfo        `json:"cfg" yaml:"cfg" msgpack:"cfg"`
	Statements []Statement         `json:"statements" yaml:"statements" msgpack:"statements"`
	Exit       map[string][]string `json:"exit" yaml:"exit" msgpack:"exit"`
	Visits     map[string]int      `json:"visits" yaml:"visits" msgpack:"visits"`
	Gradients  []Gradient          `json:"gradients,omitempty" yaml:"gradients,omitempty" msgpack:"gradients,omitempty"`
}

// Analyze builds the CFG of fn, runs the selected analyses on a fresh
// annotation store and renders the result. Gradient names are minted for
// the variables active at the exit when the active analysis runs.
func Analyze(fn *syntax.FunctionDef, opts Options) (*Function, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil function", cfg.ErrInvalidInput)
	}
	opts = opts.withDefaults()
	if err := opts.Templates.Validate(); err != nil {
		return nil, err
	}

	g, err := cfg.Build(fn)
	if err != nil {
		return nil, err
	}

	analyses := make([]dataflow.Analysis, 0, len(opts.Analyses))
	for _, name := range opts.Analyses {
		a, err := analysisFor(name, g, opts)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}

	store := anno.New()
	out := &Function{
		Name:   fn.Name,
		Line:   fn.Pos().Line,
		CFG:    g.Info(),
		Exit:   make(map[string][]string, len(analyses)),
		Visits: make(map[string]int, len(analyses)),
	}

	var activeExit *dataflow.FactSet
	for _, a := range analyses {
		res, err := dataflow.Run(g, a, store, dataflow.WithLogger(opts.Logger))
		if err != nil {
			return nil, fmt.Errorf("running %s on %s: %w", a.Name(), fn.Name, err)
		}
		out.Exit[a.Name()] = res.Exit.Strings()
		out.Visits[a.Name()] = res.Visits
		if a.Name() == dataflow.NameActive {
			activeExit = &res.Exit
		}
	}

	for _, n := range g.Nodes {
		if n.ID == g.Exit {
			continue
		}
		id := cfg.BlockID(n.ID)
		st := Statement{
			Block:  id,
			Line:   out.CFG.Blocks[id].StartLine,
			Source: out.CFG.Blocks[id].Statements[0],
			Facts:  make(map[string]Facts, len(analyses)),
		}
		for _, a := range analyses {
			lb := dataflow.LabelsOf(a.Name())
			st.Facts[a.Name()] = Facts{
				In:   facts(store, n.Value, lb.In),
				Out:  facts(store, n.Value, lb.Out),
				Gen:  facts(store, n.Value, lb.Gen),
				Kill: facts(store, n.Value, lb.Kill),
			}
		}
		out.Statements = append(out.Statements, st)
	}

	if activeExit != nil {
		grads, err := gradients(fn, activeExit.Names(), opts)
		if err != nil {
			return nil, fmt.Errorf("naming gradients of %s: %w", fn.Name, err)
		}
		out.Gradients = grads
	}

	opts.Logger.Debug("analyzed function", "function", fn.Name, "nodes", len(g.Nodes))
	return out, nil
}

func analysisFor(name string, g *cfg.CFG, opts Options) (dataflow.Analysis, error) {
	switch name {
	case dataflow.NameReachingDefinitions:
		return dataflow.ReachingDefinitions(), nil
	case dataflow.NameDefined:
		return dataflow.Defined(), nil
	case dataflow.NameActive:
		wrt := opts.Wrt
		if len(wrt) == 0 {
			if args, ok := g.EntryNode().Value.(*syntax.Arguments); ok {
				for i := range args.Args {
					wrt = append(wrt, i)
				}
			}
		}
		return dataflow.Active(wrt, dataflow.WithPopFunctions(opts.PopFunctions...)), nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownAnalysis, name, strings.Join(AllAnalyses(), ", "))
}

func facts(store *anno.Store, n syntax.Node, label string) []string {
	s, _ := dataflow.Facts(store, n, label)
	return s.Strings()
}

// gradients mints the gradient, temporary gradient and temporary names of
// each variable with one namer, so no two names collide.
func gradients(fn *syntax.FunctionDef, names []string, opts Options) ([]Gradient, error) {
	namer := naming.Build(fn, naming.WithTemplates(opts.Templates))
	out := make([]Gradient, 0, len(names))
	for _, name := range names {
		ref := dotted(name)
		g, err := create.Grad(ref, namer, opts.Tangent)
		if err != nil {
			return nil, err
		}
		tg, err := create.TempGrad(ref, namer, opts.Tangent)
		if err != nil {
			return nil, err
		}
		tmp, err := create.Temp(ref, namer)
		if err != nil {
			return nil, err
		}
		out = append(out, Gradient{
			Variable: name,
			Grad:     syntax.Format(g),
			TempGrad: tg.ID,
			Temp:     tmp.ID,
		})
	}
	return out, nil
}

// dotted turns "a.b.c" back into an attribute chain.
func dotted(name string) syntax.Expr {
	parts := strings.Split(name, ".")
	var e syntax.Expr = &syntax.Name{ID: parts[0]}
	for _, p := range parts[1:] {
		e = &syntax.Attribute{Value: e, Attr: p}
	}
	return e
}
