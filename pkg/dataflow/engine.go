// Package dataflow runs forward fixed-point analyses over control flow
// graphs and records the results in an annotation store.
//
// An analysis supplies a meet operator and a gen/kill function. For every
// statement the engine stores the incoming, generated, killed and outgoing
// fact sets under four labels derived from the analysis name.
package dataflow

import (
	"container/list"
	"errors"
	"fmt"

	"golang.org/x/tools/container/intsets"

	"github.com/l3aro/go-tangent/internal/log"
	"github.com/l3aro/go-tangent/pkg/anno"
	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

// ErrInvalidAnalysis is returned when an analysis lacks a usable name, meet
// operator or gen/kill function, or is inconsistent with the graph.
var ErrInvalidAnalysis = errors.New("invalid analysis")

// Meet combines the outgoing facts of a node's predecessors.
type Meet int

const (
	// Union is the meet of "may" analyses.
	Union Meet = iota + 1
	// Intersection is the meet of "must" analyses.
	Intersection
)

func (m Meet) String() string {
	switch m {
	case Union:
		return "union"
	case Intersection:
		return "intersection"
	default:
		return "unknown"
	}
}

func (m Meet) apply(a, b FactSet) FactSet {
	if m == Intersection {
		return a.Intersect(b)
	}
	return a.Union(b)
}

// Analysis is a forward dataflow problem.
type Analysis interface {
	// Name prefixes the annotation labels.
	Name() string
	Meet() Meet
	// GenKill returns the facts node generates and kills given its incoming
	// facts.
	GenKill(n *cfg.Node, in FactSet) (gen, kill FactSet)
}

// Validator is implemented by analyses that need to check a graph before
// running on it.
type Validator interface {
	Validate(g *cfg.CFG) error
}

// Func adapts a gen/kill function to Analysis.
type Func struct {
	Label string
	Op    Meet
	Gen   func(n *cfg.Node, in FactSet) (gen, kill FactSet)
}

func (f Func) Name() string { return f.Label }
func (f Func) Meet() Meet   { return f.Op }

func (f Func) GenKill(n *cfg.Node, in FactSet) (FactSet, FactSet) {
	return f.Gen(n, in)
}

// Labels are the annotation labels of one analysis.
type Labels struct {
	In, Out, Gen, Kill string
	// Exit labels the function definition with the facts at the exit node.
	Exit string
}

// LabelsOf returns the labels for the analysis called name.
func LabelsOf(name string) Labels {
	return Labels{
		In:   name + "_in",
		Out:  name + "_out",
		Gen:  name + "_gen",
		Kill: name + "_kill",
		Exit: name + "_exit",
	}
}

// Result summarizes one run.
type Result struct {
	Analysis string
	// Exit is the meet of the exit node's predecessors.
	Exit FactSet
	// Visits counts gen/kill evaluations until the fixed point.
	Visits int
}

// Option configures Run and Forward.
type Option func(*options)

type options struct {
	logger log.Logger
}

// WithLogger sends progress messages to l at debug level and CFG failures
// at warn level.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: log.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func check(a Analysis) error {
	if a == nil {
		return fmt.Errorf("%w: nil analysis", ErrInvalidAnalysis)
	}
	switch f := a.(type) {
	case Func:
		if f.Gen == nil {
			return fmt.Errorf("%w: %q has no gen/kill function", ErrInvalidAnalysis, f.Label)
		}
	case *Func:
		if f == nil || f.Gen == nil {
			return fmt.Errorf("%w: no gen/kill function", ErrInvalidAnalysis)
		}
	}
	if a.Name() == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAnalysis)
	}
	if m := a.Meet(); m != Union && m != Intersection {
		return fmt.Errorf("%w: %q has unknown meet %d", ErrInvalidAnalysis, a.Name(), int(m))
	}
	return nil
}

// Run propagates a to a fixed point over g. Each statement node receives the
// four labels of a; the exit meet is stored on the function definition and
// returned.
//
// A node is revisited only when the outgoing set of one of its predecessors
// changed, so termination relies on gen/kill being monotone under the meet.
func Run(g *cfg.CFG, a Analysis, store *anno.Store, opts ...Option) (*Result, error) {
	if err := check(a); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: nil graph", cfg.ErrInvalidInput)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil annotation store", ErrInvalidAnalysis)
	}
	if v, ok := a.(Validator); ok {
		if err := v.Validate(g); err != nil {
			return nil, err
		}
	}

	o := newOptions(opts)
	lb := LabelsOf(a.Name())
	meet := a.Meet()
	res := &Result{Analysis: a.Name()}

	incoming := func(n *cfg.Node) FactSet {
		var in FactSet
		first := true
		for _, p := range n.Prev() {
			out, ok := Facts(store, g.Node(p).Value, lb.Out)
			if !ok {
				continue
			}
			if first {
				in, first = out, false
				continue
			}
			in = meet.apply(in, out)
		}
		return in
	}

	var queued intsets.Sparse
	work := list.New()
	push := func(id cfg.NodeID) {
		if queued.Insert(int(id)) {
			work.PushBack(id)
		}
	}
	push(g.Entry)

	for work.Len() > 0 {
		id := work.Remove(work.Back()).(cfg.NodeID)
		queued.Remove(int(id))
		if id == g.Exit {
			continue
		}

		n := g.Node(id)
		in := incoming(n)
		gen, kill := a.GenKill(n, in)
		out := in.Minus(kill).Union(gen)
		res.Visits++

		prev, stored := Facts(store, n.Value, lb.Out)
		for label, v := range map[string]FactSet{lb.In: in, lb.Gen: gen, lb.Kill: kill, lb.Out: out} {
			if err := store.Set(n.Value, label, v, false); err != nil {
				return nil, err
			}
		}

		if stored && prev.Equal(out) {
			continue
		}
		for _, succ := range n.Next() {
			push(succ)
		}
	}

	res.Exit = incoming(g.ExitNode())
	if g.Func != nil {
		if err := store.Set(g.Func, lb.Exit, res.Exit, false); err != nil {
			return nil, err
		}
	}

	name := ""
	if g.Func != nil {
		name = g.Func.Name
	}
	o.logger.With("analysis", a.Name(), "function", name).
		Debug("dataflow fixed point", "nodes", len(g.Nodes), "visits", res.Visits)

	return res, nil
}

// Facts returns the fact set stored on n under label.
func Facts(store *anno.Store, n syntax.Node, label string) (FactSet, bool) {
	v, ok := store.Get(n, label)
	if !ok {
		return FactSet{}, false
	}
	s, ok := v.(FactSet)
	return s, ok
}
