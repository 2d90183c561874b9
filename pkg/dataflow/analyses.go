package dataflow

import (
	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/syntax"
	"github.com/l3aro/go-tangent/pkg/vars"
)

// Analysis names, also used as label prefixes.
const (
	NameReachingDefinitions = "definitions"
	NameDefined             = "defined"
	NameActive              = "active"
)

// ReachingDefinitions tracks which (variable, defining statement) pairs may
// reach each point. A statement kills every incoming definition of the
// variables it redefines.
func ReachingDefinitions() Analysis {
	return Func{
		Label: NameReachingDefinitions,
		Op:    Union,
		Gen: func(n *cfg.Node, in FactSet) (FactSet, FactSet) {
			updated := vars.Updated(n.Value)
			if len(updated) == 0 {
				return FactSet{}, FactSet{}
			}
			facts := make([]Fact, 0, len(updated))
			for _, name := range updated.Sorted() {
				facts = append(facts, Fact{Name: name, Def: n.Value})
			}
			kill := in.Filter(func(f Fact) bool { return updated.Has(f.Name) })
			return NewFactSet(facts...), kill
		},
	}
}

// Defined tracks the variables defined on every path to each point.
func Defined() Analysis {
	return Func{
		Label: NameDefined,
		Op:    Intersection,
		Gen: func(n *cfg.Node, _ FactSet) (FactSet, FactSet) {
			return Names(vars.Updated(n.Value).Sorted()...), FactSet{}
		},
	}
}

// DefaultPopFunctions are the callees whose results are always active.
var DefaultPopFunctions = []string{"tangent.pop", "pop", "tangent.pop_stack", "pop_stack"}

// ActiveOption configures Active.
type ActiveOption func(*active)

// WithPopFunctions replaces the dotted callee names treated as pops from the
// execution trace stack.
func WithPopFunctions(names ...string) ActiveOption {
	return func(a *active) {
		a.pops = make(map[string]struct{}, len(names))
		for _, n := range names {
			a.pops[n] = struct{}{}
		}
	}
}

type active struct {
	wrt  []int
	pops map[string]struct{}
}

// Active tracks the variables that depend on the parameters at positions
// wrt. Assigning from an expression that reads an active variable, or from a
// stack pop, activates the targets; assigning from anything else
// deactivates them.
func Active(wrt []int, opts ...ActiveOption) Analysis {
	a := &active{wrt: append([]int(nil), wrt...)}
	WithPopFunctions(DefaultPopFunctions...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *active) Name() string { return NameActive }
func (a *active) Meet() Meet   { return Union }

// Validate checks that every wrt index names a positional parameter.
func (a *active) Validate(g *cfg.CFG) error {
	args, ok := g.EntryNode().Value.(*syntax.Arguments)
	if !ok {
		return syntax.Errorf(ErrInvalidAnalysis, g.EntryNode().Value, "entry is not a parameter list")
	}
	for _, i := range a.wrt {
		if i < 0 || i >= len(args.Args) {
			return syntax.Errorf(ErrInvalidAnalysis, args, "wrt index %d out of range for %d parameters", i, len(args.Args))
		}
	}
	return nil
}

func (a *active) GenKill(n *cfg.Node, in FactSet) (FactSet, FactSet) {
	switch v := n.Value.(type) {
	case *syntax.Arguments:
		names := make([]string, 0, len(a.wrt))
		for _, i := range a.wrt {
			if i >= 0 && i < len(v.Args) {
				names = append(names, v.Args[i].ID)
			}
		}
		return Names(names...), FactSet{}

	case *syntax.Assign:
		targets := Names(vars.Updated(v).Sorted()...)
		if a.isPop(v.Value) || a.readsActive(vars.Collect(v.Value), in) {
			return targets, FactSet{}
		}
		return FactSet{}, targets

	case *syntax.AugAssign:
		// x op= y reads x as well, so an active target stays active.
		used := vars.Collect(v.Value)
		for name := range vars.Updated(v) {
			used.Add(name)
		}
		targets := Names(vars.Updated(v).Sorted()...)
		if a.readsActive(used, in) {
			return targets, FactSet{}
		}
		return FactSet{}, targets
	}
	return FactSet{}, FactSet{}
}

func (a *active) isPop(e syntax.Expr) bool {
	call, ok := e.(*syntax.Call)
	if !ok {
		return false
	}
	name, ok := syntax.DottedName(call.Func)
	if !ok {
		return false
	}
	_, ok = a.pops[name]
	return ok
}

func (a *active) readsActive(used vars.Names, in FactSet) bool {
	for name := range used {
		if in.HasName(name) {
			return true
		}
	}
	return false
}
