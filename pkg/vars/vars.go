// Package vars collects the variables an expression reads and the variables
// a statement writes.
//
// A variable is either a bare identifier or a dotted attribute chain that
// reduces to a simple path such as "a.b.c".
package vars

import (
	"sort"
	"strings"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// Names is a set of variable names.
type Names map[string]struct{}

// Add inserts name into the set.
func (n Names) Add(name string) { n[name] = struct{}{} }

// Has reports whether name is in the set.
func (n Names) Has(name string) bool {
	_, ok := n[name]
	return ok
}

// Sorted returns the names in lexical order.
func (n Names) Sorted() []string {
	out := make([]string, 0, len(n))
	for name := range n {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// leaves selects which leaf kinds a walk gathers.
type leaves struct {
	names  bool   // bare identifiers
	attrs  bool   // simple dotted chains
	prefix string // required prefix for chains, if any
}

// Collect returns every bare name and simple attribute chain referenced in
// e. A simple chain is collected whole; its base is not added separately.
// Attributes on non-simple bases, like f(x).y or x[i].y, are not collected as
// chains but their simple sub-parts are.
func Collect(e syntax.Expr) Names {
	out := make(Names)
	collect(e, leaves{names: true, attrs: true}, out)
	return out
}

// Attrs returns the simple attribute chains in e rooted at receiver, such as
// "self.w" and "self.layer.b" for receiver "self".
func Attrs(e syntax.Expr, receiver string) Names {
	out := make(Names)
	collect(e, leaves{attrs: true, prefix: receiver + "."}, out)
	return out
}

func collect(e syntax.Expr, want leaves, out Names) {
	switch n := e.(type) {
	case nil:
		return
	case *syntax.Name:
		if want.names {
			out.Add(n.ID)
		}
		return
	case *syntax.Attribute:
		if name, ok := syntax.DottedName(n); ok {
			if want.attrs && strings.HasPrefix(name, want.prefix) {
				out.Add(name)
			}
			return
		}
	}
	for _, c := range syntax.Children(e) {
		collect(c, want, out)
	}
}

// Updated returns the variables node (re)defines: assignment and augmented
// assignment targets, for-loop targets and function parameters. Assigning to
// x[i] updates x; assigning to a.b updates "a.b".
func Updated(node syntax.Node) Names {
	out := make(Names)
	switch n := node.(type) {
	case *syntax.Assign:
		for _, t := range n.Targets {
			targets(t, out)
		}
	case *syntax.AugAssign:
		targets(n.Target, out)
	case *syntax.For:
		targets(n.Target, out)
	case *syntax.Arguments:
		for _, a := range n.All() {
			out.Add(a.ID)
		}
	}
	return out
}

func targets(e syntax.Expr, out Names) {
	switch n := e.(type) {
	case *syntax.Name:
		out.Add(n.ID)
	case *syntax.Attribute:
		if name, ok := syntax.DottedName(n); ok {
			out.Add(name)
		} else if base, ok := syntax.BaseName(n); ok {
			out.Add(base)
		}
	case *syntax.Subscript:
		targets(n.Value, out)
	case *syntax.Starred:
		targets(n.Value, out)
	case *syntax.Tuple:
		for _, elt := range n.Elts {
			targets(elt, out)
		}
	case *syntax.List:
		for _, elt := range n.Elts {
			targets(elt, out)
		}
	}
}
