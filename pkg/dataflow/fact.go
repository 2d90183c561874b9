package dataflow

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// Fact is one element of a fact domain. Name-only domains leave Def nil;
// reaching definitions pair a name with the statement defining it.
type Fact struct {
	Name string
	Def  syntax.Node
}

func (f Fact) String() string {
	if f.Def == nil {
		return f.Name
	}
	return fmt.Sprintf("%s@%d", f.Name, f.Def.Pos().Line)
}

// FactSet is an immutable set of facts. The zero value is the empty set.
type FactSet struct {
	m map[Fact]struct{}
}

// NewFactSet returns a set holding facts.
func NewFactSet(facts ...Fact) FactSet {
	if len(facts) == 0 {
		return FactSet{}
	}
	m := make(map[Fact]struct{}, len(facts))
	for _, f := range facts {
		m[f] = struct{}{}
	}
	return FactSet{m: m}
}

// Names returns a set of name-only facts.
func Names(names ...string) FactSet {
	facts := make([]Fact, len(names))
	for i, n := range names {
		facts[i] = Fact{Name: n}
	}
	return NewFactSet(facts...)
}

func (s FactSet) Len() int { return len(s.m) }

func (s FactSet) Has(f Fact) bool {
	_, ok := s.m[f]
	return ok
}

// HasName reports whether any fact in s is about name.
func (s FactSet) HasName(name string) bool {
	for f := range s.m {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (s FactSet) Union(o FactSet) FactSet {
	if o.Len() == 0 {
		return s
	}
	if s.Len() == 0 {
		return o
	}
	m := make(map[Fact]struct{}, len(s.m)+len(o.m))
	for f := range s.m {
		m[f] = struct{}{}
	}
	for f := range o.m {
		m[f] = struct{}{}
	}
	return FactSet{m: m}
}

func (s FactSet) Intersect(o FactSet) FactSet {
	m := make(map[Fact]struct{})
	for f := range s.m {
		if o.Has(f) {
			m[f] = struct{}{}
		}
	}
	return FactSet{m: m}
}

func (s FactSet) Minus(o FactSet) FactSet {
	if o.Len() == 0 {
		return s
	}
	m := make(map[Fact]struct{}, len(s.m))
	for f := range s.m {
		if !o.Has(f) {
			m[f] = struct{}{}
		}
	}
	return FactSet{m: m}
}

// Filter returns the facts for which keep returns true.
func (s FactSet) Filter(keep func(Fact) bool) FactSet {
	m := make(map[Fact]struct{})
	for f := range s.m {
		if keep(f) {
			m[f] = struct{}{}
		}
	}
	return FactSet{m: m}
}

func (s FactSet) Equal(o FactSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for f := range s.m {
		if !o.Has(f) {
			return false
		}
	}
	return true
}

// Facts returns the facts ordered by name, then by definition position.
func (s FactSet) Facts() []Fact {
	out := make([]Fact, 0, len(s.m))
	for f := range s.m {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b Fact) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(defKey(a.Def), defKey(b.Def))
	})
	return out
}

func defKey(n syntax.Node) int {
	if n == nil {
		return -1
	}
	p := n.Pos()
	return p.Line<<16 | p.Column
}

// Names returns the distinct names in s in lexical order.
func (s FactSet) Names() []string {
	seen := make(map[string]struct{}, len(s.m))
	out := make([]string, 0, len(s.m))
	for f := range s.m {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f.Name)
	}
	slices.Sort(out)
	return out
}

// Strings renders every fact in Facts order.
func (s FactSet) Strings() []string {
	facts := s.Facts()
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.String()
	}
	return out
}

func (s FactSet) String() string {
	return "{" + strings.Join(s.Strings(), ", ") + "}"
}
