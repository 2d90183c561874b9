package syntax

import (
	"fmt"
	"strings"
)

// DottedName returns the full dotted path of a Name or of an Attribute chain
// made only of Attributes over a Name, e.g. "a.b.c". It reports false when
// the chain passes through a call, subscript or any other expression.
func DottedName(e Expr) (string, bool) {
	var parts []string
	for {
		switch n := e.(type) {
		case *Name:
			parts = append(parts, n.ID)
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			return strings.Join(parts, "."), true
		case *Attribute:
			parts = append(parts, n.Attr)
			e = n.Value
		default:
			return "", false
		}
	}
}

// BaseName returns the identifier at the root of a Name, Attribute or
// Subscript chain: "x" for x, x.a, x[i] and x.a[i].b.
func BaseName(e Expr) (string, bool) {
	for {
		switch n := e.(type) {
		case *Name:
			return n.ID, true
		case *Attribute:
			e = n.Value
		case *Subscript:
			e = n.Value
		default:
			return "", false
		}
	}
}

// Children returns the direct sub-expressions of e in source order.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Name, *Constant, *Str:
		return nil
	case *Attribute:
		return []Expr{n.Value}
	case *Subscript:
		return []Expr{n.Value, n.Slice}
	case *Call:
		out := make([]Expr, 0, 1+len(n.Args)+len(n.Keywords))
		out = append(out, n.Func)
		out = append(out, n.Args...)
		for _, kw := range n.Keywords {
			out = append(out, kw.Value)
		}
		return out
	case *BinOp:
		return []Expr{n.Left, n.Right}
	case *UnaryOp:
		return []Expr{n.Operand}
	case *BoolOp:
		return n.Values
	case *Compare:
		return append([]Expr{n.Left}, n.Comparators...)
	case *IfExp:
		return []Expr{n.Test, n.Body, n.Orelse}
	case *Tuple:
		return n.Elts
	case *List:
		return n.Elts
	case *Starred:
		return []Expr{n.Value}
	case *Slice:
		return nonNil(n.Lower, n.Upper, n.Step)
	case *Other:
		return n.Elts
	}
	return nil
}

func nonNil(es ...Expr) []Expr {
	out := es[:0:0]
	for _, e := range es {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Functions returns every function definition reachable from root, outer
// definitions before the ones nested inside them.
func Functions(root Node) []*FunctionDef {
	var out []*FunctionDef
	var visit func(stmts []Stmt)
	visit = func(stmts []Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *FunctionDef:
				out = append(out, s)
				visit(s.Body)
			case *ClassDef:
				visit(s.Body)
			case *If:
				visit(s.Body)
				visit(s.Orelse)
			case *While:
				visit(s.Body)
				visit(s.Orelse)
			case *For:
				visit(s.Body)
				visit(s.Orelse)
			case *Try:
				visit(s.Body)
				for _, h := range s.Handlers {
					visit(h.Body)
				}
				visit(s.Orelse)
				visit(s.Finalbody)
			case *With:
				visit(s.Body)
			case *Match:
				for _, c := range s.Cases {
					visit(c.Body)
				}
			}
		}
	}

	switch r := root.(type) {
	case *Module:
		visit(r.Body)
	case *FunctionDef:
		visit([]Stmt{r})
	case *ClassDef:
		visit(r.Body)
	}
	return out
}

// Kind returns the type name of a node, e.g. "Assign".
func Kind(n Node) string {
	if n == nil {
		return "<nil>"
	}
	if o, ok := n.(*Other); ok {
		return o.Kind
	}
	name := fmt.Sprintf("%T", n)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Inspect traverses the tree rooted at n depth-first, calling f for every
// node. Children of a node are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range nodeChildren(n) {
		Inspect(c, f)
	}
}

func nodeChildren(n Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	exprs := func(es []Expr) {
		for _, e := range es {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			if s != nil {
				out = append(out, s)
			}
		}
	}

	switch n := n.(type) {
	case Expr:
		exprs(Children(n))
	case *Module:
		stmts(n.Body)
	case *Arguments:
		for _, a := range n.All() {
			out = append(out, a)
		}
		exprs(n.Defaults)
	case *ExceptHandler:
		if n.Type != nil {
			add(n.Type)
		}
		stmts(n.Body)
	case *MatchCase:
		if n.Pattern != nil {
			add(n.Pattern)
		}
		stmts(n.Body)
	case *FunctionDef:
		if n.Args != nil {
			add(n.Args)
		}
		stmts(n.Body)
	case *ClassDef:
		exprs(n.Bases)
		stmts(n.Body)
	case *Assign:
		exprs(n.Targets)
		exprs([]Expr{n.Value})
	case *AugAssign:
		exprs([]Expr{n.Target, n.Value})
	case *ExprStmt:
		exprs([]Expr{n.Value})
	case *Return:
		exprs([]Expr{n.Value})
	case *Raise:
		exprs([]Expr{n.Exc})
	case *Assert:
		exprs([]Expr{n.Test, n.Msg})
	case *Delete:
		exprs(n.Targets)
	case *If:
		exprs([]Expr{n.Test})
		stmts(n.Body)
		stmts(n.Orelse)
	case *While:
		exprs([]Expr{n.Test})
		stmts(n.Body)
		stmts(n.Orelse)
	case *For:
		exprs([]Expr{n.Target, n.Iter})
		stmts(n.Body)
		stmts(n.Orelse)
	case *Try:
		stmts(n.Body)
		for _, h := range n.Handlers {
			if h != nil {
				add(h)
			}
		}
		stmts(n.Orelse)
		stmts(n.Finalbody)
	case *With:
		exprs(n.Items)
		stmts(n.Body)
	case *Match:
		exprs([]Expr{n.Subject})
		for _, c := range n.Cases {
			if c != nil {
				add(c)
			}
		}
	}
	return out
}
