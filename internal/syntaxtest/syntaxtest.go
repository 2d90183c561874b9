// Package syntaxtest provides terse constructors for building syntax trees
// in tests.
package syntaxtest

import "github.com/l3aro/go-tangent/pkg/syntax"

// Fn builds `def name(params...): body`.
func Fn(name string, params []string, body ...syntax.Stmt) *syntax.FunctionDef {
	args := &syntax.Arguments{}
	for _, p := range params {
		args.Args = append(args.Args, &syntax.Name{ID: p})
	}
	return &syntax.FunctionDef{Name: name, Args: args, Body: body}
}

// Block groups statements for branch and loop bodies.
func Block(stmts ...syntax.Stmt) []syntax.Stmt { return stmts }

func N(id string) *syntax.Name { return &syntax.Name{ID: id} }

func Num(v string) *syntax.Constant { return &syntax.Constant{Value: v} }

func S(v string) *syntax.Str { return &syntax.Str{Value: v} }

// Attr builds value.a.b... for each attribute in turn.
func Attr(value syntax.Expr, attrs ...string) syntax.Expr {
	for _, a := range attrs {
		value = &syntax.Attribute{Value: value, Attr: a}
	}
	return value
}

func Sub(value, slice syntax.Expr) *syntax.Subscript {
	return &syntax.Subscript{Value: value, Slice: slice}
}

// Call builds a call to a dotted function name.
func Call(fn string, args ...syntax.Expr) *syntax.Call {
	var f syntax.Expr
	start := 0
	for i := 0; i <= len(fn); i++ {
		if i == len(fn) || fn[i] == '.' {
			if f == nil {
				f = N(fn[start:i])
			} else {
				f = &syntax.Attribute{Value: f, Attr: fn[start:i]}
			}
			start = i + 1
		}
	}
	return &syntax.Call{Func: f, Args: args}
}

func Bin(l syntax.Expr, op string, r syntax.Expr) *syntax.BinOp {
	return &syntax.BinOp{Left: l, Op: op, Right: r}
}

func Tuple(elts ...syntax.Expr) *syntax.Tuple { return &syntax.Tuple{Elts: elts} }

func Assign(target, value syntax.Expr) *syntax.Assign {
	return &syntax.Assign{Targets: []syntax.Expr{target}, Value: value}
}

func AugAssign(target syntax.Expr, op string, value syntax.Expr) *syntax.AugAssign {
	return &syntax.AugAssign{Target: target, Op: op, Value: value}
}

func Expr(e syntax.Expr) *syntax.ExprStmt { return &syntax.ExprStmt{Value: e} }

func Return(e syntax.Expr) *syntax.Return { return &syntax.Return{Value: e} }

func Pass() *syntax.Pass { return &syntax.Pass{} }

func If(test syntax.Expr, body, orelse []syntax.Stmt) *syntax.If {
	return &syntax.If{Test: test, Body: body, Orelse: orelse}
}

func While(test syntax.Expr, body, orelse []syntax.Stmt) *syntax.While {
	return &syntax.While{Test: test, Body: body, Orelse: orelse}
}

func For(target, iter syntax.Expr, body, orelse []syntax.Stmt) *syntax.For {
	return &syntax.For{Target: target, Iter: iter, Body: body, Orelse: orelse}
}

func Break() *syntax.Break { return &syntax.Break{} }

func Continue() *syntax.Continue { return &syntax.Continue{} }

// Try builds a try statement with one bare handler per handler body.
func Try(body []syntax.Stmt, handlers [][]syntax.Stmt, orelse, final []syntax.Stmt) *syntax.Try {
	t := &syntax.Try{Body: body, Orelse: orelse, Finalbody: final}
	for _, h := range handlers {
		t.Handlers = append(t.Handlers, &syntax.ExceptHandler{Body: h})
	}
	return t
}
