package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// lowerer converts tree-sitter nodes into syntax nodes. The source must
// already be known to parse without errors.
type lowerer struct {
	src []byte
}

func (l *lowerer) span(n *sitter.Node) syntax.Span {
	p := n.StartPoint()
	return syntax.Span{
		Start: syntax.Pos{Line: int(p.Row) + 1, Column: int(p.Column) + 1},
		Text:  n.Content(l.src),
	}
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.src)
}

// named returns the named children of n, comments excluded.
func (l *lowerer) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func same(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// block lowers the statements directly under a module or block node.
func (l *lowerer) block(n *sitter.Node) []syntax.Stmt {
	var out []syntax.Stmt
	for _, c := range l.named(n) {
		if s := l.stmt(c); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (l *lowerer) stmt(n *sitter.Node) syntax.Stmt {
	sp := l.span(n)

	switch n.Type() {
	case "function_definition":
		return &syntax.FunctionDef{
			Span: sp,
			Name: l.text(n.ChildByFieldName("name")),
			Args: l.params(n.ChildByFieldName("parameters")),
			Body: l.block(n.ChildByFieldName("body")),
		}

	case "decorated_definition":
		if def := n.ChildByFieldName("definition"); def != nil {
			return l.stmt(def)
		}
		return nil

	case "class_definition":
		var bases []syntax.Expr
		for _, c := range l.named(n.ChildByFieldName("superclasses")) {
			bases = append(bases, l.expr(c))
		}
		return &syntax.ClassDef{
			Span:  sp,
			Name:  l.text(n.ChildByFieldName("name")),
			Bases: bases,
			Body:  l.block(n.ChildByFieldName("body")),
		}

	case "expression_statement":
		children := l.named(n)
		if len(children) == 1 {
			switch c := children[0]; c.Type() {
			case "assignment":
				return l.assign(n, c)
			case "augmented_assignment":
				return &syntax.AugAssign{
					Span:   sp,
					Target: l.expr(c.ChildByFieldName("left")),
					Op:     l.text(c.ChildByFieldName("operator")),
					Value:  l.expr(c.ChildByFieldName("right")),
				}
			}
		}
		return &syntax.ExprStmt{Span: sp, Value: l.exprs(n, children)}

	case "return_statement":
		ret := &syntax.Return{Span: sp}
		if children := l.named(n); len(children) > 0 {
			ret.Value = l.expr(children[0])
		}
		return ret

	case "pass_statement":
		return &syntax.Pass{Span: sp}

	case "break_statement":
		return &syntax.Break{Span: sp}

	case "continue_statement":
		return &syntax.Continue{Span: sp}

	case "raise_statement":
		r := &syntax.Raise{Span: sp}
		if children := l.named(n); len(children) > 0 {
			r.Exc = l.expr(children[0])
		}
		return r

	case "assert_statement":
		a := &syntax.Assert{Span: sp}
		children := l.named(n)
		if len(children) > 0 {
			a.Test = l.expr(children[0])
		}
		if len(children) > 1 {
			a.Msg = l.expr(children[1])
		}
		return a

	case "delete_statement":
		d := &syntax.Delete{Span: sp}
		for _, c := range l.named(n) {
			if t, ok := l.expr(c).(*syntax.Tuple); ok && c.Type() == "expression_list" {
				d.Targets = append(d.Targets, t.Elts...)
				continue
			}
			d.Targets = append(d.Targets, l.expr(c))
		}
		return d

	case "global_statement", "nonlocal_statement":
		g := &syntax.Global{Span: sp}
		for _, c := range l.named(n) {
			g.Names = append(g.Names, l.text(c))
		}
		return g

	case "import_statement", "import_from_statement", "future_import_statement":
		return &syntax.Import{Span: sp, Names: l.imported(n)}

	case "if_statement":
		return l.ifStmt(n)

	case "while_statement":
		return &syntax.While{
			Span:   sp,
			Test:   l.expr(n.ChildByFieldName("condition")),
			Body:   l.block(n.ChildByFieldName("body")),
			Orelse: l.elseBody(n.ChildByFieldName("alternative")),
		}

	case "for_statement":
		return &syntax.For{
			Span:   sp,
			Target: l.expr(n.ChildByFieldName("left")),
			Iter:   l.expr(n.ChildByFieldName("right")),
			Body:   l.block(n.ChildByFieldName("body")),
			Orelse: l.elseBody(n.ChildByFieldName("alternative")),
		}

	case "try_statement":
		return l.tryStmt(n)

	case "with_statement":
		w := &syntax.With{Span: sp, Body: l.block(n.ChildByFieldName("body"))}
		for _, clause := range l.named(n) {
			if clause.Type() != "with_clause" {
				continue
			}
			for _, item := range l.named(clause) {
				if v := item.ChildByFieldName("value"); v != nil {
					w.Items = append(w.Items, l.expr(v))
				}
			}
		}
		return w

	case "match_statement":
		m := &syntax.Match{Span: sp, Subject: l.expr(n.ChildByFieldName("subject"))}
		l.cases(n, m)
		return m
	}

	// Statements without control flow of their own, such as Python 2
	// print or type aliases, keep their sub-expressions.
	return &syntax.ExprStmt{Span: sp, Value: l.other(n)}
}

// assign lowers `a = b = value`, which tree-sitter nests to the right, into
// one multi-target Assign. An annotation without a value lowers to Pass.
func (l *lowerer) assign(stmt, n *sitter.Node) syntax.Stmt {
	sp := l.span(stmt)
	a := &syntax.Assign{Span: sp}
	for cur := n; ; {
		a.Targets = append(a.Targets, l.expr(cur.ChildByFieldName("left")))
		right := cur.ChildByFieldName("right")
		if right == nil {
			if len(a.Targets) == 1 {
				return &syntax.Pass{Span: sp}
			}
			a.Value = a.Targets[len(a.Targets)-1]
			a.Targets = a.Targets[:len(a.Targets)-1]
			return a
		}
		if right.Type() != "assignment" {
			a.Value = l.expr(right)
			return a
		}
		cur = right
	}
}

func (l *lowerer) imported(n *sitter.Node) []string {
	module := n.ChildByFieldName("module_name")
	var names []string
	for _, c := range l.named(n) {
		if same(c, module) {
			continue
		}
		switch c.Type() {
		case "dotted_name":
			names = append(names, l.text(c))
		case "aliased_import":
			names = append(names, l.text(c.ChildByFieldName("alias")))
		}
	}
	return names
}

// ifStmt turns an elif chain into nested Ifs in the else branch.
func (l *lowerer) ifStmt(n *sitter.Node) *syntax.If {
	root := &syntax.If{
		Span: l.span(n),
		Test: l.expr(n.ChildByFieldName("condition")),
		Body: l.block(n.ChildByFieldName("consequence")),
	}
	cur := root
	for _, c := range l.named(n) {
		switch c.Type() {
		case "elif_clause":
			next := &syntax.If{
				Span: l.span(c),
				Test: l.expr(c.ChildByFieldName("condition")),
				Body: l.block(c.ChildByFieldName("consequence")),
			}
			cur.Orelse = []syntax.Stmt{next}
			cur = next
		case "else_clause":
			cur.Orelse = l.elseBody(c)
		}
	}
	return root
}

func (l *lowerer) elseBody(n *sitter.Node) []syntax.Stmt {
	if n == nil {
		return nil
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return l.block(body)
	}
	for _, c := range l.named(n) {
		if c.Type() == "block" {
			return l.block(c)
		}
	}
	return nil
}

func (l *lowerer) tryStmt(n *sitter.Node) *syntax.Try {
	t := &syntax.Try{Span: l.span(n), Body: l.block(n.ChildByFieldName("body"))}
	for _, c := range l.named(n) {
		switch c.Type() {
		case "except_clause", "except_group_clause":
			t.Handlers = append(t.Handlers, l.handler(c))
		case "else_clause":
			t.Orelse = l.elseBody(c)
		case "finally_clause":
			t.Finalbody = l.elseBody(c)
		}
	}
	return t
}

// handler lowers `except E as e:`. Older grammars give the alias as a
// second expression, newer ones wrap both in an as_pattern.
func (l *lowerer) handler(n *sitter.Node) *syntax.ExceptHandler {
	h := &syntax.ExceptHandler{Span: l.span(n)}
	var parts []*sitter.Node
	for _, c := range l.named(n) {
		if c.Type() == "block" {
			h.Body = l.block(c)
			continue
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return h
	}
	if parts[0].Type() == "as_pattern" {
		inner := l.named(parts[0])
		if len(inner) > 0 {
			h.Type = l.expr(inner[0])
		}
		h.Name = l.text(parts[0].ChildByFieldName("alias"))
		return h
	}
	h.Type = l.expr(parts[0])
	if len(parts) > 1 {
		h.Name = l.text(parts[1])
	}
	return h
}

func (l *lowerer) cases(n *sitter.Node, m *syntax.Match) {
	for _, c := range l.named(n) {
		switch c.Type() {
		case "case_clause":
			mc := &syntax.MatchCase{Span: l.span(c)}
			for _, part := range l.named(c) {
				switch part.Type() {
				case "block":
					mc.Body = l.block(part)
				case "case_pattern":
					if mc.Pattern == nil {
						mc.Pattern = l.other(part)
					}
				}
			}
			m.Cases = append(m.Cases, mc)
		case "block":
			l.cases(c, m)
		}
	}
}

func (l *lowerer) params(n *sitter.Node) *syntax.Arguments {
	if n == nil {
		return &syntax.Arguments{}
	}
	args := &syntax.Arguments{Span: l.span(n)}
	kwOnly := false
	add := func(id *sitter.Node) {
		name := l.name(id)
		if kwOnly {
			args.KwOnly = append(args.KwOnly, name)
		} else {
			args.Args = append(args.Args, name)
		}
	}

	for _, c := range l.named(n) {
		switch c.Type() {
		case "identifier":
			add(c)
		case "typed_parameter":
			inner := l.named(c)
			if len(inner) == 0 {
				continue
			}
			switch inner[0].Type() {
			case "list_splat_pattern":
				args.Vararg = l.splatName(inner[0])
				kwOnly = true
			case "dictionary_splat_pattern":
				args.Kwarg = l.splatName(inner[0])
			default:
				add(inner[0])
			}
		case "default_parameter", "typed_default_parameter":
			add(c.ChildByFieldName("name"))
			if v := c.ChildByFieldName("value"); v != nil {
				args.Defaults = append(args.Defaults, l.expr(v))
			}
		case "list_splat_pattern":
			args.Vararg = l.splatName(c)
			kwOnly = true
		case "dictionary_splat_pattern":
			args.Kwarg = l.splatName(c)
		case "keyword_separator":
			kwOnly = true
		}
	}
	return args
}

func (l *lowerer) name(n *sitter.Node) *syntax.Name {
	return &syntax.Name{Span: l.span(n), ID: l.text(n)}
}

func (l *lowerer) splatName(n *sitter.Node) *syntax.Name {
	inner := l.named(n)
	if len(inner) == 0 {
		return nil
	}
	return l.name(inner[0])
}

// exprs lowers a comma-separated run of expressions, wrapping more than one
// in a Tuple spanning parent.
func (l *lowerer) exprs(parent *sitter.Node, ns []*sitter.Node) syntax.Expr {
	if len(ns) == 1 {
		return l.expr(ns[0])
	}
	t := &syntax.Tuple{Span: l.span(parent)}
	for _, c := range ns {
		t.Elts = append(t.Elts, l.expr(c))
	}
	return t
}

func (l *lowerer) expr(n *sitter.Node) syntax.Expr {
	if n == nil {
		return nil
	}
	sp := l.span(n)

	switch n.Type() {
	case "identifier":
		return &syntax.Name{Span: sp, ID: l.text(n)}

	case "attribute":
		return &syntax.Attribute{
			Span:  sp,
			Value: l.expr(n.ChildByFieldName("object")),
			Attr:  l.text(n.ChildByFieldName("attribute")),
		}

	case "subscript":
		value := n.ChildByFieldName("value")
		var idx []*sitter.Node
		for _, c := range l.named(n) {
			if !same(c, value) {
				idx = append(idx, c)
			}
		}
		s := &syntax.Subscript{Span: sp, Value: l.expr(value)}
		if len(idx) > 0 {
			s.Slice = l.exprs(n, idx)
		}
		return s

	case "call":
		return l.call(n)

	case "binary_operator":
		return &syntax.BinOp{
			Span:  sp,
			Left:  l.expr(n.ChildByFieldName("left")),
			Op:    l.text(n.ChildByFieldName("operator")),
			Right: l.expr(n.ChildByFieldName("right")),
		}

	case "unary_operator":
		return &syntax.UnaryOp{
			Span:    sp,
			Op:      l.text(n.ChildByFieldName("operator")),
			Operand: l.expr(n.ChildByFieldName("argument")),
		}

	case "not_operator":
		return &syntax.UnaryOp{Span: sp, Op: "not", Operand: l.expr(n.ChildByFieldName("argument"))}

	case "boolean_operator":
		return &syntax.BoolOp{
			Span:   sp,
			Op:     l.text(n.ChildByFieldName("operator")),
			Values: []syntax.Expr{l.expr(n.ChildByFieldName("left")), l.expr(n.ChildByFieldName("right"))},
		}

	case "comparison_operator":
		return l.compare(n)

	case "conditional_expression":
		parts := l.named(n)
		if len(parts) != 3 {
			return l.other(n)
		}
		return &syntax.IfExp{Span: sp, Body: l.expr(parts[0]), Test: l.expr(parts[1]), Orelse: l.expr(parts[2])}

	case "integer", "float", "true", "false", "none", "ellipsis":
		return &syntax.Constant{Span: sp, Value: l.text(n)}

	case "string", "concatenated_string":
		if hasInterpolation(n) {
			return l.other(n)
		}
		return &syntax.Str{Span: sp, Value: l.stringValue(n)}

	case "tuple", "expression_list", "pattern_list", "tuple_pattern":
		t := &syntax.Tuple{Span: sp}
		for _, c := range l.named(n) {
			t.Elts = append(t.Elts, l.expr(c))
		}
		return t

	case "list", "list_pattern":
		list := &syntax.List{Span: sp}
		for _, c := range l.named(n) {
			list.Elts = append(list.Elts, l.expr(c))
		}
		return list

	case "parenthesized_expression":
		if inner := l.named(n); len(inner) == 1 {
			return l.expr(inner[0])
		}
		return l.other(n)

	case "list_splat", "list_splat_pattern":
		if inner := l.named(n); len(inner) == 1 {
			return &syntax.Starred{Span: sp, Value: l.expr(inner[0])}
		}
		return l.other(n)

	case "slice":
		return l.slice(n)
	}

	return l.other(n)
}

func (l *lowerer) call(n *sitter.Node) *syntax.Call {
	c := &syntax.Call{Span: l.span(n), Func: l.expr(n.ChildByFieldName("function"))}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return c
	}
	if args.Type() == "generator_expression" {
		c.Args = append(c.Args, l.expr(args))
		return c
	}
	for _, a := range l.named(args) {
		switch a.Type() {
		case "keyword_argument":
			c.Keywords = append(c.Keywords, &syntax.Keyword{
				Span:  l.span(a),
				Arg:   l.text(a.ChildByFieldName("name")),
				Value: l.expr(a.ChildByFieldName("value")),
			})
		case "dictionary_splat":
			var v syntax.Expr
			if inner := l.named(a); len(inner) > 0 {
				v = l.expr(inner[0])
			}
			c.Keywords = append(c.Keywords, &syntax.Keyword{Span: l.span(a), Value: v})
		default:
			c.Args = append(c.Args, l.expr(a))
		}
	}
	return c
}

// compare splits operands from operator tokens; multi-word operators such
// as "not in" arrive as a single anonymous node.
func (l *lowerer) compare(n *sitter.Node) *syntax.Compare {
	c := &syntax.Compare{Span: l.span(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		if !child.IsNamed() {
			c.Ops = append(c.Ops, strings.Join(strings.Fields(l.text(child)), " "))
			continue
		}
		if c.Left == nil {
			c.Left = l.expr(child)
		} else {
			c.Comparators = append(c.Comparators, l.expr(child))
		}
	}
	return c
}

// slice assigns each bound to lower, upper or step by the colons before it.
func (l *lowerer) slice(n *sitter.Node) *syntax.Slice {
	s := &syntax.Slice{Span: l.span(n)}
	colons := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if l.text(child) == ":" {
				colons++
			}
			continue
		}
		if child.Type() == "comment" {
			continue
		}
		switch colons {
		case 0:
			s.Lower = l.expr(child)
		case 1:
			s.Upper = l.expr(child)
		default:
			s.Step = l.expr(child)
		}
	}
	return s
}

// other keeps an expression the analyses only need to traverse.
func (l *lowerer) other(n *sitter.Node) *syntax.Other {
	o := &syntax.Other{Span: l.span(n), Kind: n.Type()}
	for _, c := range l.named(n) {
		switch c.Type() {
		case "type", "string_start", "string_content", "string_end", "escape_sequence":
			continue
		case "interpolation":
			for _, inner := range l.named(c) {
				if inner.Type() == "format_specifier" || inner.Type() == "type_conversion" {
					continue
				}
				o.Elts = append(o.Elts, l.expr(inner))
			}
			continue
		}
		o.Elts = append(o.Elts, l.expr(c))
	}
	return o
}

func hasInterpolation(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		if c.Type() == "interpolation" || hasInterpolation(c) {
			return true
		}
	}
	return false
}

// stringValue returns the literal text of a string without prefix or
// quotes. Escape sequences are kept as written.
func (l *lowerer) stringValue(n *sitter.Node) string {
	if n.Type() == "concatenated_string" {
		var sb strings.Builder
		for _, c := range l.named(n) {
			sb.WriteString(l.stringValue(c))
		}
		return sb.String()
	}
	return unquote(l.text(n))
}

func unquote(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
