package syntax

import (
	"strconv"
	"strings"
)

// Format renders a node as single-line Python-like text. Source text is
// preferred when the node carries it.
func Format(n Node) string {
	if n == nil {
		return ""
	}
	if src := n.Source(); src != "" {
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			src = strings.TrimSpace(src[:i])
		}
		return src
	}

	var sb strings.Builder
	formatNode(&sb, n)
	return sb.String()
}

func formatNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case Expr:
		formatExpr(sb, n)
	case *Arguments:
		for i, a := range n.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.ID)
		}
	case *FunctionDef:
		sb.WriteString("def " + n.Name + "(")
		formatNode(sb, n.Args)
		sb.WriteString(")")
	case *ClassDef:
		sb.WriteString("class " + n.Name)
	case *Assign:
		for _, t := range n.Targets {
			formatExpr(sb, t)
			sb.WriteString(" = ")
		}
		formatExpr(sb, n.Value)
	case *AugAssign:
		formatExpr(sb, n.Target)
		sb.WriteString(" " + n.Op + " ")
		formatExpr(sb, n.Value)
	case *ExprStmt:
		formatExpr(sb, n.Value)
	case *Return:
		sb.WriteString("return")
		if n.Value != nil {
			sb.WriteString(" ")
			formatExpr(sb, n.Value)
		}
	case *Pass:
		sb.WriteString("pass")
	case *Raise:
		sb.WriteString("raise")
		if n.Exc != nil {
			sb.WriteString(" ")
			formatExpr(sb, n.Exc)
		}
	case *Assert:
		sb.WriteString("assert ")
		formatExpr(sb, n.Test)
	case *Delete:
		sb.WriteString("del ")
		formatList(sb, n.Targets)
	case *Global:
		sb.WriteString("global " + strings.Join(n.Names, ", "))
	case *Import:
		sb.WriteString("import " + strings.Join(n.Names, ", "))
	case *If:
		sb.WriteString("if ")
		formatExpr(sb, n.Test)
	case *While:
		sb.WriteString("while ")
		formatExpr(sb, n.Test)
	case *For:
		sb.WriteString("for ")
		formatExpr(sb, n.Target)
		sb.WriteString(" in ")
		formatExpr(sb, n.Iter)
	case *Break:
		sb.WriteString("break")
	case *Continue:
		sb.WriteString("continue")
	case *Try:
		sb.WriteString("try")
	case *With:
		sb.WriteString("with")
	case *Match:
		sb.WriteString("match ")
		formatExpr(sb, n.Subject)
	default:
		sb.WriteString(Kind(n))
	}
}

func formatExpr(sb *strings.Builder, e Expr) {
	switch e := e.(type) {
	case nil:
	case *Name:
		sb.WriteString(e.ID)
	case *Attribute:
		formatExpr(sb, e.Value)
		sb.WriteString("." + e.Attr)
	case *Subscript:
		formatExpr(sb, e.Value)
		sb.WriteString("[")
		formatExpr(sb, e.Slice)
		sb.WriteString("]")
	case *Call:
		formatExpr(sb, e.Func)
		sb.WriteString("(")
		formatList(sb, e.Args)
		for i, kw := range e.Keywords {
			if i > 0 || len(e.Args) > 0 {
				sb.WriteString(", ")
			}
			if kw.Arg != "" {
				sb.WriteString(kw.Arg + "=")
			}
			formatExpr(sb, kw.Value)
		}
		sb.WriteString(")")
	case *BinOp:
		formatExpr(sb, e.Left)
		sb.WriteString(" " + e.Op + " ")
		formatExpr(sb, e.Right)
	case *UnaryOp:
		sb.WriteString(e.Op)
		if e.Op == "not" {
			sb.WriteString(" ")
		}
		formatExpr(sb, e.Operand)
	case *BoolOp:
		for i, v := range e.Values {
			if i > 0 {
				sb.WriteString(" " + e.Op + " ")
			}
			formatExpr(sb, v)
		}
	case *Compare:
		formatExpr(sb, e.Left)
		for i, op := range e.Ops {
			sb.WriteString(" " + op + " ")
			if i < len(e.Comparators) {
				formatExpr(sb, e.Comparators[i])
			}
		}
	case *IfExp:
		formatExpr(sb, e.Body)
		sb.WriteString(" if ")
		formatExpr(sb, e.Test)
		sb.WriteString(" else ")
		formatExpr(sb, e.Orelse)
	case *Constant:
		sb.WriteString(e.Value)
	case *Str:
		sb.WriteString(strconv.Quote(e.Value))
	case *Tuple:
		sb.WriteString("(")
		formatList(sb, e.Elts)
		if len(e.Elts) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	case *List:
		sb.WriteString("[")
		formatList(sb, e.Elts)
		sb.WriteString("]")
	case *Starred:
		sb.WriteString("*")
		formatExpr(sb, e.Value)
	case *Slice:
		formatExpr(sb, e.Lower)
		sb.WriteString(":")
		formatExpr(sb, e.Upper)
		if e.Step != nil {
			sb.WriteString(":")
			formatExpr(sb, e.Step)
		}
	case *Other:
		sb.WriteString("<" + e.Kind + ">")
	}
}

func formatList(sb *strings.Builder, es []Expr) {
	for i, e := range es {
		if i > 0 {
			sb.WriteString(", ")
		}
		formatExpr(sb, e)
	}
}
