// Package syntax defines the statement/expression tree analyzed by the
// control-flow and data-flow packages.
//
// The tree is a closed sum type: Stmt and Expr are sealed interfaces and every
// consumer matches the concrete node types exhaustively. Node identity is
// pointer identity, so nodes can key side tables such as anno.Store.
package syntax

// Pos is a 1-based source position.
type Pos struct {
	Line   int `json:"line" yaml:"line" msgpack:"line"`
	Column int `json:"column" yaml:"column" msgpack:"column"`
}

// Span records where a node came from. Nodes synthesized by the analyses
// have a zero Span.
type Span struct {
	Start Pos
	Text  string
}

// Pos returns the start position of the node.
func (s Span) Pos() Pos { return s.Start }

// Source returns the source text of the node, if known.
func (s Span) Source() string { return s.Text }

func (Span) node() {}

// Node is any element of the tree.
type Node interface {
	Pos() Pos
	Source() string
	node()
}

// Stmt is a statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// Module is a parsed source file.
type Module struct {
	Span
	Body []Stmt
}

// Arguments is the parameter list of a function definition.
type Arguments struct {
	Span
	Args     []*Name
	Vararg   *Name
	KwOnly   []*Name
	Kwarg    *Name
	Defaults []Expr
}

// All returns every parameter name node in declaration order.
func (a *Arguments) All() []*Name {
	if a == nil {
		return nil
	}
	all := make([]*Name, 0, len(a.Args)+len(a.KwOnly)+2)
	all = append(all, a.Args...)
	if a.Vararg != nil {
		all = append(all, a.Vararg)
	}
	all = append(all, a.KwOnly...)
	if a.Kwarg != nil {
		all = append(all, a.Kwarg)
	}
	return all
}

// ExceptHandler is one `except` clause of a Try.
type ExceptHandler struct {
	Span
	Type Expr
	Name string
	Body []Stmt
}

// Keyword is a keyword argument of a call.
type Keyword struct {
	Span
	Arg   string
	Value Expr
}

// MatchCase is one `case` arm of a Match.
type MatchCase struct {
	Span
	Pattern Expr
	Body    []Stmt
}

// Statements.
type (
	FunctionDef struct {
		Span
		Name string
		Args *Arguments
		Body []Stmt
	}

	ClassDef struct {
		Span
		Name  string
		Bases []Expr
		Body  []Stmt
	}

	// Assign is `t1 = t2 = value`.
	Assign struct {
		Span
		Targets []Expr
		Value   Expr
	}

	AugAssign struct {
		Span
		Target Expr
		Op     string
		Value  Expr
	}

	ExprStmt struct {
		Span
		Value Expr
	}

	Return struct {
		Span
		Value Expr
	}

	Pass struct {
		Span
	}

	Raise struct {
		Span
		Exc Expr
	}

	Assert struct {
		Span
		Test Expr
		Msg  Expr
	}

	Delete struct {
		Span
		Targets []Expr
	}

	Global struct {
		Span
		Names []string
	}

	Import struct {
		Span
		Names []string
	}

	If struct {
		Span
		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	While struct {
		Span
		Test   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	For struct {
		Span
		Target Expr
		Iter   Expr
		Body   []Stmt
		Orelse []Stmt
	}

	Break struct {
		Span
	}

	Continue struct {
		Span
	}

	Try struct {
		Span
		Body      []Stmt
		Handlers  []*ExceptHandler
		Orelse    []Stmt
		Finalbody []Stmt
	}

	With struct {
		Span
		Items []Expr
		Body  []Stmt
	}

	Match struct {
		Span
		Subject Expr
		Cases   []*MatchCase
	}
)

func (*FunctionDef) stmtNode() {}
func (*ClassDef) stmtNode()    {}
func (*Assign) stmtNode()      {}
func (*AugAssign) stmtNode()   {}
func (*ExprStmt) stmtNode()    {}
func (*Return) stmtNode()      {}
func (*Pass) stmtNode()        {}
func (*Raise) stmtNode()       {}
func (*Assert) stmtNode()      {}
func (*Delete) stmtNode()      {}
func (*Global) stmtNode()      {}
func (*Import) stmtNode()      {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*For) stmtNode()         {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Try) stmtNode()         {}
func (*With) stmtNode()        {}
func (*Match) stmtNode()       {}

// Expressions.
type (
	// Name is a bare identifier. Origin is set only on names minted by the
	// gradient factory.
	Name struct {
		Span
		ID     string
		Origin *Origin
	}

	Attribute struct {
		Span
		Value Expr
		Attr  string
	}

	Subscript struct {
		Span
		Value Expr
		Slice Expr
	}

	Call struct {
		Span
		Func     Expr
		Args     []Expr
		Keywords []*Keyword
	}

	BinOp struct {
		Span
		Left  Expr
		Op    string
		Right Expr
	}

	UnaryOp struct {
		Span
		Op      string
		Operand Expr
	}

	BoolOp struct {
		Span
		Op     string
		Values []Expr
	}

	Compare struct {
		Span
		Left        Expr
		Ops         []string
		Comparators []Expr
	}

	IfExp struct {
		Span
		Test   Expr
		Body   Expr
		Orelse Expr
	}

	// Constant is a number, True, False, None or Ellipsis literal.
	Constant struct {
		Span
		Value string
	}

	// Str is a string literal. Origin is set when the gradient factory
	// derives a string reference.
	Str struct {
		Span
		Value  string
		Origin *Origin
	}

	Tuple struct {
		Span
		Elts []Expr
	}

	List struct {
		Span
		Elts []Expr
	}

	Starred struct {
		Span
		Value Expr
	}

	Slice struct {
		Span
		Lower Expr
		Upper Expr
		Step  Expr
	}

	// Other holds expression shapes the analyses only traverse, such as
	// lambdas, comprehensions and dict displays.
	Other struct {
		Span
		Kind string
		Elts []Expr
	}
)

func (*Name) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Subscript) exprNode() {}
func (*Call) exprNode()      {}
func (*BinOp) exprNode()     {}
func (*UnaryOp) exprNode()   {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*IfExp) exprNode()     {}
func (*Constant) exprNode()  {}
func (*Str) exprNode()       {}
func (*Tuple) exprNode()     {}
func (*List) exprNode()      {}
func (*Starred) exprNode()   {}
func (*Slice) exprNode()     {}
func (*Other) exprNode()     {}
