package cfg

import (
	"fmt"
	"slices"

	"golang.org/x/tools/container/intsets"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// builder tracks the frontier while statements are visited: head holds the
// nodes still waiting for a successor edge.
type builder struct {
	nodes     []*Node
	head      []NodeID
	breaks    [][]NodeID
	continues [][]NodeID
}

// Build constructs the CFG of a function definition. The entry node wraps
// the parameter list and a single valueless exit node follows the last
// statements. On error no partial graph is returned.
func Build(fn syntax.Node) (*CFG, error) {
	def, ok := fn.(*syntax.FunctionDef)
	if !ok {
		return nil, syntax.Errorf(ErrInvalidInput, fn, "got %s, want a function definition", syntax.Kind(fn))
	}
	if def == nil {
		return nil, fmt.Errorf("%w: nil function definition", ErrInvalidInput)
	}

	args := def.Args
	if args == nil {
		args = &syntax.Arguments{Span: syntax.Span{Start: def.Pos()}}
	}

	b := &builder{}
	entry := b.newNode(args, BlockTypeEntry)
	b.head = []NodeID{entry}

	if err := b.visitStatements(def.Body); err != nil {
		return nil, fmt.Errorf("building CFG for %s: %w", def.Name, err)
	}

	exit := b.newNode(nil, BlockTypeExit)
	b.setHead(exit)

	return b.finish(def, entry, exit), nil
}

func (b *builder) newNode(v syntax.Node, typ BlockType) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, &Node{ID: id, Type: typ, Value: v})
	return id
}

// setHead links every frontier node to id and makes id the only frontier
// node.
func (b *builder) setHead(id NodeID) {
	for _, h := range b.head {
		b.nodes[h].next.Insert(int(id))
	}
	b.head = []NodeID{id}
}

func (b *builder) visitStatements(stmts []syntax.Stmt) error {
	for _, s := range stmts {
		if err := b.visit(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) visit(s syntax.Stmt) error {
	switch s := s.(type) {
	case *syntax.Assign, *syntax.AugAssign, *syntax.ExprStmt, *syntax.Return,
		*syntax.Pass, *syntax.Raise, *syntax.Assert, *syntax.Delete,
		*syntax.Global, *syntax.Import, *syntax.FunctionDef, *syntax.ClassDef:
		b.setHead(b.newNode(s, BlockTypePlain))
		return nil
	case *syntax.If:
		return b.visitIf(s)
	case *syntax.While:
		return b.visitLoop(s.Test, s.Body, s.Orelse)
	case *syntax.For:
		return b.visitLoop(s, s.Body, s.Orelse)
	case *syntax.Break:
		if len(b.breaks) == 0 {
			return syntax.Errorf(ErrUnsupportedConstruct, s, "break outside loop")
		}
		top := len(b.breaks) - 1
		b.breaks[top] = append(b.breaks[top], b.head...)
		b.head = nil
		return nil
	case *syntax.Continue:
		if len(b.continues) == 0 {
			return syntax.Errorf(ErrUnsupportedConstruct, s, "continue outside loop")
		}
		top := len(b.continues) - 1
		b.continues[top] = append(b.continues[top], b.head...)
		b.head = nil
		return nil
	case *syntax.Try:
		return b.visitTry(s)
	case *syntax.With, *syntax.Match:
		return syntax.Errorf(ErrUnsupportedConstruct, s, "no control flow rule")
	default:
		return syntax.Errorf(ErrUnsupportedConstruct, s, "unknown statement")
	}
}

func (b *builder) visitIf(s *syntax.If) error {
	test := b.newNode(s.Test, BlockTypeBranch)
	b.setHead(test)

	if err := b.visitStatements(s.Body); err != nil {
		return err
	}
	bodyExit := slices.Clone(b.head)

	b.head = []NodeID{test}
	if err := b.visitStatements(s.Orelse); err != nil {
		return err
	}
	b.head = append(b.head, bodyExit...)
	return nil
}

// visitLoop handles both loop shapes. The header is the test expression of
// a while loop and the statement itself for a for loop. Continue edges go
// back to the header; the else clause runs from the header and break edges
// skip it.
func (b *builder) visitLoop(header syntax.Node, body, orelse []syntax.Stmt) error {
	h := b.newNode(header, BlockTypeLoopHeader)
	b.setHead(h)

	b.breaks = append(b.breaks, nil)
	b.continues = append(b.continues, nil)

	err := b.visitStatements(body)

	top := len(b.breaks) - 1
	breaks, continues := b.breaks[top], b.continues[top]
	b.breaks, b.continues = b.breaks[:top], b.continues[:top]
	if err != nil {
		return err
	}

	b.head = append(b.head, continues...)
	b.setHead(h)

	// break and continue inside the else clause belong to the enclosing
	// loop, so this level is already popped.
	if err := b.visitStatements(orelse); err != nil {
		return err
	}
	b.head = append(b.head, breaks...)
	return nil
}

// visitTry treats handlers as alternatives that all start from the end of
// the body. The else clause continues the body, and finally runs after
// whichever path was taken.
func (b *builder) visitTry(s *syntax.Try) error {
	if err := b.visitStatements(s.Body); err != nil {
		return err
	}
	body := slices.Clone(b.head)

	var handlers []NodeID
	for _, h := range s.Handlers {
		b.head = slices.Clone(body)
		if err := b.visitStatements(h.Body); err != nil {
			return err
		}
		handlers = append(handlers, b.head...)
	}

	b.head = body
	if err := b.visitStatements(s.Orelse); err != nil {
		return err
	}
	b.head = append(handlers, b.head...)

	return b.visitStatements(s.Finalbody)
}

// finish drops nodes that no path from the entry reaches (statements after
// a break or continue), renumbers the arena and derives predecessor sets.
func (b *builder) finish(def *syntax.FunctionDef, entry, exit NodeID) *CFG {
	var seen intsets.Sparse
	seen.Insert(int(entry))
	seen.Insert(int(exit))
	stack := []NodeID{entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range b.nodes[id].Next() {
			if seen.Insert(int(succ)) {
				stack = append(stack, succ)
			}
		}
	}

	g := &CFG{Func: def, index: make(map[syntax.Node]NodeID)}
	remap := make([]NodeID, len(b.nodes))
	for _, n := range b.nodes {
		if !seen.Has(int(n.ID)) {
			continue
		}
		remap[n.ID] = NodeID(len(g.Nodes))
		g.Nodes = append(g.Nodes, n)
	}
	for _, n := range g.Nodes {
		succs := n.Next()
		n.next.Clear()
		for _, succ := range succs {
			if seen.Has(int(succ)) {
				n.next.Insert(int(remap[succ]))
			}
		}
		n.ID = remap[n.ID]
		if n.Value != nil {
			g.index[n.Value] = n.ID
		}
	}
	g.Entry, g.Exit = remap[entry], remap[exit]

	backlink(g)
	return g
}

// backlink makes every prev set the exact transpose of the next sets. Each
// reachable node is expanded once, so cycles are harmless.
func backlink(g *CFG) {
	var seen intsets.Sparse
	stack := []NodeID{g.Entry}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !seen.Insert(int(id)) {
			continue
		}
		for _, succ := range g.Nodes[id].Next() {
			g.Nodes[succ].prev.Insert(int(id))
			if !seen.Has(int(succ)) {
				stack = append(stack, succ)
			}
		}
	}
}
