// Package cfg builds statement-level control flow graphs for function
// definitions.
//
// Every statement is one node. Conditionals and loops are represented by a
// single test/header node which branches or cycles. Nodes live in an arena
// owned by the CFG and edges are arena indices, so cyclic graphs need no
// pointer juggling.
package cfg

import (
	"errors"

	"golang.org/x/tools/container/intsets"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

var (
	// ErrInvalidInput is returned when Build is given anything but a
	// function definition.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedConstruct is returned for statements the builder has no
	// control-flow rule for.
	ErrUnsupportedConstruct = errors.New("unsupported construct")
)

// NodeID indexes a node in the CFG arena.
type NodeID int

// Node is a CFG node. Value is the statement, loop header, branch test or
// parameter list the node stands for; it is nil only for the exit node.
type Node struct {
	ID    NodeID
	Type  BlockType
	Value syntax.Node

	next intsets.Sparse
	prev intsets.Sparse
}

// Next returns the successors of n in ascending ID order.
func (n *Node) Next() []NodeID { return ids(&n.next) }

// Prev returns the predecessors of n in ascending ID order.
func (n *Node) Prev() []NodeID { return ids(&n.prev) }

// HasNext reports whether id is a successor of n.
func (n *Node) HasNext(id NodeID) bool { return n.next.Has(int(id)) }

// HasPrev reports whether id is a predecessor of n.
func (n *Node) HasPrev(id NodeID) bool { return n.prev.Has(int(id)) }

func ids(s *intsets.Sparse) []NodeID {
	raw := s.AppendTo(nil)
	out := make([]NodeID, len(raw))
	for i, v := range raw {
		out[i] = NodeID(v)
	}
	return out
}

// CFG is the control flow graph of one function. Every node is reachable
// from Entry, and Exit is the only node without a value.
type CFG struct {
	Func  *syntax.FunctionDef
	Nodes []*Node
	Entry NodeID
	Exit  NodeID

	index map[syntax.Node]NodeID
}

// Node returns the node with the given ID.
func (g *CFG) Node(id NodeID) *Node { return g.Nodes[id] }

// EntryNode returns the node wrapping the parameter list.
func (g *CFG) EntryNode() *Node { return g.Nodes[g.Entry] }

// ExitNode returns the sentinel exit node.
func (g *CFG) ExitNode() *Node { return g.Nodes[g.Exit] }

// Lookup returns the node whose value is v.
func (g *CFG) Lookup(v syntax.Node) (*Node, bool) {
	id, ok := g.index[v]
	if !ok {
		return nil, false
	}
	return g.Nodes[id], true
}

// Reachable reports whether there is a path of at least one edge from one
// node to another. A node is reachable from itself only through a cycle.
func (g *CFG) Reachable(from, to NodeID) bool {
	var seen intsets.Sparse
	stack := g.Nodes[from].Next()
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == to {
			return true
		}
		if !seen.Insert(int(id)) {
			continue
		}
		stack = append(stack, g.Nodes[id].Next()...)
	}
	return false
}

// Edges returns the number of edges in the graph.
func (g *CFG) Edges() int {
	total := 0
	for _, n := range g.Nodes {
		total += n.next.Len()
	}
	return total
}
