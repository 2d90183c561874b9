package syntax

import "fmt"

// NodeError ties an analysis failure to the node that caused it.
type NodeError struct {
	Err  error
	Node Node
	Msg  string
}

// Errorf returns a NodeError wrapping err for node n.
func Errorf(err error, n Node, format string, args ...any) *NodeError {
	return &NodeError{Err: err, Node: n, Msg: fmt.Sprintf(format, args...)}
}

func (e *NodeError) Error() string {
	loc := Kind(e.Node)
	if e.Node != nil {
		if p := e.Node.Pos(); p.Line > 0 {
			loc = fmt.Sprintf("%d:%d: %s", p.Line, p.Column, loc)
		}
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", loc, e.Err, e.Msg)
}

func (e *NodeError) Unwrap() error { return e.Err }
