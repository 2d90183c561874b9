package cfg

import (
	"fmt"
	"strings"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// BlockType represents the role of a CFG node.
type BlockType string

const (
	BlockTypeEntry      BlockType = "entry"       // Parameter list
	BlockTypeBranch     BlockType = "branch"      // If test
	BlockTypeLoopHeader BlockType = "loop_header" // While test or for statement
	BlockTypePlain      BlockType = "plain"       // Regular statement
	BlockTypeExit       BlockType = "exit"        // Sentinel exit
)

// EdgeType represents the kind of a CFG edge.
type EdgeType string

const (
	EdgeTypeUnconditional EdgeType = "unconditional" // Straight-line flow
	EdgeTypeBranch        EdgeType = "branch"        // Out of a branch or loop header
	EdgeTypeBackEdge      EdgeType = "back_edge"     // To a node at or before the source
)

// CFGBlock is the serializable view of one CFG node.
type CFGBlock struct {
	ID           string    `json:"id" yaml:"id" msgpack:"id"`
	Type         BlockType `json:"type" yaml:"type" msgpack:"type"`
	StartLine    int       `json:"start_line" yaml:"start_line" msgpack:"start_line"`
	Statements   []string  `json:"statements" yaml:"statements" msgpack:"statements"`
	Predecessors []string  `json:"predecessors" yaml:"predecessors" msgpack:"predecessors"`
}

// CFGEdge is a directed edge between two blocks.
type CFGEdge struct {
	SourceID  string   `json:"source_id" yaml:"source_id" msgpack:"source_id"`
	TargetID  string   `json:"target_id" yaml:"target_id" msgpack:"target_id"`
	EdgeType  EdgeType `json:"edge_type" yaml:"edge_type" msgpack:"edge_type"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty" msgpack:"condition,omitempty"`
}

// CFGInfo is the serializable view of a whole CFG.
type CFGInfo struct {
	FunctionName         string              `json:"function_name" yaml:"function_name" msgpack:"function_name"`
	Blocks               map[string]CFGBlock `json:"blocks" yaml:"blocks" msgpack:"blocks"`
	Order                []string            `json:"order" yaml:"order" msgpack:"order"`
	Edges                []CFGEdge           `json:"edges" yaml:"edges" msgpack:"edges"`
	EntryBlockID         string              `json:"entry_block_id" yaml:"entry_block_id" msgpack:"entry_block_id"`
	ExitBlockIDs         []string            `json:"exit_block_ids" yaml:"exit_block_ids" msgpack:"exit_block_ids"`
	CyclomaticComplexity int                 `json:"cyclomatic_complexity" yaml:"cyclomatic_complexity" msgpack:"cyclomatic_complexity"`
}

// BlockID returns the display ID of a node.
func BlockID(id NodeID) string { return fmt.Sprintf("n%d", id) }

// Info renders g for display and serialization. Cyclomatic complexity is
// E - N + 2.
func (g *CFG) Info() *CFGInfo {
	info := &CFGInfo{
		Blocks:       make(map[string]CFGBlock, len(g.Nodes)),
		EntryBlockID: BlockID(g.Entry),
		ExitBlockIDs: []string{BlockID(g.Exit)},
	}
	if g.Func != nil {
		info.FunctionName = g.Func.Name
	}

	for _, n := range g.Nodes {
		id := BlockID(n.ID)
		block := CFGBlock{
			ID:           id,
			Type:         n.Type,
			Statements:   []string{label(n)},
			Predecessors: []string{},
		}
		if n.Value != nil {
			block.StartLine = n.Value.Pos().Line
		}
		for _, p := range n.Prev() {
			block.Predecessors = append(block.Predecessors, BlockID(p))
		}
		info.Blocks[id] = block
		info.Order = append(info.Order, id)

		for _, succ := range n.Next() {
			edge := CFGEdge{SourceID: id, TargetID: BlockID(succ), EdgeType: EdgeTypeUnconditional}
			switch {
			case succ <= n.ID:
				edge.EdgeType = EdgeTypeBackEdge
			case n.Type == BlockTypeBranch || n.Type == BlockTypeLoopHeader:
				edge.EdgeType = EdgeTypeBranch
				edge.Condition = label(n)
			}
			info.Edges = append(info.Edges, edge)
		}
	}

	info.CyclomaticComplexity = len(info.Edges) - len(g.Nodes) + 2
	return info
}

func label(n *Node) string {
	switch v := n.Value.(type) {
	case nil:
		return "exit"
	case *syntax.Arguments:
		names := make([]string, 0, len(v.All()))
		for _, a := range v.All() {
			names = append(names, a.ID)
		}
		return "params(" + strings.Join(names, ", ") + ")"
	case *syntax.For:
		return "for " + syntax.Format(v.Target) + " in " + syntax.Format(v.Iter)
	default:
		return syntax.Format(v)
	}
}
