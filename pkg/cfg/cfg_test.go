package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/l3aro/go-tangent/internal/syntaxtest"
	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

func build(t *testing.T, fn *syntax.FunctionDef) *cfg.CFG {
	t.Helper()
	g, err := cfg.Build(fn)
	require.NoError(t, err)
	checkInvariants(t, g)
	return g
}

// checkInvariants asserts the structural guarantees every built graph has.
func checkInvariants(t *testing.T, g *cfg.CFG) {
	t.Helper()

	nilValues := 0
	for i, n := range g.Nodes {
		assert.Equal(t, cfg.NodeID(i), n.ID)
		if n.Value == nil {
			nilValues++
		}
		if n.ID != g.Entry {
			assert.True(t, g.Reachable(g.Entry, n.ID), "node %d unreachable", n.ID)
		}
		for _, s := range n.Next() {
			assert.True(t, g.Node(s).HasPrev(n.ID), "edge %d->%d missing backlink", n.ID, s)
		}
		for _, p := range n.Prev() {
			assert.True(t, g.Node(p).HasNext(n.ID), "backlink %d<-%d has no edge", n.ID, p)
		}
	}
	assert.Equal(t, 1, nilValues)
	assert.Nil(t, g.ExitNode().Value)
	assert.Empty(t, g.EntryNode().Prev())
	assert.Empty(t, g.ExitNode().Next())
}

func node(t *testing.T, g *cfg.CFG, v syntax.Node) *cfg.Node {
	t.Helper()
	n, ok := g.Lookup(v)
	require.True(t, ok, "no node for %s", syntax.Format(v))
	return n
}

func TestBuild_StraightLine(t *testing.T) {
	a := Assign(N("a"), N("x"))
	b := Assign(N("b"), N("a"))
	ret := Return(N("b"))
	fn := Fn("f", []string{"x"}, a, b, ret)

	g := build(t, fn)

	// N statements plus entry and exit.
	require.Len(t, g.Nodes, 5)
	assert.Same(t, fn.Args, g.EntryNode().Value)

	prev := g.EntryNode()
	for _, stmt := range []syntax.Stmt{a, b, ret} {
		n := node(t, g, stmt)
		assert.Equal(t, []cfg.NodeID{prev.ID}, n.Prev())
		assert.Len(t, n.Next(), 1)
		assert.Equal(t, cfg.BlockTypePlain, n.Type)
		prev = n
	}
	assert.Equal(t, []cfg.NodeID{g.Exit}, prev.Next())
}

func TestBuild_IfElse(t *testing.T) {
	test := N("x")
	then := Assign(N("y"), Num("1"))
	els := Assign(N("y"), Num("2"))
	ret := Return(N("y"))
	g := build(t, Fn("f", []string{"x"}, If(test, Block(then), Block(els)), ret))

	tn := node(t, g, test)
	assert.Equal(t, cfg.BlockTypeBranch, tn.Type)
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, then).ID, node(t, g, els).ID}, tn.Next())

	rn := node(t, g, ret)
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, then).ID, node(t, g, els).ID}, rn.Prev())
}

func TestBuild_IfWithoutElse(t *testing.T) {
	test := N("x")
	then := Assign(N("y"), Num("1"))
	ret := Return(N("y"))
	g := build(t, Fn("f", []string{"x"}, If(test, Block(then), nil), ret))

	rn := node(t, g, ret)
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, test).ID, node(t, g, then).ID}, rn.Prev())
}

func TestBuild_While(t *testing.T) {
	test := N("x")
	dec := Assign(N("x"), Bin(N("x"), "-", Num("1")))
	ret := Return(N("x"))
	g := build(t, Fn("f", []string{"x"}, While(test, Block(dec), nil), ret))

	header := node(t, g, test)
	body := node(t, g, dec)

	assert.Equal(t, cfg.BlockTypeLoopHeader, header.Type)
	assert.True(t, body.HasNext(header.ID), "back edge")
	assert.True(t, g.Reachable(header.ID, header.ID))
	assert.ElementsMatch(t, []cfg.NodeID{body.ID, node(t, g, ret).ID}, header.Next())
	assert.False(t, g.Reachable(node(t, g, ret).ID, header.ID))
}

func TestBuild_ContinueTargetsHeader(t *testing.T) {
	loopTest := N("x")
	cond := N("c")
	after := Assign(N("y"), Num("1"))
	ret := Return(N("y"))
	fn := Fn("f", []string{"x", "c"},
		While(loopTest, Block(
			If(cond, Block(Continue()), nil),
			after,
		), nil),
		ret,
	)
	g := build(t, fn)

	header := node(t, g, loopTest)
	cn := node(t, g, cond)
	assert.ElementsMatch(t, []cfg.NodeID{header.ID, node(t, g, after).ID}, cn.Next())
	assert.True(t, node(t, g, after).HasNext(header.ID))
	assert.False(t, cn.HasNext(node(t, g, ret).ID), "continue must not leave the loop")
	assert.False(t, cn.HasNext(g.Exit))
}

func TestBuild_BreakSkipsElse(t *testing.T) {
	loop := For(N("i"), N("xs"), Block(Break()), Block(Assign(N("z"), Num("1"))))
	els := loop.Orelse[0]
	ret := Return(N("i"))
	g := build(t, Fn("f", []string{"xs"}, loop, ret))

	header := node(t, g, loop)
	rn := node(t, g, ret)
	// One edge from the header via break, one via the else clause.
	assert.ElementsMatch(t, []cfg.NodeID{header.ID, node(t, g, els).ID}, rn.Prev())
	assert.Equal(t, []cfg.NodeID{header.ID}, node(t, g, els).Prev())
}

// successors lists the expected successors of one node. Break and
// continue have no node of their own, so the edge leaves the statement that
// precedes them.
type successors struct {
	name string
	from syntax.Node
	to   []syntax.Node
}

func checkSuccessors(t *testing.T, g *cfg.CFG, tests []successors) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := make([]cfg.NodeID, 0, len(tt.to))
			for _, v := range tt.to {
				want = append(want, node(t, g, v).ID)
			}
			assert.ElementsMatch(t, want, node(t, g, tt.from).Next())
		})
	}
}

func TestBuild_NestedLoops(t *testing.T) {
	// while x:
	//     for i in c:
	//         if i: break
	//         elif j: continue
	//         else: pass
	//     else:
	//         e = 1
	//     x -= 1
	// else:
	//     w = 2
	// return x
	outerTest, iTest, jTest := N("x"), N("i"), N("j")
	pass := Pass()
	innerElse := Assign(N("e"), Num("1"))
	inner := For(N("i"), N("c"), Block(
		If(iTest, Block(Break()), Block(
			If(jTest, Block(Continue()), Block(pass)),
		)),
	), Block(innerElse))
	dec := AugAssign(N("x"), "-=", Num("1"))
	outerElse := Assign(N("w"), Num("2"))
	ret := Return(N("x"))
	fn := Fn("f", []string{"x", "c", "j"},
		While(outerTest, Block(inner, dec), Block(outerElse)),
		ret,
	)
	g := build(t, fn)

	checkSuccessors(t, g, []successors{
		{"break leaves the inner loop only", iTest, []syntax.Node{jTest, dec}},
		{"continue targets the inner header", jTest, []syntax.Node{inner, pass}},
		{"fallthrough returns to the inner header", pass, []syntax.Node{inner}},
		{"inner header enters body or else", inner, []syntax.Node{iTest, innerElse}},
		{"inner else continues the outer body", innerElse, []syntax.Node{dec}},
		{"outer body returns to the outer header", dec, []syntax.Node{outerTest}},
		{"outer header enters body or else", outerTest, []syntax.Node{inner, outerElse}},
		{"outer else falls through", outerElse, []syntax.Node{ret}},
	})

	outer := node(t, g, outerTest)
	for _, v := range []syntax.Node{iTest, jTest} {
		n := node(t, g, v)
		assert.False(t, n.HasNext(outer.ID), "%s jumps to the outer header", syntax.Format(v))
		assert.False(t, n.HasNext(node(t, g, outerElse).ID), "%s jumps to the outer else", syntax.Format(v))
		assert.False(t, n.HasNext(node(t, g, ret).ID), "%s leaves the outer loop", syntax.Format(v))
	}
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, iTest).ID, node(t, g, innerElse).ID}, node(t, g, dec).Prev())
	assert.Equal(t, []cfg.NodeID{node(t, g, outerElse).ID}, node(t, g, ret).Prev())
}

func TestBuild_JumpsInLoopElseBelongToEnclosingLoop(t *testing.T) {
	// while x:
	//     for i in c:
	//         a = i
	//     else:
	//         if d: break
	//         if e: continue
	//         b = 1
	//     y = 2
	// return y
	outerTest, dTest, eTest := N("x"), N("d"), N("e")
	a := Assign(N("a"), N("i"))
	b := Assign(N("b"), Num("1"))
	inner := For(N("i"), N("c"), Block(a), Block(
		If(dTest, Block(Break()), nil),
		If(eTest, Block(Continue()), nil),
		b,
	))
	y := Assign(N("y"), Num("2"))
	ret := Return(N("y"))
	g := build(t, Fn("f", []string{"x", "c", "d", "e"}, While(outerTest, Block(inner, y), nil), ret))

	checkSuccessors(t, g, []successors{
		{"break in else exits the outer loop", dTest, []syntax.Node{eTest, ret}},
		{"continue in else targets the outer header", eTest, []syntax.Node{outerTest, b}},
		{"inner body loops", a, []syntax.Node{inner}},
		{"else falls through to the outer body", b, []syntax.Node{y}},
		{"outer header", outerTest, []syntax.Node{inner, ret}},
	})
	assert.False(t, node(t, g, dTest).HasNext(node(t, g, y).ID))
	assert.False(t, node(t, g, eTest).HasNext(node(t, g, inner).ID))
}

func TestBuild_DeadCodeDropped(t *testing.T) {
	dead := Assign(N("y"), Num("1"))
	ret := Return(N("x"))
	g := build(t, Fn("f", []string{"x"}, While(N("x"), Block(Break(), dead), nil), ret))

	_, ok := g.Lookup(dead)
	assert.False(t, ok)
	assert.Len(t, g.Nodes, 4)
}

func TestBuild_Try(t *testing.T) {
	body := Assign(N("a"), Num("1"))
	handler := Assign(N("b"), Num("2"))
	els := Assign(N("c"), Num("3"))
	final := Assign(N("d"), Num("4"))
	g := build(t, Fn("f", nil, Try(Block(body), [][]syntax.Stmt{{handler}}, Block(els), Block(final))))

	bn := node(t, g, body)
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, handler).ID, node(t, g, els).ID}, bn.Next())
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, handler).ID, node(t, g, els).ID}, node(t, g, final).Prev())
	assert.Equal(t, []cfg.NodeID{g.Exit}, node(t, g, final).Next())
}

func TestBuild_TryManyHandlers(t *testing.T) {
	// try:
	//     a = 1
	//     b = a
	// except ValueError:
	//     h1 = 1
	// except KeyError:
	//     h2 = 2
	//     h3 = h2
	// else:
	//     e = 3
	// finally:
	//     d = 4
	// return d
	first := Assign(N("a"), Num("1"))
	last := Assign(N("b"), N("a"))
	h1 := Assign(N("h1"), Num("1"))
	h2 := Assign(N("h2"), Num("2"))
	h3 := Assign(N("h3"), N("h2"))
	els := Assign(N("e"), Num("3"))
	final := Assign(N("d"), Num("4"))
	ret := Return(N("d"))
	g := build(t, Fn("f", nil,
		Try(Block(first, last), [][]syntax.Stmt{{h1}, {h2, h3}}, Block(els), Block(final)),
		ret,
	))

	checkSuccessors(t, g, []successors{
		{"body runs in order", first, []syntax.Node{last}},
		{"body exit fans out to handlers and else", last, []syntax.Node{h1, h2, els}},
		{"first handler reaches finally", h1, []syntax.Node{final}},
		{"second handler runs in order", h2, []syntax.Node{h3}},
		{"second handler reaches finally", h3, []syntax.Node{final}},
		{"else reaches finally", els, []syntax.Node{final}},
		{"finally falls through", final, []syntax.Node{ret}},
	})
	assert.ElementsMatch(t, []cfg.NodeID{node(t, g, h1).ID, node(t, g, h3).ID, node(t, g, els).ID}, node(t, g, final).Prev())
}

func TestBuild_EmptyBody(t *testing.T) {
	g := build(t, Fn("f", nil))
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, []cfg.NodeID{g.Exit}, g.EntryNode().Next())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   syntax.Node
		want error
	}{
		{
			name: "not a function",
			fn:   Assign(N("x"), Num("1")),
			want: cfg.ErrInvalidInput,
		},
		{
			name: "break outside loop",
			fn:   Fn("f", nil, Break()),
			want: cfg.ErrUnsupportedConstruct,
		},
		{
			name: "continue outside loop",
			fn:   Fn("f", nil, If(N("x"), Block(Continue()), nil)),
			want: cfg.ErrUnsupportedConstruct,
		},
		{
			name: "with statement",
			fn:   Fn("f", nil, &syntax.With{Body: Block(Pass())}),
			want: cfg.ErrUnsupportedConstruct,
		},
		{
			name: "match statement",
			fn:   Fn("f", nil, &syntax.Match{Subject: N("x")}),
			want: cfg.ErrUnsupportedConstruct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := cfg.Build(tt.fn)
			assert.Nil(t, g)
			assert.ErrorIs(t, err, tt.want)

			var nodeErr *syntax.NodeError
			assert.ErrorAs(t, err, &nodeErr)
		})
	}
}

func TestCFG_Info(t *testing.T) {
	test := N("x")
	fn := Fn("f", []string{"x"},
		While(test, Block(Assign(N("x"), Bin(N("x"), "-", Num("1")))), nil),
		Return(N("x")),
	)
	g := build(t, fn)
	info := g.Info()

	assert.Equal(t, "f", info.FunctionName)
	assert.Equal(t, "n0", info.EntryBlockID)
	assert.Equal(t, []string{cfg.BlockID(g.Exit)}, info.ExitBlockIDs)
	assert.Len(t, info.Blocks, len(g.Nodes))
	assert.Len(t, info.Edges, g.Edges())
	assert.Equal(t, 2, info.CyclomaticComplexity)
	assert.Equal(t, []string{"params(x)"}, info.Blocks["n0"].Statements)

	header := cfg.BlockID(node(t, g, test).ID)
	var back, branch int
	for _, e := range info.Edges {
		switch e.EdgeType {
		case cfg.EdgeTypeBackEdge:
			back++
			assert.Equal(t, header, e.TargetID)
		case cfg.EdgeTypeBranch:
			branch++
			assert.Equal(t, header, e.SourceID)
			assert.Equal(t, "x", e.Condition)
		}
	}
	assert.Equal(t, 1, back)
	assert.Equal(t, 2, branch)
}
