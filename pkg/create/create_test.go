package create_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/l3aro/go-tangent/internal/syntaxtest"
	"github.com/l3aro/go-tangent/pkg/create"
	"github.com/l3aro/go-tangent/pkg/naming"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

func origin(t *testing.T, n syntax.Node) *syntax.Origin {
	t.Helper()
	o, ok := syntax.OriginOf(n)
	require.True(t, ok, "%s has no origin", syntax.Format(n))
	require.NotNil(t, o)
	return o
}

func TestGrad_Name(t *testing.T) {
	namer := naming.New()
	x := N("x")

	first, err := create.Grad(x, namer, false)
	require.NoError(t, err)
	second, err := create.Grad(x, namer, false)
	require.NoError(t, err)

	assert.Equal(t, "bx", first.(*syntax.Name).ID)
	assert.Equal(t, "bx2", second.(*syntax.Name).ID)
	for _, g := range []syntax.Expr{first, second} {
		o := origin(t, g)
		assert.Equal(t, syntax.AdjointVar, o.Kind)
		assert.Same(t, x, o.Ref)
	}
	assert.Nil(t, x.Origin)

	tan, err := create.Grad(x, namer, true)
	require.NoError(t, err)
	assert.Equal(t, "dx", tan.(*syntax.Name).ID)
}

func TestGrad_Subscript(t *testing.T) {
	namer := naming.New()
	x := N("x")
	slice := Bin(N("i"), "+", Num("1"))
	ref := Sub(x, slice)

	g, err := create.Grad(ref, namer, false)
	require.NoError(t, err)

	sub, ok := g.(*syntax.Subscript)
	require.True(t, ok)
	assert.Same(t, slice, sub.Slice)
	assert.NotSame(t, ref, sub)
	assert.Same(t, x, ref.Value)

	base := sub.Value.(*syntax.Name)
	assert.Equal(t, "bx", base.ID)
	assert.Same(t, x, origin(t, base).Ref)
}

func TestGrad_AttributeAndStr(t *testing.T) {
	namer := naming.New()

	attr := Attr(N("self"), "w")
	g, err := create.Grad(attr, namer, false)
	require.NoError(t, err)
	assert.Equal(t, "bself_w", g.(*syntax.Name).ID)
	assert.Same(t, attr, origin(t, g).Ref)

	s := S("y")
	g, err = create.Grad(s, namer, true)
	require.NoError(t, err)
	str, ok := g.(*syntax.Str)
	require.True(t, ok)
	assert.Equal(t, "dy", str.Value)
	assert.Same(t, s, origin(t, str).Ref)
}

func TestGrad_ResolvesTemporary(t *testing.T) {
	namer := naming.New()
	x := N("x")

	tmp, err := create.Temp(x, namer)
	require.NoError(t, err)
	require.Equal(t, "_x", tmp.ID)

	g, err := create.Grad(tmp, namer, false)
	require.NoError(t, err)
	assert.Equal(t, "bx", g.(*syntax.Name).ID)
	assert.Same(t, x, origin(t, g).Ref)
}

func TestGrad_Unsupported(t *testing.T) {
	tests := []struct {
		name string
		ref  syntax.Expr
	}{
		{"call", Call("f", N("x"))},
		{"constant", Num("1")},
		{"attribute through call", &syntax.Attribute{Value: Call("f"), Attr: "w"}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := create.Grad(tt.ref, naming.New(), false)
			assert.ErrorIs(t, err, create.ErrNaming)
		})
	}
}

func TestTempGrad(t *testing.T) {
	tests := []struct {
		name    string
		ref     syntax.Expr
		tangent bool
		want    string
		wantErr bool
	}{
		{name: "name", ref: N("x"), want: "_bx"},
		{name: "tangent", ref: N("x"), tangent: true, want: "_dx"},
		{name: "subscript uses base", ref: Sub(N("x"), N("i")), want: "_bx"},
		{name: "string literal", ref: S("y"), want: "_by"},
		{name: "attribute chain", ref: Attr(N("a"), "b", "c"), want: "_ba_b_c"},
		{name: "attribute through subscript", ref: &syntax.Attribute{Value: Sub(N("x"), N("i")), Attr: "w"}, wantErr: true},
		{name: "constant", ref: Num("0"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := create.TempGrad(tt.ref, naming.New(), tt.tangent)
			if tt.wantErr {
				assert.ErrorIs(t, err, create.ErrNaming)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
			o := origin(t, got)
			assert.Equal(t, syntax.TempAdjointVar, o.Kind)
			assert.Same(t, tt.ref, o.Ref)
		})
	}
}

func TestTemp(t *testing.T) {
	tests := []struct {
		name    string
		ref     syntax.Expr
		want    string
		wantErr bool
	}{
		{name: "name", ref: N("x"), want: "_x"},
		{name: "attribute uses base", ref: Attr(N("a"), "b"), want: "_a"},
		{name: "subscript uses base", ref: Sub(N("x"), N("i")), want: "_x"},
		{name: "tuple joins bases", ref: Tuple(N("a"), Sub(N("b"), N("i"))), want: "_a_b"},
		{name: "tuple with call", ref: Tuple(N("a"), Call("f")), wantErr: true},
		{name: "constant", ref: Num("0"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := create.Temp(tt.ref, naming.New())
			if tt.wantErr {
				assert.ErrorIs(t, err, create.ErrNaming)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
			o := origin(t, got)
			assert.Equal(t, syntax.TempVar, o.Kind)
			assert.Same(t, tt.ref, o.Ref)
		})
	}
}

func TestNamesNeverRepeat(t *testing.T) {
	namer := naming.New()
	seen := make(map[string]bool)
	x := N("x")

	for i := 0; i < 5; i++ {
		g, err := create.Grad(x, namer, false)
		require.NoError(t, err)
		tg, err := create.TempGrad(x, namer, false)
		require.NoError(t, err)
		tmp, err := create.Temp(x, namer)
		require.NoError(t, err)

		for _, name := range []string{g.(*syntax.Name).ID, tg.ID, tmp.ID} {
			assert.False(t, seen[name], "%s issued twice", name)
			seen[name] = true
		}
	}
}
