package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/l3aro/go-tangent/internal/syntaxtest"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

func TestNamer_Unique(t *testing.T) {
	n := New(WithReserved("x"))

	assert.Equal(t, "y", n.Unique("y"))
	assert.Equal(t, "y2", n.Unique("y"))
	assert.Equal(t, "y3", n.Unique("y"))
	assert.Equal(t, "x2", n.Unique("x"))
	assert.Equal(t, "if2", n.Unique("if"))
}

func TestNamer_Templates(t *testing.T) {
	n := New()

	assert.Equal(t, "bx", n.Grad("x", false))
	assert.Equal(t, "bx2", n.Grad("x", false))
	assert.Equal(t, "dx", n.Grad("x", true))
	assert.Equal(t, "_bx", n.TempGrad("x", false))
	assert.Equal(t, "_dx", n.TempGrad("x", true))
	assert.Equal(t, "_x", n.Temp("x"))

	custom := New(WithTemplates(Templates{
		Adjoint: "%s_adj", Tangent: "%s_tan", TempAdjoint: "t%s_adj", TempTangent: "t%s_tan", Temp: "tmp_%s",
	}))
	assert.Equal(t, "x_adj", custom.Grad("x", false))
	assert.Equal(t, "tmp_x", custom.Temp("x"))
}

func TestBuild_ReservesExistingNames(t *testing.T) {
	fn := Fn("f", []string{"x"},
		Assign(N("bx"), Bin(N("x"), "*", N("w"))),
		Assign(N("y"), Call("np.sum", N("bx"))),
		&syntax.Try{
			Body:     Block(Pass()),
			Handlers: []*syntax.ExceptHandler{{Name: "err", Body: Block(Pass())}},
		},
		&syntax.Import{Names: []string{"numpy.linalg"}},
	)
	n := Build(fn)

	for _, name := range []string{"f", "x", "bx", "w", "y", "np", "err", "numpy"} {
		assert.True(t, n.Taken(name), name)
	}
	assert.Equal(t, "bx2", n.Grad("x", false))
	assert.Equal(t, "by", n.Grad("y", false))
}

func TestNamer_FlattenAttribute(t *testing.T) {
	n := New()

	got, ok := n.FlattenAttribute(Attr(N("self"), "layer", "w"))
	require.True(t, ok)
	assert.Equal(t, "self_layer_w", got)

	_, ok = n.FlattenAttribute(&syntax.Attribute{Value: Call("f"), Attr: "w"})
	assert.False(t, ok)
}

func TestTemplates_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Templates)
		wantErr bool
	}{
		{"defaults", func(*Templates) {}, false},
		{"escaped percent", func(t *Templates) { t.Temp = "_%%%s" }, false},
		{"missing verb", func(t *Templates) { t.Adjoint = "grad" }, true},
		{"two verbs", func(t *Templates) { t.Tangent = "%s%s" }, true},
		{"wrong verb", func(t *Templates) { t.Temp = "_%d" }, true},
		{"extra verb", func(t *Templates) { t.TempAdjoint = "%s%d" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := DefaultTemplates()
			tt.mutate(&tmpl)
			err := tmpl.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTemplate)
				return
			}
			assert.NoError(t, err)
		})
	}
}
