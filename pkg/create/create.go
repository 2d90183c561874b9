// Package create builds the variable nodes that stand for gradients and
// temporaries in generated code.
//
// Every returned node is fresh and carries an Origin pointing back at the
// node it was derived from. Inputs are never modified.
package create

import (
	"errors"
	"strings"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// ErrNaming is returned when no name can be derived for a node.
var ErrNaming = errors.New("cannot name node")

// Namer supplies fresh identifiers. *naming.Namer implements it.
type Namer interface {
	Grad(name string, tangent bool) string
	TempGrad(name string, tangent bool) string
	Temp(name string) string
	FlattenAttribute(e syntax.Expr) (string, bool)
}

// Grad returns the gradient variable of ref: an adjoint, or a tangent when
// tangent is set. Names and attribute chains yield a fresh Name, subscripts
// yield the gradient of their base indexed by the original slice, and
// string literals yield a Str holding the gradient name.
//
// A temporary made by Temp is resolved to the variable it copies first, so
// a temporary is never given a gradient of its own.
func Grad(ref syntax.Expr, namer Namer, tangent bool) (syntax.Expr, error) {
	if o, ok := syntax.OriginOf(ref); ok && o.Kind == syntax.TempVar {
		if orig, ok := o.Ref.(syntax.Expr); ok {
			return Grad(orig, namer, tangent)
		}
	}

	switch n := ref.(type) {
	case *syntax.Name:
		return &syntax.Name{
			ID:     namer.Grad(n.ID, tangent),
			Origin: &syntax.Origin{Kind: syntax.AdjointVar, Ref: n},
		}, nil

	case *syntax.Subscript:
		base, err := Grad(n.Value, namer, tangent)
		if err != nil {
			return nil, err
		}
		return &syntax.Subscript{Value: base, Slice: n.Slice}, nil

	case *syntax.Attribute:
		flat, ok := namer.FlattenAttribute(n)
		if !ok {
			return nil, syntax.Errorf(ErrNaming, n, "attribute chain through %s", syntax.Kind(n.Value))
		}
		return &syntax.Name{
			ID:     namer.Grad(flat, tangent),
			Origin: &syntax.Origin{Kind: syntax.AdjointVar, Ref: n},
		}, nil

	case *syntax.Str:
		g, err := Grad(&syntax.Name{ID: n.Value}, namer, tangent)
		if err != nil {
			return nil, err
		}
		return &syntax.Str{
			Value:  g.(*syntax.Name).ID,
			Origin: &syntax.Origin{Kind: syntax.AdjointVar, Ref: n},
		}, nil
	}

	return nil, syntax.Errorf(ErrNaming, ref, "gradient of %s", syntax.Kind(ref))
}

// TempGrad returns a fresh Name for accumulating partial gradients of ref.
// Subscripts use their base name; attribute chains are flattened.
func TempGrad(ref syntax.Expr, namer Namer, tangent bool) (*syntax.Name, error) {
	var name string
	switch n := ref.(type) {
	case *syntax.Name:
		name = n.ID
	case *syntax.Subscript:
		base, ok := syntax.BaseName(n.Value)
		if !ok {
			return nil, syntax.Errorf(ErrNaming, n, "subscript of %s", syntax.Kind(n.Value))
		}
		name = base
	case *syntax.Str:
		name = n.Value
	case *syntax.Attribute:
		flat, ok := namer.FlattenAttribute(n)
		if !ok {
			return nil, syntax.Errorf(ErrNaming, n, "temporary gradient of non-simple attribute")
		}
		name = flat
	default:
		return nil, syntax.Errorf(ErrNaming, ref, "temporary gradient of %s", syntax.Kind(ref))
	}

	return &syntax.Name{
		ID:     namer.TempGrad(name, tangent),
		Origin: &syntax.Origin{Kind: syntax.TempAdjointVar, Ref: ref},
	}, nil
}

// Temp returns a fresh Name to hold a copy of ref. Attributes and
// subscripts use their base name; a tuple joins the base names of its
// members with "_".
func Temp(ref syntax.Expr, namer Namer) (*syntax.Name, error) {
	var name string
	switch n := ref.(type) {
	case *syntax.Name:
		name = n.ID
	case *syntax.Attribute, *syntax.Subscript:
		base, ok := syntax.BaseName(n)
		if !ok {
			return nil, syntax.Errorf(ErrNaming, n, "no base name")
		}
		name = base
	case *syntax.Tuple:
		parts := make([]string, 0, len(n.Elts))
		for _, elt := range n.Elts {
			switch elt.(type) {
			case *syntax.Name, *syntax.Attribute, *syntax.Subscript:
			default:
				return nil, syntax.Errorf(ErrNaming, elt, "tuple member %s", syntax.Kind(elt))
			}
			base, ok := syntax.BaseName(elt)
			if !ok {
				return nil, syntax.Errorf(ErrNaming, elt, "no base name")
			}
			parts = append(parts, base)
		}
		if len(parts) == 0 {
			return nil, syntax.Errorf(ErrNaming, n, "empty tuple")
		}
		name = strings.Join(parts, "_")
	default:
		return nil, syntax.Errorf(ErrNaming, ref, "temporary of %s", syntax.Kind(ref))
	}

	return &syntax.Name{
		ID:     namer.Temp(name),
		Origin: &syntax.Origin{Kind: syntax.TempVar, Ref: ref},
	}, nil
}
