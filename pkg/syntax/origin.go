package syntax

// OriginKind identifies what a synthesized variable stands for.
type OriginKind int

const (
	// AdjointVar marks the final derivative of the referenced node.
	AdjointVar OriginKind = iota + 1
	// TempAdjointVar marks a scratch partial-derivative accumulator.
	TempAdjointVar
	// TempVar marks a generic temporary standing in for the referenced node.
	TempVar
)

func (k OriginKind) String() string {
	switch k {
	case AdjointVar:
		return "adjoint_var"
	case TempAdjointVar:
		return "temp_adjoint_var"
	case TempVar:
		return "temp_var"
	default:
		return "unknown"
	}
}

// Origin is a non-owning back-reference from a synthesized node into the
// original tree. It is only used for lookups.
type Origin struct {
	Kind OriginKind
	Ref  Node
}

// OriginOf returns the back-reference carried by n, if any.
func OriginOf(n Node) (*Origin, bool) {
	switch n := n.(type) {
	case *Name:
		return n.Origin, n.Origin != nil
	case *Str:
		return n.Origin, n.Origin != nil
	}
	return nil, false
}
