// Package parser lowers Python source into the syntax tree using
// tree-sitter.
package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

var (
	// ErrSyntax is returned when the source does not parse cleanly.
	ErrSyntax = errors.New("syntax error")

	// ErrFunctionNotFound is returned by FindFunction.
	ErrFunctionNotFound = errors.New("function not found")
)

// Parse lowers Python source into a Module. Source with syntax errors is
// rejected with the position of the first error.
func Parse(ctx context.Context, src []byte) (*syntax.Module, error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())

	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty parse tree", ErrSyntax)
	}

	l := &lowerer{src: src}
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			what := "unexpected " + quote(bad.Content(src))
			if bad.IsMissing() {
				what = "missing " + bad.Type()
			}
			return nil, syntax.Errorf(ErrSyntax, &syntax.Other{Span: l.span(bad), Kind: bad.Type()}, "%s", what)
		}
		return nil, fmt.Errorf("%w: source contains errors", ErrSyntax)
	}

	return &syntax.Module{Span: l.span(root), Body: l.block(root)}, nil
}

// ParseFile reads and parses a Python file.
func ParseFile(ctx context.Context, path string) (*syntax.Module, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	mod, err := Parse(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mod, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if bad := firstError(c); bad != nil {
			return bad
		}
	}
	return nil
}

func quote(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return fmt.Sprintf("%q", s)
}

// Function is a function definition with its qualified name, such as
// "Model.forward" or "outer.inner".
type Function struct {
	Name string
	Def  *syntax.FunctionDef
}

// Functions lists every function in mod, outer definitions first.
func Functions(mod *syntax.Module) []Function {
	var out []Function
	var visit func(prefix string, stmts []syntax.Stmt)
	visit = func(prefix string, stmts []syntax.Stmt) {
		for _, s := range stmts {
			switch s := s.(type) {
			case *syntax.FunctionDef:
				out = append(out, Function{Name: prefix + s.Name, Def: s})
				visit(prefix+s.Name+".", s.Body)
			case *syntax.ClassDef:
				visit(prefix+s.Name+".", s.Body)
			case *syntax.If:
				visit(prefix, s.Body)
				visit(prefix, s.Orelse)
			case *syntax.While:
				visit(prefix, s.Body)
				visit(prefix, s.Orelse)
			case *syntax.For:
				visit(prefix, s.Body)
				visit(prefix, s.Orelse)
			case *syntax.With:
				visit(prefix, s.Body)
			case *syntax.Match:
				for _, c := range s.Cases {
					visit(prefix, c.Body)
				}
			case *syntax.Try:
				visit(prefix, s.Body)
				for _, h := range s.Handlers {
					visit(prefix, h.Body)
				}
				visit(prefix, s.Orelse)
				visit(prefix, s.Finalbody)
			}
		}
	}
	if mod != nil {
		visit("", mod.Body)
	}
	return out
}

// FindFunction returns the function called name. A qualified name matches
// exactly; a bare name also matches a nested or method definition when it
// is unambiguous.
func FindFunction(mod *syntax.Module, name string) (*syntax.FunctionDef, error) {
	fns := Functions(mod)
	for _, fn := range fns {
		if fn.Name == name {
			return fn.Def, nil
		}
	}

	var match *syntax.FunctionDef
	for _, fn := range fns {
		if fn.Def.Name != name {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %q is ambiguous, use a qualified name", ErrFunctionNotFound, name)
		}
		match = fn.Def
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return match, nil
}
