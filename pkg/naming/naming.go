// Package naming mints fresh identifiers for generated code.
//
// A Namer remembers every name it has issued or been told about and never
// hands out the same name twice. Gradient, tangent and temporary names are
// derived from the primal name through printf-style templates.
package naming

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// ErrInvalidTemplate is returned by Templates.Validate.
var ErrInvalidTemplate = errors.New("invalid naming template")

// Templates turn a primal name into a derived one. Each must contain exactly
// one %s.
type Templates struct {
	Adjoint     string `yaml:"adjoint" json:"adjoint"`
	Tangent     string `yaml:"tangent" json:"tangent"`
	TempAdjoint string `yaml:"temp_adjoint" json:"temp_adjoint"`
	TempTangent string `yaml:"temp_tangent" json:"temp_tangent"`
	Temp        string `yaml:"temp" json:"temp"`
}

// DefaultTemplates returns the templates used when none are configured.
func DefaultTemplates() Templates {
	return Templates{
		Adjoint:     "b%s",
		Tangent:     "d%s",
		TempAdjoint: "_b%s",
		TempTangent: "_d%s",
		Temp:        "_%s",
	}
}

// Validate checks that every template has exactly one %s and no other verb.
func (t Templates) Validate() error {
	for _, tc := range []struct{ field, tmpl string }{
		{"adjoint", t.Adjoint},
		{"tangent", t.Tangent},
		{"temp_adjoint", t.TempAdjoint},
		{"temp_tangent", t.TempTangent},
		{"temp", t.Temp},
	} {
		rest := strings.ReplaceAll(tc.tmpl, "%%", "")
		if strings.Count(rest, "%s") != 1 || strings.Count(rest, "%") != 1 {
			return fmt.Errorf("%w: %s template %q must contain exactly one %%s", ErrInvalidTemplate, tc.field, tc.tmpl)
		}
	}
	return nil
}

// Option configures a Namer.
type Option func(*Namer)

// WithTemplates overrides the naming templates.
func WithTemplates(t Templates) Option {
	return func(n *Namer) { n.templates = t }
}

// WithReserved marks names as taken up front.
func WithReserved(names ...string) Option {
	return func(n *Namer) { n.Reserve(names...) }
}

// Namer issues unique identifiers. It is not safe for concurrent use; one
// Namer serves one function at a time.
type Namer struct {
	templates Templates
	taken     map[string]struct{}
}

// New returns a Namer with the default templates and no reserved names.
func New(opts ...Option) *Namer {
	n := &Namer{
		templates: DefaultTemplates(),
		taken:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Build returns a Namer that treats every identifier already used in root
// as taken: variables, parameters, attribute roots, function and class names,
// globals, imports and exception aliases.
func Build(root syntax.Node, opts ...Option) *Namer {
	n := New(opts...)
	syntax.Inspect(root, func(node syntax.Node) bool {
		switch v := node.(type) {
		case *syntax.Name:
			n.Reserve(v.ID)
		case *syntax.FunctionDef:
			n.Reserve(v.Name)
		case *syntax.ClassDef:
			n.Reserve(v.Name)
		case *syntax.Global:
			n.Reserve(v.Names...)
		case *syntax.Import:
			for _, imp := range v.Names {
				n.Reserve(strings.SplitN(imp, ".", 2)[0])
			}
		case *syntax.ExceptHandler:
			if v.Name != "" {
				n.Reserve(v.Name)
			}
		}
		return true
	})
	return n
}

// Reserve marks names as taken without issuing them.
func (n *Namer) Reserve(names ...string) {
	for _, name := range names {
		n.taken[name] = struct{}{}
	}
}

// Taken reports whether name has been reserved or issued.
func (n *Namer) Taken(name string) bool {
	_, ok := n.taken[name]
	return ok
}

// Unique returns name itself if it is free, otherwise name followed by the
// lowest counter from 2 up that makes it free. Python keywords are never
// returned.
func (n *Namer) Unique(name string) string {
	candidate := name
	for i := 2; n.Taken(candidate) || keywords[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	n.taken[candidate] = struct{}{}
	return candidate
}

// Grad returns a fresh adjoint name for name, or a tangent name when tangent
// is set.
func (n *Namer) Grad(name string, tangent bool) string {
	if tangent {
		return n.Unique(fmt.Sprintf(n.templates.Tangent, name))
	}
	return n.Unique(fmt.Sprintf(n.templates.Adjoint, name))
}

// TempGrad returns a fresh name for a partial gradient accumulator.
func (n *Namer) TempGrad(name string, tangent bool) string {
	if tangent {
		return n.Unique(fmt.Sprintf(n.templates.TempTangent, name))
	}
	return n.Unique(fmt.Sprintf(n.templates.TempAdjoint, name))
}

// Temp returns a fresh name for a temporary copy of name.
func (n *Namer) Temp(name string) string {
	return n.Unique(fmt.Sprintf(n.templates.Temp, name))
}

// FlattenAttribute turns a simple attribute chain such as a.b.c into the
// identifier a_b_c. It reports false for chains through calls or subscripts.
func (n *Namer) FlattenAttribute(e syntax.Expr) (string, bool) {
	name, ok := syntax.DottedName(e)
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(name, ".", "_"), true
}

var keywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}
