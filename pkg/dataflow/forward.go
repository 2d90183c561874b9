package dataflow

import (
	"errors"
	"fmt"

	"github.com/l3aro/go-tangent/pkg/anno"
	"github.com/l3aro/go-tangent/pkg/cfg"
	"github.com/l3aro/go-tangent/pkg/syntax"
)

// Forward runs a on every function definition under root, nested ones
// included, one at a time. A function whose CFG cannot be built is skipped
// and its error joined into the result; the others are still annotated.
func Forward(root syntax.Node, a Analysis, store *anno.Store, opts ...Option) error {
	if err := check(a); err != nil {
		return err
	}
	o := newOptions(opts)

	fns := syntax.Functions(root)
	if len(fns) == 0 {
		if _, ok := root.(*syntax.Module); !ok {
			return syntax.Errorf(cfg.ErrInvalidInput, root, "no function definitions")
		}
	}

	var errs []error
	for _, fn := range fns {
		g, err := cfg.Build(fn)
		if err != nil {
			o.logger.Warn("skipping function", "function", fn.Name, "error", err)
			errs = append(errs, err)
			continue
		}
		if _, err := Run(g, a, store, opts...); err != nil {
			errs = append(errs, fmt.Errorf("%s analysis of %s: %w", a.Name(), fn.Name, err))
		}
	}
	return errors.Join(errs...)
}
