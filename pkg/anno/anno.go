// Package anno provides an identity-keyed annotation store for syntax nodes.
//
// A Store is created per analysis run and passed explicitly between passes;
// nothing is attached to the nodes themselves.
package anno

import (
	"errors"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

// ErrAlreadySet is returned by a safe Set when the label is already present.
var ErrAlreadySet = errors.New("annotation already set")

type key struct {
	node  syntax.Node
	label string
}

// Store maps (node, label) pairs to values.
type Store struct {
	values map[key]any
}

// New creates an empty store.
func New() *Store {
	return &Store{values: make(map[key]any)}
}

// Get returns the value stored under label for node n.
func (s *Store) Get(n syntax.Node, label string) (any, bool) {
	v, ok := s.values[key{n, label}]
	return v, ok
}

// Has reports whether node n has a value under label.
func (s *Store) Has(n syntax.Node, label string) bool {
	_, ok := s.values[key{n, label}]
	return ok
}

// Set stores value under label for node n. With safe set, an existing value
// is an error; otherwise it is replaced.
func (s *Store) Set(n syntax.Node, label string, value any, safe bool) error {
	k := key{n, label}
	if safe {
		if _, exists := s.values[k]; exists {
			return syntax.Errorf(ErrAlreadySet, n, "label %q", label)
		}
	}
	s.values[k] = value
	return nil
}

// Delete removes label from node n.
func (s *Store) Delete(n syntax.Node, label string) {
	delete(s.values, key{n, label})
}

// Len returns the number of stored annotations.
func (s *Store) Len() int {
	return len(s.values)
}
