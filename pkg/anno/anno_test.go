package anno

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-tangent/pkg/syntax"
)

func TestStore_SetGet(t *testing.T) {
	s := New()
	a := &syntax.Name{ID: "x"}
	b := &syntax.Name{ID: "x"}

	require.NoError(t, s.Set(a, "label", 1, true))

	v, ok := s.Get(a, "label")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// Keys are node identities, not structural equality.
	assert.False(t, s.Has(b, "label"))
	assert.False(t, s.Has(a, "other"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_SafeSet(t *testing.T) {
	s := New()
	n := &syntax.Pass{}

	require.NoError(t, s.Set(n, "label", "first", true))

	err := s.Set(n, "label", "second", true)
	assert.ErrorIs(t, err, ErrAlreadySet)
	v, _ := s.Get(n, "label")
	assert.Equal(t, "first", v)

	require.NoError(t, s.Set(n, "label", "third", false))
	v, _ = s.Get(n, "label")
	assert.Equal(t, "third", v)
}

func TestStore_Delete(t *testing.T) {
	s := New()
	n := &syntax.Pass{}
	require.NoError(t, s.Set(n, "label", true, false))

	s.Delete(n, "label")
	assert.False(t, s.Has(n, "label"))
	assert.Equal(t, 0, s.Len())
}
