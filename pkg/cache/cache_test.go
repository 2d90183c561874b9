package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-tangent/pkg/report"
)

func key(name string) Key {
	return KeyFor([]byte("def "+name+"(x): return x"), name, report.Options{})
}

func fn(name string) *report.Function {
	return &report.Function{
		Name: name,
		Line: 1,
		Exit: map[string][]string{"defined": {"x"}},
		Gradients: []report.Gradient{
			{Variable: "x", Grad: "bx", TempGrad: "_bx", Temp: "_x"},
		},
	}
}

func TestCache_Basic(t *testing.T) {
	c := New(Options{MaxEntries: 3})

	c.Put(key("a"), fn("a"))
	c.Put(key("b"), fn("b"))
	assert.Equal(t, 2, c.Len())

	got, ok := c.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)

	_, ok = c.Get(key("missing"))
	assert.False(t, ok)

	c.Delete(key("a"))
	_, ok = c.Get(key("a"))
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, Stats{Length: 1, Hits: 1, Misses: 2}, c.Stats())

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestCache_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{
		MaxEntries: 3,
		OnEvict:    func(_ string, r *report.Function) { evicted = append(evicted, r.Name) },
	})

	c.Put(key("a"), fn("a"))
	c.Put(key("b"), fn("b"))
	c.Put(key("c"), fn("c"))

	// a becomes most recent, so b is the oldest.
	c.Get(key("a"))
	c.Put(key("d"), fn("d"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)
	for _, name := range []string{"a", "c", "d"} {
		_, ok := c.Get(key(name))
		assert.True(t, ok, name)
	}
}

func TestCache_Update(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	c.Put(key("a"), fn("a"))

	updated := fn("a")
	updated.Line = 7
	c.Put(key("a"), updated)

	got, ok := c.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, 7, got.Line)
	assert.Equal(t, 1, c.Len())
}

func TestKeyFor(t *testing.T) {
	src := []byte("def f(x): return x")
	base := KeyFor(src, "f", report.Options{})

	assert.Equal(t, base, KeyFor(src, "f", report.DefaultOptions()))
	assert.Len(t, base.Content, 64)

	tests := []struct {
		name  string
		other Key
	}{
		{"content", KeyFor([]byte("def f(x): return 2 * x"), "f", report.Options{})},
		{"function", KeyFor(src, "g", report.Options{})},
		{"options", KeyFor(src, "f", report.Options{Wrt: []int{0}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base.String(), tt.other.String())
		})
	}
}

func TestCache_SaveLoad(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	c.Put(key("a"), fn("a"))
	c.Put(key("b"), fn("b"))
	c.Put(key("c"), fn("c"))
	c.Get(key("a"))

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	// Reloading into a smaller cache keeps the most recent entries.
	c2 := New(Options{MaxEntries: 2})
	require.NoError(t, c2.Load(&buf))
	assert.Equal(t, 2, c2.Len())

	got, ok := c2.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, fn("a"), got)

	_, ok = c2.Get(key("c"))
	assert.True(t, ok)
	_, ok = c2.Get(key("b"))
	assert.False(t, ok)
}

func TestCache_LoadIncompatible(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, msgpack.NewEncoder(&buf).Encode(&snapshot{Version: formatVersion + 1}))

	c := New(Options{})
	assert.ErrorIs(t, c.Load(&buf), ErrIncompatible)

	assert.Error(t, c.Load(bytes.NewReader([]byte("not msgpack"))))
}

func TestPersistToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports.cache")

	c := New(Options{MaxEntries: 10})
	c.Put(key("a"), fn("a"))
	require.NoError(t, PersistToFile(c, path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	c2 := New(Options{MaxEntries: 10})
	require.NoError(t, LoadFromFile(c2, path))
	got, ok := c2.Get(key("a"))
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, got.Exit["defined"])
}

func TestLoadFromFile_Missing(t *testing.T) {
	c := New(Options{MaxEntries: 10})
	err := LoadFromFile(c, filepath.Join(t.TempDir(), "nonexistent.cache"))
	require.NoError(t, err, "loading non-existent file should not error")
	assert.Equal(t, 0, c.Len())
}

func TestCache_Concurrent(t *testing.T) {
	c := New(Options{MaxEntries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := fmt.Sprintf("f%d_%d", i, j%20)
				c.Put(key(name), fn(name))
				c.Get(key(name))
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
