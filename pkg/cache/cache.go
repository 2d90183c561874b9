// Package cache keeps function reports across runs so unchanged functions
// are not re-analyzed. Entries are keyed by the source content, the
// qualified function name and the analysis options, and persisted with
// msgpack.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-tangent/pkg/report"
)

// formatVersion changes whenever the persisted layout of a report does.
const formatVersion = 1

// ErrIncompatible is returned by Load for data written by another version.
var ErrIncompatible = errors.New("incompatible cache format")

// Key identifies one cached report.
type Key struct {
	Content  string
	Function string
	Options  string
}

// KeyFor builds the key of function in src analyzed with opts.
func KeyFor(src []byte, function string, opts report.Options) Key {
	sum := sha256.Sum256(src)
	return Key{
		Content:  hex.EncodeToString(sum[:]),
		Function: function,
		Options:  opts.Fingerprint(),
	}
}

func (k Key) String() string {
	return k.Content + "/" + k.Function + "/" + k.Options
}

// Entry is a cached report with its bookkeeping.
type Entry struct {
	Key        string           `msgpack:"key"`
	Report     *report.Function `msgpack:"report"`
	AccessedAt time.Time        `msgpack:"accessed_at"`
	CreatedAt  time.Time        `msgpack:"created_at"`
}

// item is an entry in the recency list, most recent at head.
type item struct {
	Entry
	prev, next *item
}

type recency struct {
	head, tail *item
	len        int
}

func (l *recency) pushFront(it *item) {
	it.prev = nil
	it.next = l.head
	if l.head != nil {
		l.head.prev = it
	}
	l.head = it
	if l.tail == nil {
		l.tail = it
	}
	l.len++
}

func (l *recency) remove(it *item) {
	if it.prev != nil {
		it.prev.next = it.next
	} else {
		l.head = it.next
	}
	if it.next != nil {
		it.next.prev = it.prev
	} else {
		l.tail = it.prev
	}
	it.prev, it.next = nil, nil
	l.len--
}

func (l *recency) moveToFront(it *item) {
	if it == l.head {
		return
	}
	l.remove(it)
	l.pushFront(it)
}

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the number of reports. 0 means unlimited.
	MaxEntries int

	// OnEvict is called when an entry is evicted to make room.
	OnEvict func(key string, r *report.Function)
}

// Stats are counters since the cache was created or reset.
type Stats struct {
	Length int   `json:"length" yaml:"length"`
	Hits   int64 `json:"hits" yaml:"hits"`
	Misses int64 `json:"misses" yaml:"misses"`
}

// Cache is an LRU cache of reports, safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*item
	lru     recency
	max     int
	onEvict func(key string, r *report.Function)
	now     func() time.Time

	hits, misses int64
}

// New creates an empty cache.
func New(opts Options) *Cache {
	return &Cache{
		items:   make(map[string]*item),
		max:     opts.MaxEntries,
		onEvict: opts.OnEvict,
		now:     time.Now,
	}
}

// Get returns the report stored under key and marks it recently used.
func (c *Cache) Get(key Key) (*report.Function, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key.String()]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	it.AccessedAt = c.now()
	c.lru.moveToFront(it)
	return it.Report, true
}

// Put stores r under key, evicting the least recently used entries when
// the cache is full.
func (c *Cache) Put(key Key, r *report.Function) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	now := c.now()
	if it, ok := c.items[k]; ok {
		it.Report = r
		it.AccessedAt = now
		c.lru.moveToFront(it)
		return
	}

	it := &item{Entry: Entry{Key: k, Report: r, AccessedAt: now, CreatedAt: now}}
	c.items[k] = it
	c.lru.pushFront(it)
	c.evict()
}

// Delete removes key from the cache.
func (c *Cache) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key.String()
	if it, ok := c.items[k]; ok {
		c.lru.remove(it)
		delete(c.items, k)
	}
}

// Clear removes every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.hits, c.misses = 0, 0
}

func (c *Cache) reset() {
	c.items = make(map[string]*item)
	c.lru = recency{}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Length: len(c.items), Hits: c.hits, Misses: c.misses}
}

func (c *Cache) evict() {
	for c.max > 0 && c.lru.len > c.max {
		it := c.lru.tail
		c.lru.remove(it)
		delete(c.items, it.Key)
		if c.onEvict != nil {
			c.onEvict(it.Key, it.Report)
		}
	}
}

type snapshot struct {
	Version int     `msgpack:"version"`
	Entries []Entry `msgpack:"entries"`
}

// Save writes every entry, most recently used first, with msgpack.
func (c *Cache) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := snapshot{Version: formatVersion, Entries: make([]Entry, 0, len(c.items))}
	for it := c.lru.head; it != nil; it = it.next {
		snap.Entries = append(snap.Entries, it.Entry)
	}
	return msgpack.NewEncoder(w).Encode(&snap)
}

// Load replaces the contents of the cache with entries written by Save,
// keeping their recency order. Entries beyond MaxEntries are dropped.
func (c *Cache) Load(r io.Reader) error {
	var snap snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	if snap.Version != formatVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrIncompatible, snap.Version, formatVersion)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	for i := len(snap.Entries) - 1; i >= 0; i-- {
		e := snap.Entries[i]
		if e.Report == nil {
			continue
		}
		if old, ok := c.items[e.Key]; ok {
			c.lru.remove(old)
		}
		it := &item{Entry: e}
		c.items[e.Key] = it
		c.lru.pushFront(it)
	}
	c.evict()
	return nil
}

// PersistToFile saves the cache to path, creating its directory.
func PersistToFile(c *Cache, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFromFile loads the cache from path. A missing file leaves the cache
// empty.
func LoadFromFile(c *Cache, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	return c.Load(f)
}
