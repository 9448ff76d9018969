package lens

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache memoizes compiled lenses for one consumer, so a path that did not
// change is not recompiled on every access.
//
// Entries live in two generations: when the head generation reaches maxSize
// it becomes the tail and a fresh head is started. A hit in the tail is
// promoted back into the head.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	head    map[uint64][]Lens
	tail    map[uint64][]Lens
	size    int

	hits, misses int
}

// NewCache returns a cache holding up to maxSize lenses per generation.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		panic("lens cache: maxSize should be greater than 0")
	}
	return &Cache{
		maxSize: maxSize,
		head:    make(map[uint64][]Lens),
		tail:    make(map[uint64][]Lens),
	}
}

// Get returns the lens for path, compiling it on a miss.
func (c *Cache) Get(path ...Key) Lens {
	d := digest(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := lookup(c.head, d, path); ok {
		c.hits++
		return l
	}
	if l, ok := lookup(c.tail, d, path); ok {
		c.hits++
		c.store(d, l)
		return l
	}

	c.misses++
	l := Make(path...)
	c.store(d, l)
	return l
}

// Stats returns the number of hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) store(d uint64, l Lens) {
	if c.size >= c.maxSize {
		c.tail = c.head
		c.head = make(map[uint64][]Lens)
		c.size = 0
	}
	c.head[d] = append(c.head[d], l)
	c.size++
}

func lookup(gen map[uint64][]Lens, d uint64, path []Key) (Lens, bool) {
	for _, l := range gen[d] {
		if slices.Equal(l.path, path) {
			return l, true
		}
	}
	return Lens{}, false
}

func digest(path []Key) uint64 {
	h := xxhash.New()
	for _, k := range path {
		switch k := k.(type) {
		case string:
			_, _ = h.WriteString("s")
			_, _ = h.WriteString(k)
		case int:
			_, _ = h.WriteString("i")
			_, _ = h.WriteString(strconv.Itoa(k))
		default:
			_, _ = h.WriteString(fmt.Sprintf("%T:%v", k, k))
		}
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
