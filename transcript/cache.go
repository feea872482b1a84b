package transcript

import "github.com/PiggyPlex/dogehouse/message"

// Cache holds the two most recent full reconstructions of the chat
// panel: current and previous. It is never patched incrementally — a
// pass replaces the current generation wholesale and the prior one is
// kept only for the comparison.
//
// Emission policy: the last element of the new generation is compared
// against the last element of the previous one. If they differ, that
// last element is "the one new message". This assumes messages are only
// appended and that at most one arrives per mutation batch; several
// messages landing in a single batch surface only the last. That
// limitation is deliberate and covered by tests — diffing the full list
// would change delivery semantics for every consumer.
type Cache struct {
	prev []message.Record
	cur  []message.Record
}

// NewCache returns an empty two-generation cache.
func NewCache() *Cache {
	return &Cache{}
}

// Advance installs next as the current generation and reports whether
// its last element is a new message. The first non-empty generation
// always emits: there is no previous last element to match it.
//
// Not safe for concurrent use; the observation pipeline advances the
// cache from a single goroutine.
func (c *Cache) Advance(next []message.Record) (message.Record, bool) {
	c.prev = c.cur
	c.cur = next

	if len(next) == 0 {
		return message.Record{}, false
	}
	last := next[len(next)-1]
	if len(c.prev) > 0 && c.prev[len(c.prev)-1].Equal(last) {
		return message.Record{}, false
	}
	return last, true
}

// Len returns the size of the current generation.
func (c *Cache) Len() int {
	return len(c.cur)
}

// Current returns the current generation. The slice is shared with the
// cache; callers must not mutate it.
func (c *Cache) Current() []message.Record {
	return c.cur
}
