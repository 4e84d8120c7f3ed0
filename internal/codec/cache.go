package codec

import (
	"sync"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// schemaCache holds the two lookup directions C1 needs: subject→id (for
// serialize) and id→schema (for deserialize). Both are bounded LRUs;
// maxEntries <= 0 means unbounded for the test lifetime, matching spec's
// default cache policy. Grounded on the LRU shape the teacher uses for
// geocoder results, generalized from one map to the pair C1 needs and
// from float-keyed coordinates to string subjects/int ids.
type schemaCache struct {
	subjectToID *lruCache[string, int]
	idToSchema  *lruCache[int, domain.RegisteredSchema]
}

func newSchemaCache(maxEntries int) *schemaCache {
	return &schemaCache{
		subjectToID: newLRUCache[string, int](maxEntries),
		idToSchema:  newLRUCache[int, domain.RegisteredSchema](maxEntries),
	}
}

func (c *schemaCache) lookupID(subject string) (int, bool) {
	return c.subjectToID.get(subject)
}

func (c *schemaCache) lookupSchema(id int) (domain.RegisteredSchema, bool) {
	return c.idToSchema.get(id)
}

func (c *schemaCache) store(schema domain.RegisteredSchema) {
	c.subjectToID.put(schema.Subject, schema.SchemaID)
	c.idToSchema.put(schema.SchemaID, schema)
}

// reset clears both directions; the cache is otherwise never invalidated.
func (c *schemaCache) reset() {
	c.subjectToID.reset()
	c.idToSchema.reset()
}

// lruCache is a generic thread-safe LRU, doubly-linked-list-backed, the
// same shape as the teacher's geocoder result cache generalized from a
// single key/value type to any comparable key and any value.
type lruCache[K comparable, V any] struct {
	maxEntries int // <= 0 means unbounded
	mu         sync.Mutex
	entries    map[K]*lruEntry[K, V]
	head       *lruEntry[K, V]
	tail       *lruEntry[K, V]
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	prev  *lruEntry[K, V]
	next  *lruEntry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*lruEntry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &lruEntry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*lruEntry[K, V])
	c.head = nil
	c.tail = nil
}

func (c *lruCache[K, V]) moveToFront(e *lruEntry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *lruEntry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *lruEntry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
