package mitigation

import (
	"container/list"
	"sync"
)

// DenylistEntry describes one actively denied source.
type DenylistEntry struct {
	SrcAddr    string  `json:"src_addr"`
	DetectedAt float64 `json:"detected_at"`
}

// Denylist is the bounded set of sources whose traffic is being dropped.
// Insertion order equals detection order, so capacity eviction removes the
// front of the list: the least recently detected source. The packet path
// only takes read locks; writes happen on (re)detection and eviction.
type Denylist struct {
	mu       sync.RWMutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest detection
}

// NewDenylist creates a denylist bounded to capacity entries.
func NewDenylist(capacity int) *Denylist {
	return &Denylist{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Contains reports whether the source is currently denied.
func (d *Denylist) Contains(src string) bool {
	d.mu.RLock()
	_, ok := d.items[src]
	d.mu.RUnlock()
	return ok
}

// Add inserts a newly detected source. When the table is full, the oldest
// detection is evicted to admit the new one; the evicted source address is
// returned so callers can propagate the change. Adding an already denied
// source is a no-op.
func (d *Denylist) Add(src string, detectedAt float64) (evicted string, inserted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.items[src]; ok {
		return "", false
	}

	if d.capacity > 0 && d.order.Len() >= d.capacity {
		front := d.order.Front()
		old := front.Value.(*DenylistEntry)
		d.order.Remove(front)
		delete(d.items, old.SrcAddr)
		evicted = old.SrcAddr
	}

	d.items[src] = d.order.PushBack(&DenylistEntry{SrcAddr: src, DetectedAt: detectedAt})
	return evicted, true
}

// Len returns the current number of denied sources.
func (d *Denylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.order.Len()
}

// Entries returns a copy of the denylist in detection order.
func (d *Denylist) Entries() []DenylistEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]DenylistEntry, 0, d.order.Len())
	for e := d.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*DenylistEntry))
	}
	return out
}
