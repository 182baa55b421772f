package emvid

import (
	"container/list"
	"sync"
)

// FrameCache keeps recently displayed frames around for backward stepping
// and cheap re-display, bounded by a byte budget. Eviction is oldest-first
// by insertion order. The cache is owned by the consumer side of the frame
// channel; the decode worker never touches it.
type FrameCache struct {
	mu       sync.Mutex
	budget   int
	resident int
	order    *list.List // front = oldest
	entries  map[int64]*list.Element
	pinned   int64 // sequence index that must survive eviction, -1 if none
}

type cacheEntry struct {
	seq   int64
	frame *VideoFrame
}

// NewFrameCache creates a cache with the given byte budget. A zero or
// negative budget disables caching entirely.
func NewFrameCache(budgetBytes int) *FrameCache {
	return &FrameCache{
		budget:  budgetBytes,
		order:   list.New(),
		entries: make(map[int64]*list.Element),
		pinned:  -1,
	}
}

// Insert stores a frame under its sequence index and evicts oldest entries
// until the resident size fits the budget again. Frames larger than the
// whole budget are not retained.
func (fc *FrameCache) Insert(seq int64, frame *VideoFrame) {
	if fc.budget <= 0 || frame == nil || frame.ByteSize() > fc.budget {
		return
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if el, ok := fc.entries[seq]; ok {
		old := el.Value.(*cacheEntry)
		fc.resident -= old.frame.ByteSize()
		old.frame = frame
		fc.resident += frame.ByteSize()
		fc.order.MoveToBack(el)
	} else {
		el := fc.order.PushBack(&cacheEntry{seq: seq, frame: frame})
		fc.entries[seq] = el
		fc.resident += frame.ByteSize()
	}
	fc.evictLocked()
}

// Get returns the cached frame for a sequence index, if resident.
func (fc *FrameCache) Get(seq int64) (*VideoFrame, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	el, ok := fc.entries[seq]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).frame, true
}

// Pin marks the sequence index of the frame currently on screen. A pinned
// frame is skipped during eviction so a paused player can always re-display
// it. Pass a negative index to unpin.
func (fc *FrameCache) Pin(seq int64) {
	fc.mu.Lock()
	fc.pinned = seq
	fc.mu.Unlock()
}

// Clear drops every entry. Called on seek and source replacement: cached
// frames are no longer contiguous with the new decode position.
func (fc *FrameCache) Clear() {
	fc.mu.Lock()
	fc.order.Init()
	clear(fc.entries)
	fc.resident = 0
	fc.pinned = -1
	fc.mu.Unlock()
}

// Resident returns the current resident byte size.
func (fc *FrameCache) Resident() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.resident
}

// Budget returns the configured byte budget.
func (fc *FrameCache) Budget() int { return fc.budget }

func (fc *FrameCache) evictLocked() {
	el := fc.order.Front()
	for fc.resident > fc.budget && el != nil {
		entry := el.Value.(*cacheEntry)
		next := el.Next()
		if entry.seq != fc.pinned {
			fc.order.Remove(el)
			delete(fc.entries, entry.seq)
			fc.resident -= entry.frame.ByteSize()
		}
		el = next
	}
}
