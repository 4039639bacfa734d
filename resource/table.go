package resource

import (
	"sync"
)

// Option configures a UnifiedTable.
type Option func(*UnifiedTable)

// WithLimit caps the number of live capabilities. 0 means no limit beyond
// the handle encoding.
func WithLimit(n int) Option {
	return func(t *UnifiedTable) {
		if n > 0 && n < maxEntries {
			t.limit = n
		}
	}
}

// WithObserver subscribes o before the first insert.
func WithObserver(o Observer) Option {
	return func(t *UnifiedTable) {
		if o != nil {
			t.observers = append(t.observers, o)
		}
	}
}

// UnifiedTable is the capability table owned by one session. Freed slots are
// reused with a bumped generation.
type UnifiedTable struct {
	mu       sync.RWMutex
	owner    string
	entries  []entry
	freeList []int
	live     int
	limit    int
	closed   bool

	obsMu     sync.RWMutex
	observers []Observer
}

type entry struct {
	value   any
	kind    Kind
	gen     uint8
	borrows uint32
	live    bool
}

// New creates a table owned by the given session.
func New(owner string, opts ...Option) *UnifiedTable {
	t := &UnifiedTable{
		owner:    owner,
		entries:  make([]entry, 0, 8),
		freeList: make([]int, 0, 4),
		limit:    maxEntries,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Owner returns the session that owns this table.
func (t *UnifiedTable) Owner() string {
	return t.owner
}

// Insert adds a value and returns its handle, or 0 once the table is closed
// or full.
func (t *UnifiedTable) Insert(kind Kind, value any) Handle {
	h, err := t.TryInsert(kind, value)
	if err != nil {
		return 0
	}
	return h
}

// TryInsert is Insert with the failure reason.
func (t *UnifiedTable) TryInsert(kind Kind, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}
	if t.live >= t.limit {
		t.mu.Unlock()
		return 0, ErrFull
	}

	var idx int
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		idx = len(t.entries)
		t.entries = append(t.entries, entry{})
	}
	e := &t.entries[idx]
	e.value, e.kind, e.borrows, e.live = value, kind, 0, true
	t.live++
	h := makeHandle(idx, e.gen)
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Kind: kind})
	return h, nil
}

// lookup returns the live entry for handle. Caller holds t.mu.
func (t *UnifiedTable) lookup(h Handle) *entry {
	if !h.valid() || h.index() >= len(t.entries) {
		return nil
	}
	e := &t.entries[h.index()]
	if !e.live || e.gen != h.gen() {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(h)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves a value only if it is of the expected kind.
func (t *UnifiedTable) GetTyped(h Handle, kind Kind) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(h)
	if e == nil || e.kind != kind {
		return nil, false
	}
	return e.value, true
}

// KindOf reports the kind a live handle refers to.
func (t *UnifiedTable) KindOf(h Handle) (Kind, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.lookup(h)
	if e == nil {
		return 0, false
	}
	return e.kind, true
}

// Remove drops a capability, running its Dropper, and returns (value, true).
// Unknown, stale and borrowed handles are not removed.
func (t *UnifiedTable) Remove(h Handle) (any, bool) {
	value, kind, err := t.drop(h)
	if err != nil {
		return nil, false
	}
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h, Kind: kind})
	return value, true
}

func (t *UnifiedTable) drop(h Handle) (any, Kind, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.lookup(h)
	if e == nil {
		return nil, 0, ErrInvalidHandle
	}
	if e.borrows > 0 {
		return nil, 0, ErrOutstandingBorrow
	}
	value, kind := e.value, e.kind
	*e = entry{gen: e.gen + 1}
	t.freeList = append(t.freeList, h.index())
	t.live--
	return value, kind, nil
}

// Borrow marks a handle as in use; Remove fails until it is returned.
func (t *UnifiedTable) Borrow(h Handle) bool {
	t.mu.Lock()
	e := t.lookup(h)
	if e == nil {
		t.mu.Unlock()
		return false
	}
	e.borrows++
	kind := e.kind
	t.mu.Unlock()

	t.notify(Event{Type: EventBorrowed, Handle: h, Kind: kind})
	return true
}

// ReturnBorrow releases one borrow taken with Borrow.
func (t *UnifiedTable) ReturnBorrow(h Handle) bool {
	t.mu.Lock()
	e := t.lookup(h)
	if e == nil || e.borrows == 0 {
		t.mu.Unlock()
		return false
	}
	e.borrows--
	kind := e.kind
	t.mu.Unlock()

	t.notify(Event{Type: EventBorrowReturned, Handle: h, Kind: kind})
	return true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live capabilities.
func (t *UnifiedTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Counts returns the number of live capabilities per kind.
func (t *UnifiedTable) Counts() map[Kind]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Kind]int)
	for _, e := range t.entries {
		if e.live {
			out[e.kind]++
		}
	}
	return out
}

// Close drops every live capability regardless of borrows and stops
// accepting inserts. Subsequent calls are no-ops.
func (t *UnifiedTable) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	entries := t.entries
	t.entries = nil
	t.freeList = nil
	t.live = 0
	t.mu.Unlock()

	// Destructors may call back into the owner; run them unlocked.
	for i := range entries {
		e := &entries[i]
		if !e.live {
			continue
		}
		if d, ok := e.value.(Dropper); ok {
			d.Drop()
		}
		t.notify(Event{Type: EventDropped, Handle: makeHandle(i, e.gen), Kind: e.kind})
	}
	return nil
}

func (t *UnifiedTable) notify(e Event) {
	e.Owner = t.owner
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}

var _ Table = (*UnifiedTable)(nil)
