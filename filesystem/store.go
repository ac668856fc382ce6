package filesystem

import (
	"sync"
	"time"
)

// Entry is one named in-memory byte buffer. Its size is len(data), which
// never exceeds the owning store's per-entry capacity.
type Entry struct {
	name  string
	data  []byte
	mtime time.Time
}

func (e *Entry) Name() string { return e.name }

func (e *Entry) Size() int { return len(e.data) }

// ModTime is the time the entry was created or last written
func (e *Entry) ModTime() time.Time { return e.mtime }

// ReadAt copies the valid bytes starting at off into p and returns the count.
// Reads at or past the end return 0.
func (e *Entry) ReadAt(p []byte, off int64) int {
	if off < 0 || off >= int64(len(e.data)) {
		return 0
	}
	return copy(p, e.data[off:])
}

// WriteAt copies p into the entry at off. The write extent off+len(p) is
// clamped to capacity and bytes beyond it are dropped. The size grows to the
// extent when it is larger; bytes between the old end and off read back as
// zero. A write starting at or past capacity keeps nothing but still grows
// the size to capacity. Returns the number of bytes kept.
func (e *Entry) WriteAt(p []byte, off int64, capacity int) int {
	if off < 0 {
		return 0
	}
	end := min(off+int64(len(p)), int64(capacity))
	if end > int64(len(e.data)) {
		e.data = append(e.data, make([]byte, int(end)-len(e.data))...)
	}
	n := 0
	if end > off {
		n = copy(e.data[off:end], p)
	}
	e.mtime = time.Now()
	return n
}

// Store is the bounded, ordered table of entries. All access goes through a
// [StoreContext] which holds the store lock until closed.
type Store struct {
	maxEntries   int
	maxEntrySize int
	entries      []*Entry // contiguous, insertion ordered
	mu           sync.RWMutex
}

func NewStore(maxEntries, maxEntrySize int) *Store {
	return &Store{
		maxEntries:   maxEntries,
		maxEntrySize: maxEntrySize,
		entries:      make([]*Entry, 0, maxEntries),
	}
}

func (s *Store) MaxEntries() int { return s.maxEntries }

func (s *Store) MaxEntrySize() int { return s.maxEntrySize }

// Len returns the current cardinality under a brief read-lock
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ReadCtx RLocks the store and returns a context for lookups only.
// Caller is responsible for closing the context when done `defer ctx.Close()`.
func (s *Store) ReadCtx() *StoreContext {
	s.mu.RLock()
	ctx := &StoreContext{store: s}
	ctx.AddClose(s.mu.RUnlock)
	return ctx
}

// WriteCtx Locks the store and returns a context permitting Insert and Remove.
// Caller is responsible for closing the context when done `defer ctx.Close()`.
func (s *Store) WriteCtx() *StoreContext {
	s.mu.Lock()
	ctx := &StoreContext{store: s, writable: true}
	ctx.AddClose(s.mu.Unlock)
	return ctx
}

// StoreContext wraps a locked [Store]. Calling Close() unwinds all
// unlocking/cleanup callbacks in reverse order.
//
// NOTE: StoreContext itself is **not** thread-safe meaning references
// to it should not be shared between goroutines
type StoreContext struct {
	store    *Store
	writable bool
	closeFns []func()
}

// Find returns the index of the entry named name or [ErrNotFound].
// Names are compared byte for byte.
func (ctx *StoreContext) Find(name string) (int, error) {
	for i, e := range ctx.store.entries {
		if e.name == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

// Insert appends a zero-length entry and returns its index, or
// [ErrCapacityExceeded] when the table is full. It does not check for
// duplicates; callers Find first.
func (ctx *StoreContext) Insert(name string) (int, error) {
	ctx.mustWrite("Insert")
	s := ctx.store
	if len(s.entries) >= s.maxEntries {
		return -1, ErrCapacityExceeded
	}
	s.entries = append(s.entries, &Entry{name: name, mtime: time.Now()})
	return len(s.entries) - 1, nil
}

// Remove deletes the entry at index, shifting the later entries down so the
// table stays contiguous and ordered.
func (ctx *StoreContext) Remove(index int) {
	ctx.mustWrite("Remove")
	s := ctx.store
	copy(s.entries[index:], s.entries[index+1:])
	s.entries[len(s.entries)-1] = nil
	s.entries = s.entries[:len(s.entries)-1]
}

// Entry returns the entry at index. The pointer must not be used after Close().
func (ctx *StoreContext) Entry(index int) *Entry {
	return ctx.store.entries[index]
}

func (ctx *StoreContext) Len() int {
	return len(ctx.store.entries)
}

// Names returns a copy of the entry names in store order
func (ctx *StoreContext) Names() []string {
	names := make([]string, len(ctx.store.entries))
	for i, e := range ctx.store.entries {
		names[i] = e.name
	}
	return names
}

// UsedBytes sums the size of every entry
func (ctx *StoreContext) UsedBytes() int {
	total := 0
	for _, e := range ctx.store.entries {
		total += len(e.data)
	}
	return total
}

func (ctx *StoreContext) mustWrite(op string) {
	if !ctx.writable {
		panic("filesystem: " + op + " on read-only StoreContext")
	}
}

// AddClose pushes a cleanup callback (e.g., unlock) onto the end of the stack.
func (ctx *StoreContext) AddClose(fn func()) {
	ctx.closeFns = append(ctx.closeFns, fn)
}

// Close unwinds all cleanup callbacks in reverse order.
// Safe to call even if ctx is nil or already closed, so you can
// `defer ctx.Close()` unconditionally.
func (ctx *StoreContext) Close() {
	if ctx == nil {
		return
	}
	for i := len(ctx.closeFns) - 1; i >= 0; i-- {
		ctx.closeFns[i]()
	}
	ctx.closeFns = nil
}
