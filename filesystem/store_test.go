package filesystem

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertNames fills the store with names in order
func insertNames(t *testing.T, s *Store, names ...string) {
	t.Helper()
	ctx := s.WriteCtx()
	defer ctx.Close()
	for _, name := range names {
		_, err := ctx.Insert(name)
		require.NoError(t, err)
	}
}

func TestStore_Find(t *testing.T) {
	t.Parallel()

	s := NewStore(4, 16)
	insertNames(t, s, "a", "B", "c")

	ctx := s.ReadCtx()
	defer ctx.Close()

	i, err := ctx.Find("B")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = ctx.Find("b")
	assert.ErrorIs(t, err, ErrNotFound, "lookups must not fold case")

	_, err = ctx.Find("/a")
	assert.ErrorIs(t, err, ErrNotFound, "lookups must not normalize")
}

func TestStore_InsertUpToCapacity(t *testing.T) {
	t.Parallel()

	s := NewStore(2, 16)
	ctx := s.WriteCtx()
	defer ctx.Close()

	i, err := ctx.Insert("a")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = ctx.Insert("b")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = ctx.Insert("c")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 2, ctx.Len())
	assert.Equal(t, 0, ctx.Entry(1).Size(), "new entries must be empty")
}

func TestStore_RemoveKeepsOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		remove string
		want   []string
	}{
		{"first", "a", []string{"b", "c", "d"}},
		{"middle", "b", []string{"a", "c", "d"}},
		{"last", "d", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewStore(4, 16)
			insertNames(t, s, "a", "b", "c", "d")

			ctx := s.WriteCtx()
			i, err := ctx.Find(tt.remove)
			require.NoError(t, err)
			ctx.Remove(i)
			names := ctx.Names()
			ctx.Close()

			assert.Equal(t, tt.want, names)
			assert.Equal(t, 3, s.Len())
		})
	}
}

func TestStore_RemoveFreesSlot(t *testing.T) {
	t.Parallel()

	s := NewStore(1, 16)
	insertNames(t, s, "a")

	ctx := s.WriteCtx()
	defer ctx.Close()
	_, err := ctx.Insert("b")
	require.ErrorIs(t, err, ErrCapacityExceeded)

	ctx.Remove(0)
	_, err = ctx.Insert("b")
	require.NoError(t, err)
	_, err = ctx.Insert("c")
	assert.ErrorIs(t, err, ErrCapacityExceeded, "exactly one slot must be freed")
}

func TestStoreContext_ReadOnlyMutationPanics(t *testing.T) {
	t.Parallel()

	s := NewStore(2, 16)
	ctx := s.ReadCtx()
	defer ctx.Close()

	assert.Panics(t, func() { _, _ = ctx.Insert("a") })
	assert.Panics(t, func() { ctx.Remove(0) })
}

func TestStoreContext_CloseUnwindsInReverse(t *testing.T) {
	t.Parallel()

	s := NewStore(1, 1)
	ctx := s.WriteCtx()
	var order []int
	ctx.AddClose(func() { order = append(order, 1) })
	ctx.AddClose(func() { order = append(order, 2) })

	ctx.Close()
	ctx.Close() // second close is a no-op

	assert.Equal(t, []int{2, 1}, order)
	// lock must have been released
	w := s.WriteCtx()
	w.Close()

	var nilCtx *StoreContext
	assert.NotPanics(t, nilCtx.Close)
}

func TestEntry_WriteAt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		initial  string
		data     string
		offset   int64
		capacity int
		wantN    int
		want     string
	}{
		{"fresh", "", "hello", 0, 8, 5, "hello"},
		{"overwrite middle", "hello", "EL", 1, 8, 2, "hELlo"},
		{"extend", "hello", "world", 5, 16, 5, "helloworld"},
		{"clamped", "", "abcdef", 0, 4, 4, "abcd"},
		{"clamped at offset", "ab", "cdef", 2, 4, 2, "abcd"},
		{"gap zero filled", "a", "z", 3, 8, 1, "a\x00\x00z"},
		{"at capacity", "", "xy", 4, 4, 0, "\x00\x00\x00\x00"},
		{"past capacity", "ab", "xy", 9, 4, 0, "ab\x00\x00"},
		{"empty write extends", "", "", 2, 8, 0, "\x00\x00"},
		{"empty write inside", "abc", "", 1, 8, 0, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := &Entry{name: "e", data: []byte(tt.initial)}

			n := e.WriteAt([]byte(tt.data), tt.offset, tt.capacity)

			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.want, string(e.data))
			assert.LessOrEqual(t, e.Size(), tt.capacity)
		})
	}
}

func TestEntry_ReadAt(t *testing.T) {
	t.Parallel()

	e := &Entry{name: "e", data: []byte("hello")}
	buf := make([]byte, 10)

	assert.Equal(t, 5, e.ReadAt(buf, 0))
	assert.Equal(t, "hello", string(buf[:5]))
	assert.Equal(t, 2, e.ReadAt(buf[:2], 1))
	assert.Equal(t, "el", string(buf[:2]))
	assert.Equal(t, 0, e.ReadAt(buf, 5))
	assert.Equal(t, 0, e.ReadAt(buf, 50))
	assert.Equal(t, 0, e.ReadAt(buf, -1))
}

func TestStore_ConcurrentInsertNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 10
	s := NewStore(capacity, 16)
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0

	for i := range 50 {
		wg.Go(func() {
			ctx := s.WriteCtx()
			defer ctx.Close()
			if _, err := ctx.Insert(fmt.Sprintf("e%d", i)); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, capacity, inserted)
	assert.Equal(t, capacity, s.Len())
}
