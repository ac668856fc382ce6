package fuse

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRegistry_RootAlwaysResolves(t *testing.T) {
	t.Parallel()

	r := NewNodeRegistry()
	name, ok := r.Name(fuse.FUSE_ROOT_ID)

	assert.True(t, ok)
	assert.Equal(t, "", name)
	assert.Equal(t, 0, r.Size())
}

func TestNodeRegistry_LookupAllocatesOncePerName(t *testing.T) {
	t.Parallel()

	r := NewNodeRegistry()
	a := r.Lookup("a")
	b := r.Lookup("b")

	assert.NotEqual(t, uint64(fuse.FUSE_ROOT_ID), a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, r.Lookup("a"), "same name must keep its id")

	name, ok := r.Name(b)
	require.True(t, ok)
	assert.Equal(t, "b", name)
	assert.Equal(t, 2, r.Size())
}

func TestNodeRegistry_PeekDoesNotAllocate(t *testing.T) {
	t.Parallel()

	r := NewNodeRegistry()
	_, ok := r.Peek("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Size())

	id := r.Lookup("x")
	got, ok := r.Peek("x")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestNodeRegistry_Forget(t *testing.T) {
	t.Parallel()

	r := NewNodeRegistry()
	id := r.Lookup("f")
	r.Lookup("f")

	r.Forget(id, 1)
	_, ok := r.Name(id)
	assert.True(t, ok, "one reference is still held")

	r.Forget(id, 1)
	_, ok = r.Name(id)
	assert.False(t, ok)
	_, ok = r.Peek("f")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Size())

	// unknown ids are ignored
	r.Forget(12345, 1)

	again := r.Lookup("f")
	assert.NotEqual(t, id, again, "released ids are not reused")
}

func TestNodeRegistry_ConcurrentLookup(t *testing.T) {
	t.Parallel()

	r := NewNodeRegistry()
	const workers = 16
	ids := make([]uint64, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			ids[i] = r.Lookup("shared")
			r.Lookup(fmt.Sprintf("own-%d", i))
		})
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, workers+1, r.Size())

	r.Forget(ids[0], workers)
	_, ok := r.Peek("shared")
	assert.False(t, ok)
}
