package fuse

import (
	"sync/atomic"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/puzpuzpuz/xsync/v4"
)

// nodeRef is one kernel-visible node: the entry name plus the number of
// lookups the kernel has not yet forgotten
type nodeRef struct {
	id      uint64
	name    string
	lookups atomic.Uint64
}

// NodeRegistry maps kernel NodeIDs to entry names. IDs are allocated on
// lookup and released once the kernel forgets every reference. The root
// is always [fuse.FUSE_ROOT_ID] and never registered.
type NodeRegistry struct {
	lastID atomic.Uint64
	byID   *xsync.Map[uint64, *nodeRef]
	byName *xsync.Map[string, *nodeRef]
}

func NewNodeRegistry() *NodeRegistry {
	r := &NodeRegistry{
		byID:   xsync.NewMap[uint64, *nodeRef](),
		byName: xsync.NewMap[string, *nodeRef](),
	}
	r.lastID.Store(fuse.FUSE_ROOT_ID)
	return r
}

// Lookup returns the NodeID for name, allocating one if needed, and counts
// one kernel reference against it.
func (r *NodeRegistry) Lookup(name string) uint64 {
	ref, _ := r.byName.Compute(name, func(ref *nodeRef, loaded bool) (*nodeRef, xsync.ComputeOp) {
		if !loaded {
			ref = &nodeRef{id: r.lastID.Add(1), name: name}
			r.byID.Store(ref.id, ref)
		}
		ref.lookups.Add(1)
		return ref, xsync.UpdateOp
	})
	return ref.id
}

// Peek returns the NodeID for name without allocating or counting a reference
func (r *NodeRegistry) Peek(name string) (uint64, bool) {
	if ref, ok := r.byName.Load(name); ok {
		return ref.id, true
	}
	return 0, false
}

// Name resolves a NodeID back to its entry name. The root resolves to "".
func (r *NodeRegistry) Name(id uint64) (string, bool) {
	if id == fuse.FUSE_ROOT_ID {
		return "", true
	}
	if ref, ok := r.byID.Load(id); ok {
		return ref.name, true
	}
	return "", false
}

// Forget drops nlookup references from id and releases the ID when none remain
func (r *NodeRegistry) Forget(id, nlookup uint64) {
	ref, ok := r.byID.Load(id)
	if !ok {
		return
	}
	r.byName.Compute(ref.name, func(cur *nodeRef, loaded bool) (*nodeRef, xsync.ComputeOp) {
		if !loaded || cur != ref {
			return cur, xsync.CancelOp
		}
		if left := cur.lookups.Load(); nlookup < left {
			cur.lookups.Store(left - nlookup)
			return cur, xsync.CancelOp
		}
		r.byID.Delete(id)
		return nil, xsync.DeleteOp
	})
}

// Size returns the number of registered nodes, root excluded
func (r *NodeRegistry) Size() int {
	return r.byID.Size()
}
