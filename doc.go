// Package flatfs is an in-memory FUSE filesystem exposing a bounded set of
// named byte buffers as a single flat directory.
//
// The filesystem package holds the entry store and the operation handlers,
// the fuse package bridges them to the kernel through go-fuse's raw
// protocol, and server manages the mount.
package flatfs
