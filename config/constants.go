package config

import "github.com/brettbedarf/flatfs/internal/util"

// Bytes per KB
const KB = 1024

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "flatfs"
	DefaultName   = "flatfs"

	DefaultLogLvl = util.InfoLevel

	// DefaultMaxEntries is the number of entries the store holds before
	// creation fails with ENOSPC
	DefaultMaxEntries = 100

	// DefaultMaxEntrySize is the per-entry byte capacity; writes past it are clamped
	DefaultMaxEntrySize = 1 * KB

	// DefaultMaxNameLen matches NAME_MAX on Linux
	DefaultMaxNameLen = 255

	DefaultFileMode = 0o644
	DefaultDirMode  = 0o755

	// DefaultMaxWrite is the maximum write size per FUSE request
	DefaultMaxWrite = 128 * KB

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO bypasses the kernel page cache so reads always see the
	// current store contents
	DefaultDirectIO = true
)

// CLI verbosity values accepted by [ConfigOverride].LogLvl
const (
	ErrorVerbose = iota + util.MinVerbosity
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)
