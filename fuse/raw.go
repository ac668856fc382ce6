package fuse

import (
	"iter"
	"math"
	"time"

	"github.com/brettbedarf/flatfs/config"
	"github.com/brettbedarf/flatfs/filesystem"
	"github.com/brettbedarf/flatfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Handlers is the path based operation contract FuseRaw dispatches to.
// [filesystem.FileSystem] is the implementation.
type Handlers interface {
	Attributes(path string) (*fuse.Attr, error)
	ListDirectory(path string) (iter.Seq[string], error)
	Open(path string) error
	Read(path string, buf []byte, offset int64) (int, error)
	Write(path string, data []byte, offset int64) (int, error)
	Unlink(path string) error
	Stats() filesystem.Stats
}

var _ Handlers = (*filesystem.FileSystem)(nil)

// block size reported by statfs
const statfsBlockSize = 512

// FuseRaw implements the low-level FUSE wire protocol.
// It serves as protocol adapter between FUSE NodeIDs and the path based
// handlers. Anything not implemented here answers ENOSYS.
// See https://www.man7.org/linux//man-pages/man4/fuse.4.html
type FuseRaw struct {
	fuse.RawFileSystem
	fs     Handlers
	cfg    *config.Config
	nodes  *NodeRegistry
	server *fuse.Server
}

func NewFuseRaw(fs Handlers, cfg *config.Config) *FuseRaw {
	return &FuseRaw{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		fs:            fs,
		cfg:           cfg,
		nodes:         NewNodeRegistry(),
	}
}

func (r *FuseRaw) Init(s *fuse.Server) {
	logger := util.GetLogger("Fuse.Init")
	logger.Debug().Msg("FUSE initialized")
	r.server = s
}

func (r *FuseRaw) OnUnmount() {
	logger := util.GetLogger("Fuse.OnUnmount")
	logger.Info().Msg("FUSE unmounted")
}

func (r *FuseRaw) String() string {
	return "FuseRaw"
}

// Access is called when the kernel wants to know if the user has permission
// to access the node. There is no permission model beyond the fixed modes.
func (r *FuseRaw) Access(cancel <-chan struct{}, input *fuse.AccessIn) fuse.Status {
	return fuse.OK
}

// Lookup is called by the kernel when the VFS wants to know
// about a file inside a directory. Only the root has children.
func (r *FuseRaw) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	logger := util.GetLogger("Fuse.Lookup")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Lookup called")

	if header.NodeId != fuse.FUSE_ROOT_ID {
		return fuse.ENOTDIR
	}
	attr, err := r.fs.Attributes(filesystem.Separator + name)
	if err != nil {
		return r.status(logger, err)
	}
	r.fillEntryOut(out, r.nodes.Lookup(name), attr)
	return fuse.OK
}

// Forget is called when the kernel discards entries from its
// dentry cache. There is no return value, so nothing here may fail.
func (r *FuseRaw) Forget(nodeid, nlookup uint64) {
	r.nodes.Forget(nodeid, nlookup)
}

func (r *FuseRaw) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	logger := util.GetLogger("Fuse.GetAttr")
	logger.Trace().Uint64("node", input.NodeId).Msg("GetAttr called")

	return r.attrOut(logger, input.NodeId, out)
}

// SetAttr accepts mode, owner and time changes without applying them.
// Size changes are refused with ENOSYS since entries only change size
// through writes; a size equal to the current one is a no-op.
func (r *FuseRaw) SetAttr(cancel <-chan struct{}, input *fuse.SetAttrIn, out *fuse.AttrOut) fuse.Status {
	logger := util.GetLogger("Fuse.SetAttr")
	logger.Trace().Uint64("node", input.NodeId).Uint32("valid", input.Valid).Msg("SetAttr called")

	if st := r.attrOut(logger, input.NodeId, out); st != fuse.OK {
		return st
	}
	if input.Valid&fuse.FATTR_SIZE != 0 && input.Size != out.Size {
		logger.Debug().Uint64("node", input.NodeId).Uint64("size", out.Size).Uint64("requested", input.Size).
			Msg("Truncate not supported")
		return fuse.ENOSYS
	}
	return fuse.OK
}

// Create makes an empty entry through a zero length write and opens it
func (r *FuseRaw) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	logger := util.GetLogger("Fuse.Create")
	logger.Trace().Uint64("parent", input.NodeId).Str("name", name).Msg("Create called")

	if input.NodeId != fuse.FUSE_ROOT_ID {
		return fuse.ENOTDIR
	}
	path := filesystem.Separator + name
	if _, err := r.fs.Write(path, nil, 0); err != nil {
		return r.status(logger, err)
	}
	attr, err := r.fs.Attributes(path)
	if err != nil {
		return r.status(logger, err)
	}
	r.fillEntryOut(&out.EntryOut, r.nodes.Lookup(name), attr)
	out.OpenOut.OpenFlags = r.openFlags()
	return fuse.OK
}

// Open validates existence only; no file handle state is kept so Fh is 0
func (r *FuseRaw) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	logger := util.GetLogger("Fuse.Open")
	logger.Trace().Uint64("node", input.NodeId).Uint32("flags", input.Flags).Msg("Open called")

	path, ok := r.path(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	if err := r.fs.Open(path); err != nil {
		return r.status(logger, err)
	}
	out.OpenFlags = r.openFlags()
	return fuse.OK
}

func (r *FuseRaw) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	logger := util.GetLogger("Fuse.Read")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Uint32("size", input.Size).Msg("Read called")

	path, ok := r.path(input.NodeId)
	if !ok {
		return nil, fuse.ENOENT
	}
	size := min(int(input.Size), len(buf))
	n, err := r.fs.Read(path, buf[:size], toOffset(input.Offset))
	if err != nil {
		return nil, r.status(logger, err)
	}
	return fuse.ReadResultData(buf[:n]), fuse.OK
}

func (r *FuseRaw) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	logger := util.GetLogger("Fuse.Write")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Int("size", len(data)).Msg("Write called")

	path, ok := r.path(input.NodeId)
	if !ok {
		return 0, fuse.ENOENT
	}
	n, err := r.fs.Write(path, data, toOffset(input.Offset))
	if err != nil {
		return 0, r.status(logger, err)
	}
	return uint32(n), fuse.OK
}

func (r *FuseRaw) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	logger := util.GetLogger("Fuse.Unlink")
	logger.Trace().Uint64("parent", header.NodeId).Str("name", name).Msg("Unlink called")

	if header.NodeId != fuse.FUSE_ROOT_ID {
		return fuse.ENOTDIR
	}
	return r.status(logger, r.fs.Unlink(filesystem.Separator+name))
}

func (r *FuseRaw) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	logger := util.GetLogger("Fuse.OpenDir")
	logger.Trace().Uint64("node", input.NodeId).Msg("OpenDir called")

	path, ok := r.path(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	_, err := r.fs.ListDirectory(path)
	return r.status(logger, err)
}

// ReadDir lists the directory afresh on every call and resumes after the
// kernel supplied offset. Entry offsets are 1-based positions in the listing.
func (r *FuseRaw) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	logger := util.GetLogger("Fuse.ReadDir")
	logger.Trace().Uint64("node", input.NodeId).Uint64("offset", input.Offset).Msg("ReadDir called")

	path, ok := r.path(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	names, err := r.fs.ListDirectory(path)
	if err != nil {
		return r.status(logger, err)
	}

	var off uint64
	for name := range names {
		off++
		if off <= input.Offset {
			continue
		}
		entry := fuse.DirEntry{Name: name, Mode: filesystem.FileAttr, Off: off}
		switch name {
		case ".", "..":
			entry.Mode = filesystem.DirAttr
			entry.Ino = fuse.FUSE_ROOT_ID // parent of root is root
		default:
			if id, ok := r.nodes.Peek(name); ok {
				entry.Ino = id
			}
		}
		if !out.AddDirEntry(entry) {
			// buffer full; the kernel calls again from out.Offset
			break
		}
	}
	return fuse.OK
}

func (r *FuseRaw) StatFs(cancel <-chan struct{}, input *fuse.InHeader, out *fuse.StatfsOut) fuse.Status {
	st := r.fs.Stats()
	total := uint64(st.MaxEntries) * uint64(st.MaxEntrySize) / statfsBlockSize
	used := min((uint64(st.UsedBytes)+statfsBlockSize-1)/statfsBlockSize, total)

	out.Bsize = statfsBlockSize
	out.Frsize = statfsBlockSize
	out.Blocks = total
	out.Bfree = total - used
	out.Bavail = total - used
	out.Files = uint64(st.MaxEntries)
	out.Ffree = uint64(st.MaxEntries - st.Entries)
	out.NameLen = uint32(r.cfg.MaxNameLen)
	return fuse.OK
}

// attrOut fills out with the attributes of the node
func (r *FuseRaw) attrOut(logger util.Logger, nodeID uint64, out *fuse.AttrOut) fuse.Status {
	path, ok := r.path(nodeID)
	if !ok {
		logger.Debug().Uint64("node", nodeID).Msg("No node found")
		return fuse.ENOENT
	}
	attr, err := r.fs.Attributes(path)
	if err != nil {
		return r.status(logger, err)
	}
	out.Attr = *attr
	out.Ino = nodeID
	out.SetTimeout(seconds(r.cfg.AttrTimeout))
	return fuse.OK
}

func (r *FuseRaw) fillEntryOut(out *fuse.EntryOut, nodeID uint64, attr *fuse.Attr) {
	out.NodeId = nodeID
	out.Attr = *attr
	out.Ino = nodeID
	out.SetEntryTimeout(seconds(r.cfg.EntryTimeout))
	out.SetAttrTimeout(seconds(r.cfg.AttrTimeout))
}

// path resolves a NodeID to the handler path
func (r *FuseRaw) path(nodeID uint64) (string, bool) {
	name, ok := r.nodes.Name(nodeID)
	if !ok {
		return "", false
	}
	return filesystem.Separator + name, true
}

func (r *FuseRaw) openFlags() uint32 {
	if r.cfg.DirectIO {
		return fuse.FOPEN_DIRECT_IO
	}
	return 0
}

// status maps err and logs anything beyond a plain miss
func (r *FuseRaw) status(logger util.Logger, err error) fuse.Status {
	st := ToStatus(err)
	switch st {
	case fuse.OK:
	case fuse.ENOENT:
		logger.Trace().Err(err).Msg("Not found")
	default:
		logger.Debug().Err(err).Str("status", st.String()).Msg("Request failed")
	}
	return st
}

// toOffset clamps kernel offsets into the int64 range handlers accept
func toOffset(off uint64) int64 {
	if off > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(off)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
