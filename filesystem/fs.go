package filesystem

import (
	"errors"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/brettbedarf/flatfs/config"
	"github.com/brettbedarf/flatfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FileSystem implements the flat directory's operation handlers over an
// owned [Store]. Every handler resolves its path to a name on each call; no
// per-open state is kept.
type FileSystem struct {
	cfg     *config.Config
	store   *Store
	created time.Time // root directory times
}

// NewFS creates a FileSystem with an empty store sized from cfg
func NewFS(cfg *config.Config) *FileSystem {
	return NewFSWithStore(cfg, NewStore(cfg.MaxEntries, cfg.MaxEntrySize))
}

// NewFSWithStore creates a FileSystem serving an existing store.
// The store's capacities take precedence over cfg.
func NewFSWithStore(cfg *config.Config, store *Store) *FileSystem {
	return &FileSystem{cfg: cfg, store: store, created: time.Now()}
}

func (fs *FileSystem) Store() *Store {
	return fs.store
}

// Stats is a point-in-time summary of store usage
type Stats struct {
	Entries      int
	MaxEntries   int
	UsedBytes    int
	MaxEntrySize int
}

func (fs *FileSystem) Stats() Stats {
	ctx := fs.store.ReadCtx()
	defer ctx.Close()
	return Stats{
		Entries:      ctx.Len(),
		MaxEntries:   fs.store.MaxEntries(),
		UsedBytes:    ctx.UsedBytes(),
		MaxEntrySize: fs.store.MaxEntrySize(),
	}
}

// resolve strips the leading separator; an empty result is the root
func resolve(path string) (name string, isRoot bool) {
	name = strings.TrimPrefix(path, Separator)
	return name, name == ""
}

// Attributes returns the directory attributes for the root and the file
// attributes of the named entry otherwise. Ino is left for the caller.
func (fs *FileSystem) Attributes(path string) (*fuse.Attr, error) {
	name, isRoot := resolve(path)
	if isRoot {
		attr := fs.newAttr(fs.created)
		attr.Mode = DirAttr | fs.cfg.DirMode
		attr.Nlink = 2
		return attr, nil
	}

	ctx := fs.store.ReadCtx()
	defer ctx.Close()
	i, err := ctx.Find(name)
	if err != nil {
		return nil, newError(OpGetattr, path, err)
	}
	e := ctx.Entry(i)
	attr := fs.newAttr(e.ModTime())
	attr.Mode = FileAttr | fs.cfg.FileMode
	attr.Size = uint64(e.Size())
	attr.Blocks = (attr.Size + 511) / 512
	return attr, nil
}

// ListDirectory enumerates ".", ".." and then every entry name in store
// order. The names are captured when ListDirectory is called; call it
// again to observe later changes.
func (fs *FileSystem) ListDirectory(path string) (iter.Seq[string], error) {
	if _, isRoot := resolve(path); !isRoot {
		return nil, newError(OpReadDir, path, ErrNotFound)
	}

	ctx := fs.store.ReadCtx()
	names := ctx.Names()
	ctx.Close()

	return func(yield func(string) bool) {
		if !yield(".") || !yield("..") {
			return
		}
		for _, name := range names {
			if !yield(name) {
				return
			}
		}
	}, nil
}

// Open only checks that the entry exists
func (fs *FileSystem) Open(path string) error {
	name, isRoot := resolve(path)
	if isRoot {
		return newError(OpOpen, path, ErrIsDir)
	}

	ctx := fs.store.ReadCtx()
	defer ctx.Close()
	if _, err := ctx.Find(name); err != nil {
		return newError(OpOpen, path, err)
	}
	return nil
}

// Read copies up to len(buf) bytes of the entry starting at offset.
// Offsets at or past the entry size read 0 bytes without error.
func (fs *FileSystem) Read(path string, buf []byte, offset int64) (int, error) {
	name, isRoot := resolve(path)
	if isRoot {
		return 0, newError(OpRead, path, ErrIsDir)
	}
	if offset < 0 {
		return 0, newError(OpRead, path, ErrInvalidOffset)
	}

	ctx := fs.store.ReadCtx()
	defer ctx.Close()
	i, err := ctx.Find(name)
	if err != nil {
		return 0, newError(OpRead, path, err)
	}
	return ctx.Entry(i).ReadAt(buf, offset), nil
}

// Write stores data at offset, creating the entry when it does not exist.
// The extent is clamped to the per-entry capacity and anything beyond it
// is dropped silently; the returned count is what was actually kept.
func (fs *FileSystem) Write(path string, data []byte, offset int64) (int, error) {
	logger := util.GetLogger("FS.Write")

	name, isRoot := resolve(path)
	if isRoot {
		return 0, newError(OpWrite, path, ErrIsDir)
	}
	if offset < 0 {
		return 0, newError(OpWrite, path, ErrInvalidOffset)
	}
	if err := fs.validateName(name); err != nil {
		return 0, newError(OpWrite, path, err)
	}

	ctx := fs.store.WriteCtx()
	defer ctx.Close()
	i, err := ctx.Find(name)
	if errors.Is(err, ErrNotFound) {
		if i, err = ctx.Insert(name); err != nil {
			logger.Warn().Err(err).Str("name", name).Int("entries", ctx.Len()).Msg("Store full, cannot create entry")
			return 0, newError(OpWrite, path, ErrNoSpace)
		}
		logger.Debug().Str("name", name).Int("entries", ctx.Len()).Msg("Created entry")
	}

	n := ctx.Entry(i).WriteAt(data, offset, fs.store.MaxEntrySize())
	if n < len(data) {
		logger.Debug().Str("name", name).Int64("offset", offset).Int("requested", len(data)).Int("written", n).
			Msg("Write clamped to entry capacity")
	}
	return n, nil
}

// Unlink removes the entry; the remaining entries keep their order
func (fs *FileSystem) Unlink(path string) error {
	name, isRoot := resolve(path)
	if isRoot {
		return newError(OpUnlink, path, ErrIsDir)
	}

	ctx := fs.store.WriteCtx()
	defer ctx.Close()
	i, err := ctx.Find(name)
	if err != nil {
		return newError(OpUnlink, path, err)
	}
	ctx.Remove(i)
	logger := util.GetLogger("FS.Unlink")
	logger.Debug().Str("name", name).Int("entries", ctx.Len()).Msg("Removed entry")
	return nil
}

// validateName rejects names that cannot live in a flat namespace.
// A separator implies a parent directory, which never exists.
func (fs *FileSystem) validateName(name string) error {
	if strings.Contains(name, Separator) {
		return ErrNotFound
	}
	if len(name) > fs.cfg.MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// newAttr returns the attributes shared by the root and all entries
// NOTE: Make sure to set the Mode field appropriately
func (fs *FileSystem) newAttr(mtime time.Time) *fuse.Attr {
	attr := &fuse.Attr{
		Nlink: 1,
		Owner: fuse.Owner{
			Uid: uint32(os.Getuid()),
			Gid: uint32(os.Getgid()),
		},
		Blksize: blockSize,
	}
	attr.SetTimes(&mtime, &mtime, &mtime)
	return attr
}
