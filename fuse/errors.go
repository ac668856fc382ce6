package fuse

import (
	"errors"
	"syscall"

	"github.com/brettbedarf/flatfs/filesystem"
	"github.com/brettbedarf/flatfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ToStatus converts a handler error into the errno FUSE replies with.
// Unknown errors become EIO.
func ToStatus(err error) fuse.Status {
	switch {
	case err == nil:
		return fuse.OK
	case errors.Is(err, filesystem.ErrNotFound):
		return fuse.ENOENT
	case errors.Is(err, filesystem.ErrNoSpace):
		return fuse.Status(syscall.ENOSPC)
	case errors.Is(err, filesystem.ErrNameTooLong):
		return fuse.Status(syscall.ENAMETOOLONG)
	case errors.Is(err, filesystem.ErrIsDir):
		return fuse.EISDIR
	case errors.Is(err, filesystem.ErrInvalidOffset):
		return fuse.EINVAL
	default:
		logger := util.GetLogger("Fuse.ToStatus")
		logger.Debug().Err(err).Msg("Unknown error type, returning EIO")
		return fuse.EIO
	}
}
