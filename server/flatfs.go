package server

import (
	"github.com/brettbedarf/flatfs/config"
	"github.com/brettbedarf/flatfs/filesystem"
	ffuse "github.com/brettbedarf/flatfs/fuse"
	"github.com/brettbedarf/flatfs/internal/util"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// FlatFs contains the entry store and handlers with abstractions
// over the underlying FUSE wire protocol implementation
type FlatFs struct {
	*filesystem.FileSystem
	cfg    *config.Config
	server *fuse.Server
}

// New creates a FlatFs instance given your config.
func New(cfg *config.Config) *FlatFs {
	return &FlatFs{
		filesystem.NewFS(cfg),
		cfg,
		nil,
	}
}

// mountOptions translates the config into go-fuse mount options
func (fs *FlatFs) mountOptions() *fuse.MountOptions {
	opts := fs.cfg.MountOptions
	return &fuse.MountOptions{
		Name:        opts.Name,
		FsName:      opts.FsName,
		AllowOther:  opts.AllowOther,
		DirectMount: opts.DirectMount,
		Debug:       opts.Debug,
		Logger:      util.NewLogLogger("FuseServer", util.DebugLevel),
		MaxWrite:    fs.cfg.MaxWrite,
		// ReadDir has no attributes to hand out with each name
		DisableReadDirPlus: true,
	}
}

// Serve mounts and serves the filesystem at the given mountPoint.
func (fs *FlatFs) Serve(mountPoint string) error {
	logger := util.GetLogger("Server")

	raw := ffuse.NewFuseRaw(fs.FileSystem, fs.cfg)
	srv, err := fuse.NewServer(raw, mountPoint, fs.mountOptions())
	if err != nil {
		return err
	}
	fs.server = srv

	go srv.Serve()
	if err := srv.WaitMount(); err != nil {
		return err
	}
	logger.Debug().Str("mountpoint", mountPoint).Int("maxEntries", fs.cfg.MaxEntries).
		Int("maxEntrySize", fs.cfg.MaxEntrySize).Msg("Mounted")
	return nil
}

func (fs *FlatFs) ServeAsync(mountPoint string) <-chan error {
	done := make(chan error, 1)

	go func() {
		done <- fs.Serve(mountPoint)
		close(done)
	}()

	return done
}

// Wait blocks until the filesystem is unmounted.
func (fs *FlatFs) Wait() {
	if fs.server != nil {
		fs.server.Wait()
	}
}

// Unmount cleanly unmounts the filesystem.
func (fs *FlatFs) Unmount() error {
	if fs.server == nil {
		return nil
	}
	return fs.server.Unmount()
}
