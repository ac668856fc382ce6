package filesystem

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/brettbedarf/flatfs"
	"github.com/brettbedarf/flatfs/internal/util"
)

// Seed resolves req's sources in priority order and writes the first
// content that resolves into the named entry. Source failures fall through
// to the next source; store failures (full, bad name) are returned as is.
func (fs *FileSystem) Seed(ctx context.Context, req *flatfs.SeedRequest) (int, error) {
	logger := util.GetLogger("FS.Seed").With().Str("uuid", req.UUID).Str("name", req.Name).Logger()

	sources := slices.Clone(req.Sources)
	slices.SortStableFunc(sources, func(a, b flatfs.ContentSource) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	errs := []error{ErrNoSource}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, newError(OpSeed, req.Name, err)
		}
		adapter, err := src.Adapter()
		if err != nil {
			logger.Warn().Err(err).Int("priority", src.Priority).Msg("Failed to create adapter")
			errs = append(errs, err)
			continue
		}
		data, err := adapter.Content(ctx)
		if err != nil {
			logger.Warn().Err(err).Int("priority", src.Priority).Msg("Failed to resolve content")
			errs = append(errs, err)
			continue
		}

		n, err := fs.Write(Separator+req.Name, data, req.Offset)
		if err != nil {
			return n, err
		}
		logger.Debug().Int("bytes", n).Int("priority", src.Priority).Msg("Seeded entry")
		return n, nil
	}
	return 0, newError(OpSeed, req.Name, errors.Join(errs...))
}

// SeedAll applies every request, continuing past failures. It returns the
// number of entries seeded and the joined failures.
func (fs *FileSystem) SeedAll(ctx context.Context, reqs []*flatfs.SeedRequest) (int, error) {
	var errs []error
	seeded := 0
	for _, req := range reqs {
		if _, err := fs.Seed(ctx, req); err != nil {
			errs = append(errs, err)
			continue
		}
		seeded++
	}
	return seeded, errors.Join(errs...)
}
