package main

import (
	"context"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/brettbedarf/flatfs/adapters"
	"github.com/brettbedarf/flatfs/config"
	"github.com/brettbedarf/flatfs/internal/util"
	"github.com/brettbedarf/flatfs/requests"
	"github.com/brettbedarf/flatfs/server"
)

var rootCmd = &cobra.Command{
	Use:   "flatfs [flags] MOUNTPOINT",
	Short: "Mount a flat in-memory filesystem",
	Long: `flatfs serves a single flat directory of in-memory entries over FUSE.

Entries are created by writing to a new name and removed by unlinking them.
The store holds a fixed number of entries, each with a fixed byte capacity;
writes past the capacity are truncated. Nothing is persisted after unmount.

MOUNTPOINT is the directory where the filesystem will be mounted.`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	rootCmd.Flags().StringP("config", "c", "", "Path to a .yaml, .yml or .json config file")
	rootCmd.Flags().StringP("seed", "s", "", "Path to a seed file of entries to create before mounting")
	rootCmd.Flags().IntP("verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")
	rootCmd.Flags().BoolP("umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	rootCmd.Flags().Bool("debug", false, "Log every FUSE request and reply")
}

// loadConfig merges the config file with flags. Flags win when set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if override, err = config.LoadConfigOverrideFile(path); err != nil {
			return nil, err
		}
	}

	if verbose, _ := cmd.Flags().GetInt("verbose"); cmd.Flags().Changed("verbose") || override.LogLvl == nil {
		override.LogLvl = &verbose
	}
	if cmd.Flags().Changed("debug") {
		debug, _ := cmd.Flags().GetBool("debug")
		override.Debug = &debug
	}

	cfg := config.NewConfig(override)
	return cfg, cfg.Validate()
}

func runMount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if cfg != nil {
		util.InitializeLogger(cfg.LogLvl)
	}
	logger := util.GetLogger("main")
	if err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	mnt := args[0]
	seedPath, _ := cmd.Flags().GetString("seed")
	logger.Info().Str("mnt", mnt).Str("seed", seedPath).Int("maxEntries", cfg.MaxEntries).
		Int("maxEntrySize", cfg.MaxEntrySize).Msg("FlatFS server initializing")

	// Try unmount if requested
	if umount, _ := cmd.Flags().GetBool("umount"); umount { // send cli command
		c := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		c.Run() // nolint:errcheck
	}

	fs := server.New(cfg)

	if seedPath != "" {
		seed(cmd.Context(), fs, seedPath)
	} else {
		logger.Debug().Msg("No seed file provided")
	}

	// Serve
	if err := fs.Serve(mnt); err != nil {
		logger.Error().Err(err).Msg("Failed to mount filesystem")
		return err
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	unmounted := make(chan struct{})
	go func() {
		fs.Wait()
		close(unmounted)
	}()

	// Wait for termination signal or an external unmount
	select {
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
	case <-unmounted:
		logger.Info().Msg("Filesystem unmounted externally")
		return nil
	}

	// Unmount the filesystem
	if err := fs.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
		return err
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}

// seed loads the seed file and writes its entries. Failures are logged and
// never stop the mount.
func seed(ctx context.Context, fs *server.FlatFs, path string) {
	logger := util.GetLogger("main")

	registry := adapters.Default()
	adapters.RegisterBuiltins(registry)

	reqs, err := requests.LoadSeedFile(path, registry)
	if err != nil {
		logger.Error().Err(err).Str("seed", path).Msg("Failed to load some seed requests")
	}
	logger.Debug().Int("requests", len(reqs)).Msg("Seed requests loaded")

	seeded, err := fs.SeedAll(ctx, reqs)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to seed some entries")
	}
	logger.Info().Int("seeded", seeded).Int("requests", len(reqs)).Msg("Seeded filesystem")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
