package fusefs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	internal "github.com/ZanzyTHEbar/virtual-procfs/vpfs"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
)

// MountConfig carries the transport-level mount settings.
type MountConfig struct {
	AllowOther bool
	Debug      bool
	Logger     *slog.Logger
}

// Mount exposes the composed root read-only at mountpoint and returns the
// running server. The caller owns the server lifecycle (Wait, Unmount).
func Mount(mountpoint string, root *namespace.Node, cfg MountConfig) (*fuse.Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Attribute and entry caching are disabled: every node is a projection
	// of live process state and may change or vanish between requests.
	zero := time.Duration(0)
	opts := &fs.Options{
		AttrTimeout:  &zero,
		EntryTimeout: &zero,
		MountOptions: fuse.MountOptions{
			FsName:     internal.DefaultAppName,
			Name:       "proc",
			AllowOther: cfg.AllowOther,
			Debug:      cfg.Debug,
			Options:    []string{"ro"},
		},
	}

	server, err := fs.Mount(mountpoint, NewRoot(root), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", mountpoint, err)
	}

	cfg.Logger.Info("mounted process namespace",
		"mountpoint", mountpoint,
		"session", uuid.New().String())
	return server, nil
}
