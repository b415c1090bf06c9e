package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	internal "github.com/ZanzyTHEbar/virtual-procfs/vpfs"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/config"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/fusefs"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/proctree"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/rootdir"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file")
		mountpoint = flag.String("mount", "", "Mount point directory (overrides config)")
		debug      = flag.Bool("debug", false, "Enable FUSE debug output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Mount a synthesized process filesystem.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := internal.GetLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *mountpoint != "" {
		cfg.ProcFS.MountPoint = *mountpoint
	}

	pol, err := cfg.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid attribute policy configuration")
	}

	var source procsrc.Source
	bootTime := time.Now()
	if cfg.ProcFS.Demo {
		source = demoTable()
	} else {
		local := procsrc.NewLocal()
		bootTime = local.BootTime()
		source = local
	}

	// Subtree provider first: the alias fallthrough to the root info
	// provider's symlinks depends on this order. Both providers share the
	// source's boot reference so start times and uptime agree.
	composer := namespace.NewComposer([]namespace.Provider{
		proctree.New(source, pol, proctree.WithBootTime(bootTime)),
		rootdir.New(source, pol, rootdir.WithBootTime(bootTime)),
	})

	server, err := fusefs.Mount(cfg.ProcFS.MountPoint, composer.Root(pol.AnonOwner), fusefs.MountConfig{
		AllowOther: cfg.ProcFS.AllowOther,
		Debug:      *debug,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("mountpoint", cfg.ProcFS.MountPoint).Msg("mount failed")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info().Msg("unmounting")
		if err := server.Unmount(); err != nil {
			logger.Error().Err(err).Msg("unmount failed, still busy?")
		}
	}()

	server.Wait()
}

// demoTable is a canned process table for trying the translator out without
// exposing the host's own processes.
func demoTable() *procsrc.Fake {
	now := time.Now()
	return procsrc.NewFake(
		procsrc.Record{
			PID: 1, Name: "init", State: procsrc.StateSleeping,
			Owner: 0, HasOwner: true,
			Args:      []string{"/sbin/init"},
			StartedAt: now.Add(-time.Hour),
			VirtBytes: 4 << 20, RSSBytes: 1 << 20,
		},
		procsrc.Record{
			PID: 2, Name: "kernel", State: procsrc.StateRunning,
			StartedAt: now.Add(-time.Hour),
		},
		procsrc.Record{
			PID: 42, Name: "worker", State: procsrc.StateRunning,
			Owner: 1000, HasOwner: true,
			Args:      []string{"worker", "--queue", "default"},
			StartedAt: now.Add(-10 * time.Minute),
			UTime:     90 * 1e9, STime: 30 * 1e9,
			VirtBytes: 64 << 20, RSSBytes: 16 << 20,
		},
	)
}
