package proctree

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// Fixed-format renderers for the per-process informational files. Every
// clock-tick-denominated field is scaled through the policy's configured
// unit, never the host's native resolution.

func (d *procDir) renderCmdline(_ context.Context, rec *procsrc.Record) ([]byte, error) {
	return nulJoined(rec.Args), nil
}

func (d *procDir) renderEnviron(_ context.Context, rec *procsrc.Record) ([]byte, error) {
	return nulJoined(rec.Env), nil
}

func (d *procDir) renderStat(_ context.Context, rec *procsrc.Record) ([]byte, error) {
	pol := d.provider.pol

	var startTicks uint64
	if delta := rec.StartedAt.Sub(d.provider.bootTime); delta > 0 {
		startTicks = pol.Ticks(uint64(delta))
	}

	line := fmt.Sprintf("%d (%s) %s %d %d 0 0 0 0 0 0 0 0 %d %d 0 0 0 0 1 0 %d %d %d\n",
		rec.PID, rec.Name, rec.State,
		rec.PPID, rec.PGID,
		pol.Ticks(rec.UTime), pol.Ticks(rec.STime),
		startTicks,
		rec.VirtBytes, rec.RSSBytes/pageSize())
	return []byte(line), nil
}

func (d *procDir) renderStatm(_ context.Context, rec *procsrc.Record) ([]byte, error) {
	page := pageSize()
	line := fmt.Sprintf("%d %d 0 0 0 0 0\n", rec.VirtBytes/page, rec.RSSBytes/page)
	return []byte(line), nil
}

func (d *procDir) renderStatus(_ context.Context, rec *procsrc.Record) ([]byte, error) {
	uid := d.provider.pol.OwnerFor(rec)

	var b strings.Builder
	fmt.Fprintf(&b, "Name:\t%s\n", rec.Name)
	fmt.Fprintf(&b, "State:\t%s (%s)\n", rec.State, stateDescription(rec.State))
	fmt.Fprintf(&b, "Pid:\t%d\n", rec.PID)
	fmt.Fprintf(&b, "PPid:\t%d\n", rec.PPID)
	fmt.Fprintf(&b, "Uid:\t%d\t%d\t%d\t%d\n", uid, uid, uid, uid)
	fmt.Fprintf(&b, "VmSize:\t%8d kB\n", rec.VirtBytes/1024)
	fmt.Fprintf(&b, "VmRSS:\t%8d kB\n", rec.RSSBytes/1024)
	return []byte(b.String()), nil
}

func stateDescription(s procsrc.State) string {
	switch s {
	case procsrc.StateRunning:
		return "running"
	case procsrc.StateSleeping:
		return "sleeping"
	case procsrc.StateWaiting:
		return "disk sleep"
	case procsrc.StateZombie:
		return "zombie"
	case procsrc.StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

func nulJoined(parts []string) []byte {
	if len(parts) == 0 {
		return nil
	}
	return []byte(strings.Join(parts, "\x00") + "\x00")
}

func pageSize() uint64 {
	return uint64(os.Getpagesize())
}
