package rootdir

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// aggregates is a point-in-time rollup over the live process table. It is
// rebuilt on every access so the fixed entry set still reflects current
// state.
type aggregates struct {
	procs     uint64
	running   uint64
	utimeNS   uint64
	stimeNS   uint64
	virtBytes uint64
	rssBytes  uint64
}

// scan rolls up the current table with a bounded worker pool. Pids that
// vanish mid-scan are skipped, never fatal.
func (p *Provider) scan(ctx context.Context) (*aggregates, error) {
	pids, err := p.source.ListPIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	var agg aggregates
	workers := pool.New().WithMaxGoroutines(runtime.NumCPU()).WithContext(ctx)
	for _, pid := range pids {
		workers.Go(func(ctx context.Context) error {
			rec, err := p.source.GetProcess(pid)
			if err != nil {
				// exited between listing and query
				p.logger.Debug("process vanished during aggregate scan", "pid", pid)
				return nil
			}
			atomic.AddUint64(&agg.procs, 1)
			if rec.State == procsrc.StateRunning {
				atomic.AddUint64(&agg.running, 1)
			}
			atomic.AddUint64(&agg.utimeNS, rec.UTime)
			atomic.AddUint64(&agg.stimeNS, rec.STime)
			atomic.AddUint64(&agg.virtBytes, rec.VirtBytes)
			atomic.AddUint64(&agg.rssBytes, rec.RSSBytes)
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (p *Provider) renderVersion(_ context.Context) ([]byte, error) {
	return []byte(p.version + "\n"), nil
}

// renderUptime reports seconds since the kernel process started, falling
// back to translator start when the kernel process is unreadable.
func (p *Provider) renderUptime(_ context.Context) ([]byte, error) {
	since := p.startedAt
	if rec, err := p.source.GetProcess(p.pol.KernelPID); err == nil && !rec.StartedAt.IsZero() {
		since = rec.StartedAt
	}
	up := time.Since(since).Seconds()
	if up < 0 {
		up = 0
	}
	return []byte(fmt.Sprintf("%.2f %.2f\n", up, 0.0)), nil
}

func (p *Provider) renderLoadavg(ctx context.Context) ([]byte, error) {
	agg, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}
	load := float64(agg.running)
	return []byte(fmt.Sprintf("%.2f %.2f %.2f %d/%d 0\n",
		load, load, load, agg.running, agg.procs)), nil
}

func (p *Provider) renderMeminfo(ctx context.Context) ([]byte, error) {
	agg, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "VirtTotal:\t%8d kB\n", agg.virtBytes/1024)
	fmt.Fprintf(&b, "RssTotal:\t%8d kB\n", agg.rssBytes/1024)
	return []byte(b.String()), nil
}

func (p *Provider) renderStat(ctx context.Context) ([]byte, error) {
	agg, err := p.scan(ctx)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "cpu  %d %d 0 0\n",
		p.pol.Ticks(agg.utimeNS), p.pol.Ticks(agg.stimeNS))
	fmt.Fprintf(&b, "btime %d\n", p.bootTime.Unix())
	fmt.Fprintf(&b, "processes %d\n", agg.procs)
	fmt.Fprintf(&b, "procs_running %d\n", agg.running)
	return []byte(b.String()), nil
}

func (p *Provider) renderFilesystems(_ context.Context) ([]byte, error) {
	return []byte("nodev\tproc\n"), nil
}
