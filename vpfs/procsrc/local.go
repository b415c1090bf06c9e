package procsrc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
)

// DefaultClockHz is the native tick unit assumed for the host's accounting
// files when no override is given.
const DefaultClockHz = 100

// Local is the production Source, backed by the host's own process
// accounting tree. Each call re-reads the live files; nothing is cached
// across calls.
type Local struct {
	root     string // usually "/proc"
	hz       uint64 // native ticks per second of the host accounting files
	pageSize uint64
	bootTime time.Time
	logger   *slog.Logger
}

var _ Source = (*Local)(nil)

// LocalOption customizes a Local source.
type LocalOption func(*Local)

// WithRoot points the source at an alternate accounting tree, used by tests.
func WithRoot(root string) LocalOption {
	return func(l *Local) { l.root = root }
}

// WithClockHz overrides the native tick unit of the accounting files.
func WithClockHz(hz uint64) LocalOption {
	return func(l *Local) { l.hz = hz }
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = logger }
}

// NewLocal builds a Source over the host process table.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		root:     "/proc",
		hz:       DefaultClockHz,
		pageSize: uint64(os.Getpagesize()),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.bootTime = l.readBootTime()
	return l
}

// BootTime reports the host boot instant parsed from the accounting tree,
// falling back to source construction time when it is unreadable. Callers
// wiring providers over a Local source should hand this to them so
// start-time and uptime fields share one reference point.
func (l *Local) BootTime() time.Time {
	return l.bootTime
}

// ListPIDs implements Source. The id set is collected through a roaring
// bitmap, which deduplicates and yields the pids in ascending order.
func (l *Local) ListPIDs() ([]int32, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan process table %s: %w", l.root, err)
	}

	set := roaring.New()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.ParseUint(entry.Name(), 10, 31)
		if err != nil {
			continue // non-process entry
		}
		set.Add(uint32(pid))
	}

	pids := make([]int32, 0, set.GetCardinality())
	for _, pid := range set.ToArray() {
		pids = append(pids, int32(pid))
	}
	return pids, nil
}

// GetProcess implements Source. Any per-pid read failure is reported as
// ErrNoSuchProcess: on a live table a process may exit at any point between
// the directory scan and the individual file reads.
func (l *Local) GetProcess(pid int32) (*Record, error) {
	dir := filepath.Join(l.root, strconv.FormatInt(int64(pid), 10))

	statLine, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return nil, ErrNoSuchProcess
	}
	rec, err := l.parseStat(string(statLine))
	if err != nil {
		l.logger.Debug("malformed stat line", "pid", pid, "error", err)
		return nil, ErrNoSuchProcess
	}

	if uid, ok := l.readOwner(dir); ok {
		rec.Owner = uid
		rec.HasOwner = true
	}

	// Argument vector and environment are best-effort: permission failures
	// leave them empty rather than failing the whole record.
	rec.Args = readNulSeparated(filepath.Join(dir, "cmdline"))
	rec.Env = readNulSeparated(filepath.Join(dir, "environ"))

	return rec, nil
}

// parseStat decodes the single-line stat format. The command name is
// parenthesized and may itself contain spaces or parentheses, so the line is
// split around the last closing parenthesis.
func (l *Local) parseStat(line string) (*Record, error) {
	open := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("no command field in %q", line)
	}

	rec := &Record{Name: line[open+1 : end]}
	if _, err := fmt.Sscanf(line[:open], "%d", &rec.PID); err != nil {
		return nil, fmt.Errorf("bad pid field: %w", err)
	}

	fields := strings.Fields(line[end+1:])
	// fields[0] is the state; counting from there: ppid=1 pgrp=2 utime=11
	// stime=12 starttime=19 vsize=20 rss=21
	if len(fields) < 22 {
		return nil, fmt.Errorf("truncated stat line: %d fields", len(fields))
	}
	rec.State = State(fields[0])

	ppid, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad ppid: %w", err)
	}
	rec.PPID = int32(ppid)

	pgid, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("bad pgrp: %w", err)
	}
	rec.PGID = int32(pgid)

	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad utime: %w", err)
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad stime: %w", err)
	}
	rec.UTime = l.ticksToNS(utime)
	rec.STime = l.ticksToNS(stime)

	start, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad starttime: %w", err)
	}
	rec.StartedAt = l.bootTime.Add(time.Duration(l.ticksToNS(start)))

	vsize, err := strconv.ParseUint(fields[20], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad vsize: %w", err)
	}
	rec.VirtBytes = vsize

	rss, err := strconv.ParseUint(fields[21], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad rss: %w", err)
	}
	rec.RSSBytes = rss * l.pageSize

	return rec, nil
}

// readOwner pulls the real uid out of the status file.
func (l *Local) readOwner(dir string) (uint32, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "status"))
	if err != nil {
		return 0, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "Uid:") {
			continue
		}
		fields := strings.Fields(line[len("Uid:"):])
		if len(fields) == 0 {
			return 0, false
		}
		uid, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(uid), true
	}
	return 0, false
}

// readBootTime reads the btime counter from the global stat file. A missing
// or unreadable file (non-Linux host, test trees) degrades to translator
// start time.
func (l *Local) readBootTime() time.Time {
	data, err := os.ReadFile(filepath.Join(l.root, "stat"))
	if err != nil {
		return time.Now()
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "btime ") {
			continue
		}
		secs, err := strconv.ParseInt(strings.TrimSpace(line[len("btime "):]), 10, 64)
		if err != nil {
			break
		}
		return time.Unix(secs, 0)
	}
	return time.Now()
}

func (l *Local) ticksToNS(ticks uint64) uint64 {
	return ticks * 1e9 / l.hz
}

func readNulSeparated(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return nil
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) == 1 && parts[0] == "" {
		return nil
	}
	return parts
}
