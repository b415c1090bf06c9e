package proctree

import (
	"context"
	"io/fs"
	"strconv"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// procDir is the namespace of one process's informational files. It holds
// only the pid: the backing record is re-fetched on every operation, so a
// directory node outliving its process degrades to not-found rather than
// serving stale data.
type procDir struct {
	provider *Provider
	pid      int32
}

var _ namespace.Provider = (*procDir)(nil)

// fileSpec describes one fixed-format informational file.
type fileSpec struct {
	name   string
	mode   func(d *procDir) fs.FileMode
	render func(d *procDir, ctx context.Context, rec *procsrc.Record) ([]byte, error)
	sized  bool // advertise rendered length in getattr
}

// procFiles is the fixed child table of every per-process directory. The
// stat file's mode comes from policy: it discloses owner-sensitive data and
// its natural 0400 can be relaxed for Linux-compatible environments.
var procFiles = []fileSpec{
	{
		name:   "cmdline",
		mode:   func(*procDir) fs.FileMode { return 0o444 },
		render: (*procDir).renderCmdline,
		sized:  true,
	},
	{
		name:   "environ",
		mode:   func(*procDir) fs.FileMode { return 0o400 },
		render: (*procDir).renderEnviron,
		sized:  true,
	},
	{
		name:   "stat",
		mode:   func(d *procDir) fs.FileMode { return d.provider.pol.StatFileMode() },
		render: (*procDir).renderStat,
	},
	{
		name:   "statm",
		mode:   func(*procDir) fs.FileMode { return 0o444 },
		render: (*procDir).renderStatm,
	},
	{
		name:   "status",
		mode:   func(*procDir) fs.FileMode { return 0o444 },
		render: (*procDir).renderStatus,
	},
}

// Lookup implements namespace.Provider for the per-process directory.
func (d *procDir) Lookup(ctx context.Context, name string) (*namespace.Node, error) {
	for i := range procFiles {
		if procFiles[i].name == name {
			return d.fileNode(ctx, &procFiles[i])
		}
	}
	return nil, namespace.ErrNotFound
}

// Enumerate implements namespace.Provider; the file set is fixed, but each
// node still reflects the process's current attributes.
func (d *procDir) Enumerate(ctx context.Context) ([]namespace.Entry, error) {
	entries := make([]namespace.Entry, 0, len(procFiles))
	for i := range procFiles {
		node, err := d.fileNode(ctx, &procFiles[i])
		if err != nil {
			return nil, err // process gone, whole directory is gone
		}
		entries = append(entries, namespace.Entry{Name: procFiles[i].name, Node: node})
	}
	return entries, nil
}

// fileNode synthesizes one informational file node, consulting the process
// table for current ownership. Content renders against a fresh record at
// read time; the node caches nothing across requests.
func (d *procDir) fileNode(ctx context.Context, spec *fileSpec) (*namespace.Node, error) {
	rec, err := d.provider.source.GetProcess(d.pid)
	if err != nil {
		return nil, namespace.ErrNotFound
	}

	pidName := strconv.FormatInt(int64(d.pid), 10)
	node := &namespace.Node{
		Ino:   namespace.Ino(inoTag, pidName, spec.name),
		Kind:  namespace.KindFile,
		Mode:  spec.mode(d),
		Owner: d.provider.pol.OwnerFor(rec),
		Content: func(ctx context.Context) ([]byte, error) {
			cur, err := d.provider.source.GetProcess(d.pid)
			if err != nil {
				return nil, namespace.ErrNotFound
			}
			return spec.render(d, ctx, cur)
		},
	}
	if spec.sized {
		data, err := spec.render(d, ctx, rec)
		if err == nil {
			node.Size = uint64(len(data))
		}
	}
	return node, nil
}
