// Package rootdir synthesizes the global half of the namespace: the fixed
// set of informational entries not tied to any single process, plus the
// self and kernel alias symlinks.
package rootdir

import (
	"context"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/armon/go-radix"

	internal "github.com/ZanzyTHEbar/virtual-procfs/vpfs"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// inoTag namespaces this provider's derived inode identities.
const inoTag = "rootdir"

// entrySpec describes one fixed entry. The entry set never changes after
// construction; only the rendered content and lazily-resolved targets track
// the live process table.
type entrySpec struct {
	kind   namespace.Kind
	mode   fs.FileMode
	render namespace.ContentFunc // file entries
	target namespace.TargetFunc  // symlink entries
}

// Provider is the root info provider. Entries live in a patricia tree,
// which gives deterministic sorted enumeration over the fixed table.
type Provider struct {
	source    procsrc.Source
	pol       policy.Policy
	entries   *radix.Tree // name -> *entrySpec
	version   string
	bootTime  time.Time
	startedAt time.Time
	logger    *slog.Logger
}

var _ namespace.Provider = (*Provider)(nil)

// Option allows for customization of the Provider
type Option func(*Provider)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithVersion overrides the identification string served by the version
// entry.
func WithVersion(version string) Option {
	return func(p *Provider) { p.version = version }
}

// WithBootTime sets the boot reference used by uptime and the global stat
// counters.
func WithBootTime(t time.Time) Option {
	return func(p *Provider) { p.bootTime = t }
}

// New builds the root info provider over source, computing all attributes
// through pol.
func New(source procsrc.Source, pol policy.Policy, opts ...Option) *Provider {
	p := &Provider{
		source:    source,
		pol:       pol,
		version:   internal.DefaultVersionString,
		bootTime:  time.Now(),
		startedAt: time.Now(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.entries = p.buildTable()
	return p
}

// buildTable assembles the fixed entry set. Alias symlinks exist
// unconditionally: their names always resolve, while following them fails
// whenever the target pid is dead. Alias existence is independent of target
// validity.
func (p *Provider) buildTable() *radix.Tree {
	tree := radix.New()

	tree.Insert("version", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderVersion})
	tree.Insert("uptime", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderUptime})
	tree.Insert("loadavg", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderLoadavg})
	tree.Insert("meminfo", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderMeminfo})
	tree.Insert("stat", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderStat})
	tree.Insert("filesystems", &entrySpec{kind: namespace.KindFile, mode: 0o444, render: p.renderFilesystems})

	tree.Insert("self", &entrySpec{
		kind: namespace.KindSymlink,
		mode: 0o777,
		target: func(ctx context.Context) (string, error) {
			pid, ok := p.pol.SelfTarget(ctx)
			if !ok {
				return "", namespace.ErrNotFound
			}
			return strconv.FormatInt(int64(pid), 10), nil
		},
	})
	tree.Insert("kernel", &entrySpec{
		kind: namespace.KindSymlink,
		mode: 0o777,
		target: func(ctx context.Context) (string, error) {
			return strconv.FormatInt(int64(p.pol.KernelPID), 10), nil
		},
	})

	return tree
}

// Lookup implements namespace.Provider as a direct table lookup.
func (p *Provider) Lookup(ctx context.Context, name string) (*namespace.Node, error) {
	v, ok := p.entries.Get(name)
	if !ok {
		return nil, namespace.ErrNotFound
	}
	return p.node(name, v.(*entrySpec)), nil
}

// Enumerate implements namespace.Provider; the patricia tree walks its keys
// in sorted order, so the listing is deterministic.
func (p *Provider) Enumerate(ctx context.Context) ([]namespace.Entry, error) {
	entries := make([]namespace.Entry, 0, p.entries.Len())
	p.entries.Walk(func(name string, v interface{}) bool {
		entries = append(entries, namespace.Entry{
			Name: name,
			Node: p.node(name, v.(*entrySpec)),
		})
		return false
	})
	return entries, nil
}

// node synthesizes the namespace node for one table entry. Root info
// entries have no underlying process, so ownership falls back to the
// policy's anonymous owner.
func (p *Provider) node(name string, spec *entrySpec) *namespace.Node {
	return &namespace.Node{
		Ino:     namespace.Ino(inoTag, name),
		Kind:    spec.kind,
		Mode:    spec.mode,
		Owner:   p.pol.OwnerFor(nil),
		Content: spec.render,
		Target:  spec.target,
	}
}
