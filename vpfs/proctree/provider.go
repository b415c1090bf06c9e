// Package proctree synthesizes the per-process half of the namespace: one
// directory per currently-live pid, plus alias names that resolve to live
// pids.
package proctree

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// inoTag namespaces this provider's derived inode identities.
const inoTag = "proc"

// Provider exposes one directory entry per live process id, named by the
// canonical decimal form of the id.
type Provider struct {
	source   procsrc.Source
	pol      policy.Policy
	bootTime time.Time
	logger   *slog.Logger
}

var _ namespace.Provider = (*Provider)(nil)

// Option allows for customization of the Provider
type Option func(*Provider)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithBootTime sets the reference point for start-time fields. Defaults to
// translator start when the host boot time is unknown.
func WithBootTime(t time.Time) Option {
	return func(p *Provider) { p.bootTime = t }
}

// New builds the per-process subtree provider over source, computing all
// attributes through pol.
func New(source procsrc.Source, pol policy.Policy, opts ...Option) *Provider {
	p := &Provider{
		source:   source,
		pol:      pol,
		bootTime: time.Now(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup implements namespace.Provider. name is a decimal pid or a
// recognized alias; aliases resolve one step to a concrete pid and then
// behave exactly like a numeric lookup. A pid that no longer resolves in
// the process table is an ordinary not-found, whatever the reason.
func (p *Provider) Lookup(ctx context.Context, name string) (*namespace.Node, error) {
	pid, ok := p.resolveName(ctx, name)
	if !ok {
		return nil, namespace.ErrNotFound
	}
	rec, err := p.source.GetProcess(pid)
	if err != nil {
		return nil, namespace.ErrNotFound
	}
	return p.dirNode(rec), nil
}

// Enumerate implements namespace.Provider. Pids are emitted in the order
// the process table yields them; alias entries are appended only while
// their target is alive, so the merged view always matches Lookup. A pid
// that vanishes between the listing and its individual query is skipped.
func (p *Provider) Enumerate(ctx context.Context) ([]namespace.Entry, error) {
	pids, err := p.source.ListPIDs()
	if err != nil {
		return nil, err
	}

	entries := make([]namespace.Entry, 0, len(pids)+2)
	for _, pid := range pids {
		rec, err := p.source.GetProcess(pid)
		if err != nil {
			// exited between listing and query
			p.logger.Debug("process vanished during enumeration", "pid", pid)
			continue
		}
		entries = append(entries, namespace.Entry{
			Name: strconv.FormatInt(int64(pid), 10),
			Node: p.dirNode(rec),
		})
	}

	for _, alias := range []string{"self", "kernel"} {
		pid, ok := p.resolveAlias(ctx, alias)
		if !ok {
			continue
		}
		rec, err := p.source.GetProcess(pid)
		if err != nil {
			continue // alias target not alive; rootdir still names it
		}
		entries = append(entries, namespace.Entry{Name: alias, Node: p.dirNode(rec)})
	}
	return entries, nil
}

// resolveName maps a directory entry name to a concrete pid. Only the
// canonical decimal spelling resolves: enumeration never emits forms like
// "007" or "+7", so lookup must not accept them either.
func (p *Provider) resolveName(ctx context.Context, name string) (int32, bool) {
	if pid, err := strconv.ParseInt(name, 10, 32); err == nil && pid >= 0 &&
		name == strconv.FormatInt(pid, 10) {
		return int32(pid), true
	}
	return p.resolveAlias(ctx, name)
}

// resolveAlias performs single-step alias resolution; alias targets are
// always numeric, never another alias.
func (p *Provider) resolveAlias(ctx context.Context, name string) (int32, bool) {
	switch name {
	case "self":
		return p.pol.SelfTarget(ctx)
	case "kernel":
		return p.pol.KernelPID, true
	default:
		return 0, false
	}
}

// dirNode wraps rec in a per-process directory node. Identity derives from
// the canonical pid string, so looking the process up through an alias
// yields the same inode as its numeric name.
func (p *Provider) dirNode(rec *procsrc.Record) *namespace.Node {
	name := strconv.FormatInt(int64(rec.PID), 10)
	return &namespace.Node{
		Ino:   namespace.Ino(inoTag, name),
		Kind:  namespace.KindDir,
		Mode:  0o555,
		Owner: p.pol.OwnerFor(rec),
		Dir:   &procDir{provider: p, pid: rec.PID},
	}
}
