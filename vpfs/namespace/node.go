// Package namespace is the structural core of the translator: the synthetic
// Node model, the deterministic inode scheme, and the Directory Composer
// that unions independently-produced sub-namespaces into one tree.
//
// Nothing in this package holds mutable state. Every Node is recomputed
// fresh from the backing process table on each access, so all operations are
// safe from concurrent requests without locking.
package namespace

import (
	"context"
	"io/fs"
)

// Kind discriminates the three node shapes the translator synthesizes.
type Kind int

const (
	KindDir Kind = iota
	KindFile
	KindSymlink
)

// ContentFunc renders a file node's bytes at access time.
type ContentFunc func(ctx context.Context) ([]byte, error)

// TargetFunc resolves a symlink node's target at access time.
type TargetFunc func(ctx context.Context) (string, error)

// Node is a synthesized, ephemeral filesystem entry. It owns no external
// resources and no mutable state; holders may use it for at most the
// duration of one request.
type Node struct {
	Ino   uint64      // stable identity, derived from the logical path
	Kind  Kind        //
	Mode  fs.FileMode // permission bits, policy-derived
	Owner uint32      // uid, policy-derived
	Size  uint64      // advertised byte size, 0 when not cheaply known

	Dir     Provider    // child namespace, dir kind only
	Content ContentFunc // file kind only
	Target  TargetFunc  // symlink kind only
}

// Entry is one named element of a directory enumeration.
type Entry struct {
	Name string
	Node *Node
}

// Provider exposes lookup and enumeration over one subset of the directory
// tree. Implementations must be safely callable from concurrent requests and
// must never assume two calls observe the same backing snapshot.
type Provider interface {
	// Lookup resolves a single name to a node, or ErrNotFound.
	Lookup(ctx context.Context, name string) (*Node, error)

	// Enumerate returns the provider's current entries in its own order.
	Enumerate(ctx context.Context) ([]Entry, error)
}

// Resolve chains lookups through a path-component sequence starting at
// root, the shape the host framework drives this layer with.
func Resolve(ctx context.Context, root *Node, parts ...string) (*Node, error) {
	node := root
	for _, part := range parts {
		if node.Kind != KindDir || node.Dir == nil {
			return nil, ErrNotDirectory
		}
		next, err := node.Dir.Lookup(ctx, part)
		if err != nil {
			return nil, err
		}
		node = next
	}
	return node, nil
}
