// Package fusefs bridges the synthesized namespace to the kernel through
// go-fuse. It is a thin dispatch layer: every operation re-resolves against
// the provider tree, and the only state an inode carries is the ephemeral
// node it was last synthesized from.
package fusefs

import (
	"context"
	"errors"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"
)

// Node adapts one synthesized namespace node to the go-fuse inode protocol.
type Node struct {
	fs.Inode
	node *namespace.Node
}

var (
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeReader     = (*Node)(nil)
	_ fs.NodeReadlinker = (*Node)(nil)
)

// NewRoot wraps the composed root node for mounting.
func NewRoot(root *namespace.Node) *Node {
	return &Node{node: root}
}

// callerContext threads the requesting process's pid into the context so
// caller-relative aliases can resolve against it.
func callerContext(ctx context.Context) context.Context {
	if caller, ok := fuse.FromContext(ctx); ok {
		return policy.WithCaller(ctx, int32(caller.Pid))
	}
	return ctx
}

// errno maps namespace errors onto the wire. Only a genuine negative lookup
// becomes ENOENT.
func errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, namespace.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, namespace.ErrNotDirectory):
		return syscall.ENOTDIR
	default:
		return syscall.EIO
	}
}

// typeBits returns the stable-attr file type for a node kind.
func typeBits(kind namespace.Kind) uint32 {
	switch kind {
	case namespace.KindDir:
		return fuse.S_IFDIR
	case namespace.KindSymlink:
		return fuse.S_IFLNK
	default:
		return fuse.S_IFREG
	}
}

func fillAttr(node *namespace.Node, attr *fuse.Attr) {
	attr.Mode = typeBits(node.Kind) | uint32(node.Mode&0o7777)
	attr.Ino = node.Ino
	attr.Size = node.Size
	// Nodes carry an owning uid only; the namespace has no group model, so
	// everything belongs to the root group rather than a uid-numbered one.
	attr.Owner = fuse.Owner{Uid: node.Owner, Gid: 0}
	attr.Nlink = 1
}

// Lookup implements fs.NodeLookuper by dispatching to the owning provider.
func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.node.Kind != namespace.KindDir || n.node.Dir == nil {
		return nil, syscall.ENOTDIR
	}
	child, err := n.node.Dir.Lookup(callerContext(ctx), name)
	if err != nil {
		return nil, errno(err)
	}
	fillAttr(child, &out.Attr)
	inode := n.NewInode(ctx, &Node{node: child}, fs.StableAttr{
		Mode: typeBits(child.Kind),
		Ino:  child.Ino,
	})
	return inode, 0
}

// Readdir implements fs.NodeReaddirer with a fresh enumeration.
func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	if n.node.Kind != namespace.KindDir || n.node.Dir == nil {
		return nil, syscall.ENOTDIR
	}
	entries, err := n.node.Dir.Enumerate(callerContext(ctx))
	if err != nil {
		return nil, errno(err)
	}
	dirents := make([]fuse.DirEntry, 0, len(entries))
	for _, entry := range entries {
		dirents = append(dirents, fuse.DirEntry{
			Name: entry.Name,
			Mode: typeBits(entry.Node.Kind),
			Ino:  entry.Node.Ino,
		})
	}
	return fs.NewListDirStream(dirents), 0
}

// Getattr implements fs.NodeGetattrer from the node's synthesized
// attributes.
func (n *Node) Getattr(ctx context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	fillAttr(n.node, &out.Attr)
	return 0
}

// Open implements fs.NodeOpener by rendering the file's content once per
// open; the handle serves reads from that single-request snapshot. Sizes
// are often advertised as zero, so direct IO is forced.
func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.node.Kind != namespace.KindFile || n.node.Content == nil {
		return nil, 0, syscall.EISDIR
	}
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	data, err := n.node.Content(callerContext(ctx))
	if err != nil {
		return nil, 0, errno(err)
	}
	return &fileHandle{data: data}, fuse.FOPEN_DIRECT_IO, 0
}

// Read implements fs.NodeReader against the handle's snapshot.
func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	handle, ok := f.(*fileHandle)
	if !ok {
		return nil, syscall.EBADF
	}
	if off >= int64(len(handle.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(handle.data)) {
		end = int64(len(handle.data))
	}
	return fuse.ReadResultData(handle.data[off:end]), 0
}

// Readlink implements fs.NodeReadlinker; targets resolve lazily, at follow
// time, so an alias can exist while its target does not.
func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	if n.node.Kind != namespace.KindSymlink || n.node.Target == nil {
		return nil, syscall.EINVAL
	}
	target, err := n.node.Target(callerContext(ctx))
	if err != nil {
		return nil, errno(err)
	}
	return []byte(target), 0
}

// fileHandle is an immutable per-open snapshot of rendered content.
type fileHandle struct {
	data []byte
}
