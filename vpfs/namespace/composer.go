package namespace

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ZanzyTHEbar/assert-lib"
)

// Composer unions an ordered list of child providers into one directory.
// Name collisions resolve first-match-wins by construction order, for both
// Lookup and Enumerate, so the two views of the namespace never disagree.
//
// Composer holds no merged view across calls: children observe live,
// changing backing data, so every operation re-queries them.
type Composer struct {
	children []Provider
	logger   *slog.Logger
}

var _ Provider = (*Composer)(nil)

// ComposerOption allows for customization of a Composer
type ComposerOption func(*Composer)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) ComposerOption {
	return func(c *Composer) {
		c.logger = logger
	}
}

// NewComposer builds a composer over children, scanned in the given order.
// The child list must be non-empty.
func NewComposer(children []Provider, opts ...ComposerOption) *Composer {
	assertHandler := assert.NewAssertHandler()
	assertHandler.Assert(context.Background(), len(children) > 0, "composer requires at least one child provider")

	c := &Composer{
		children: children,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root wraps the composer in a directory node carrying the reserved root
// identity. owner is the uid advertised for the root directory itself.
func (c *Composer) Root(owner uint32) *Node {
	return &Node{
		Ino:   RootIno,
		Kind:  KindDir,
		Mode:  0o555,
		Owner: owner,
		Dir:   c,
	}
}

// Lookup implements Provider. Children are queried in construction order
// and the first present result wins. A child failing for reasons other than
// not-found is skipped, not fatal: one misbehaving sub-namespace must not
// take down names owned by the others.
func (c *Composer) Lookup(ctx context.Context, name string) (*Node, error) {
	for _, child := range c.children {
		node, err := child.Lookup(ctx, name)
		if err == nil {
			return node, nil
		}
		if !errors.Is(err, ErrNotFound) {
			c.logger.Debug("child provider lookup failed",
				"name", name,
				"error", err)
		}
	}
	return nil, ErrNotFound
}

// Enumerate implements Provider. Child enumerations are merged in child
// order; when two children emit the same name only the first is retained,
// matching the Lookup tie-break. A child whose enumeration fails outright
// is skipped so the remaining namespaces still list.
func (c *Composer) Enumerate(ctx context.Context) ([]Entry, error) {
	var merged []Entry
	seen := make(map[string]struct{})

	for _, child := range c.children {
		entries, err := child.Enumerate(ctx)
		if err != nil {
			c.logger.Warn("child provider enumeration failed, skipping",
				"error", err)
			continue
		}
		for _, entry := range entries {
			if _, dup := seen[entry.Name]; dup {
				continue
			}
			seen[entry.Name] = struct{}{}
			merged = append(merged, entry)
		}
	}
	return merged, nil
}
