package namespace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/namespace"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/policy"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/proctree"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/rootdir"
)

// composedRoot assembles the full translator namespace the way the daemon
// does: subtree provider first, root info provider second.
func composedRoot(src procsrc.Source, pol policy.Policy) *namespace.Node {
	composer := namespace.NewComposer([]namespace.Provider{
		proctree.New(src, pol),
		rootdir.New(src, pol),
	})
	return composer.Root(pol.AnonOwner)
}

func TestComposedRootListsProcessesAndGlobalEntries(t *testing.T) {
	src := procsrc.NewFake(
		procsrc.Record{PID: 1, Owner: 0, HasOwner: true, Name: "init"},
		procsrc.Record{PID: 7, Owner: 500, HasOwner: true, Name: "worker"},
		procsrc.Record{PID: 42, Name: "orphan"},
	)
	pol := policy.Default()
	pol.AnonOwner = 9
	root := composedRoot(src, pol)
	ctx := context.Background()

	entries, err := root.Dir.Enumerate(ctx)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, entry := range entries {
		seen[entry.Name]++
	}
	for _, name := range []string{"1", "7", "42", "version", "uptime", "self", "kernel"} {
		assert.Equal(t, 1, seen[name], "entry %q", name)
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "duplicate entry %q", name)
	}

	orphan, err := namespace.Resolve(ctx, root, "42")
	require.NoError(t, err)
	assert.Equal(t, uint32(9), orphan.Owner)

	owned, err := namespace.Resolve(ctx, root, "7")
	require.NoError(t, err)
	assert.Equal(t, uint32(500), owned.Owner)
}

func TestComposedKernelAliasWithDeadTarget(t *testing.T) {
	src := procsrc.NewFake(
		procsrc.Record{PID: 1, Name: "init"},
	)
	pol := policy.Default()
	pol.KernelPID = 2 // absent from the table
	root := composedRoot(src, pol)
	ctx := context.Background()

	// The numeric name does not resolve...
	_, err := namespace.Resolve(ctx, root, "2")
	assert.ErrorIs(t, err, namespace.ErrNotFound)

	// ...but the alias entry still exists, as the root info provider's
	// symlink, and resolving its target also yields not-found.
	node, err := namespace.Resolve(ctx, root, "kernel")
	require.NoError(t, err)
	require.Equal(t, namespace.KindSymlink, node.Kind)

	target, err := node.Target(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", target)
	_, err = namespace.Resolve(ctx, root, target)
	assert.ErrorIs(t, err, namespace.ErrNotFound)

	entries, err := root.Dir.Enumerate(ctx)
	require.NoError(t, err)
	var found *namespace.Node
	for _, entry := range entries {
		if entry.Name == "kernel" {
			found = entry.Node
		}
	}
	require.NotNil(t, found, "alias existence is independent of target validity")
	assert.Equal(t, namespace.KindSymlink, found.Kind)
}

func TestComposedKernelAliasWithLiveTarget(t *testing.T) {
	src := procsrc.NewFake(
		procsrc.Record{PID: 2, Name: "kernel", State: procsrc.StateRunning},
	)
	pol := policy.Default() // kernel pid 2
	root := composedRoot(src, pol)
	ctx := context.Background()

	// The subtree provider wins while the target is alive, and enumeration
	// retains the same entry lookup returns.
	node, err := namespace.Resolve(ctx, root, "kernel")
	require.NoError(t, err)
	assert.Equal(t, namespace.KindDir, node.Kind)

	entries, err := root.Dir.Enumerate(ctx)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.Name == "kernel" {
			assert.Equal(t, node.Ino, entry.Node.Ino)
		}
	}
}

func TestComposedInodeStabilityAcrossChurn(t *testing.T) {
	src := procsrc.NewFake(
		procsrc.Record{PID: 7, Name: "worker"},
	)
	root := composedRoot(src, policy.Default())
	ctx := context.Background()

	before, err := namespace.Resolve(ctx, root, "7", "status")
	require.NoError(t, err)

	// Unrelated churn: processes come and go around pid 7.
	src.Add(procsrc.Record{PID: 100, Name: "burst"})
	_, err = root.Dir.Enumerate(ctx)
	require.NoError(t, err)
	src.Remove(100)

	after, err := namespace.Resolve(ctx, root, "7", "status")
	require.NoError(t, err)
	assert.Equal(t, before.Ino, after.Ino)
}

func TestComposedConcurrentAccess(t *testing.T) {
	src := procsrc.NewFake(
		procsrc.Record{PID: 1, Name: "init"},
		procsrc.Record{PID: 7, Name: "worker"},
	)
	root := composedRoot(src, policy.Default())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			src.Add(procsrc.Record{PID: 500, Name: "churn"})
			src.Remove(500)
		}
	}()

	for i := 0; i < 200; i++ {
		if _, err := root.Dir.Enumerate(ctx); err != nil {
			t.Errorf("enumerate: %v", err)
		}
		if _, err := namespace.Resolve(ctx, root, "7"); err != nil {
			t.Errorf("lookup 7: %v", err)
		}
		// pid 500 may or may not exist at this instant; both results are
		// legitimate, crashing is not.
		if _, err := namespace.Resolve(ctx, root, "500"); err != nil {
			assert.ErrorIs(t, err, namespace.ErrNotFound)
		}
	}
	<-done
}
