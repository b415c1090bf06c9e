// Package policy holds the immutable, configuration-derived rules for
// computing the mode, owner, and time scaling of synthesized nodes. A Policy
// is constructed once at startup and passed into every provider constructor;
// it is never mutated afterwards.
package policy

import (
	"context"
	"io/fs"

	"github.com/ZanzyTHEbar/virtual-procfs/vpfs/procsrc"
)

// Default values mirror the translator's command-line defaults.
const (
	DefaultClkTck    = 100
	DefaultStatMode  = fs.FileMode(0o400)
	DefaultKernelPID = 2
	DefaultAnonOwner = 0

	// CallerSelf marks the self alias as caller-relative rather than fixed.
	CallerSelf int32 = -1
)

// Policy is the full set of runtime-configurable attribute knobs.
type Policy struct {
	ClkTck    int64       // clock ticks per second shown to clients
	StatMode  fs.FileMode // mode override for the owner-sensitive stat file
	FakeSelf  int32       // fixed self alias target; CallerSelf for caller-relative
	KernelPID int32       // pid presented as the kernel process
	AnonOwner uint32      // uid assigned to nodes without a determinable owner
}

// Default returns the policy used when no configuration overrides are given.
func Default() Policy {
	return Policy{
		ClkTck:    DefaultClkTck,
		StatMode:  DefaultStatMode,
		FakeSelf:  CallerSelf,
		KernelPID: DefaultKernelPID,
		AnonOwner: DefaultAnonOwner,
	}
}

// OwnerFor returns the uid advertised for nodes backed by rec. Processes
// without a determinable owner fall back to the anonymous owner.
func (p Policy) OwnerFor(rec *procsrc.Record) uint32 {
	if rec != nil && rec.HasOwner {
		return rec.Owner
	}
	return p.AnonOwner
}

// StatFileMode returns the mode advertised for the stat file. The natural
// mode is restrictive; environments wanting Linux-compatible permissive
// access override it at startup.
func (p Policy) StatFileMode() fs.FileMode {
	return p.StatMode
}

// Ticks converts a duration in nanoseconds into the configured clock-tick
// unit. Every tick-denominated value shown to clients goes through this, so
// the advertised unit is consistent regardless of the host's native clock
// resolution.
func (p Policy) Ticks(ns uint64) uint64 {
	hz := uint64(p.ClkTck)
	// split to keep the sub-second remainder without overflowing
	return ns/1e9*hz + ns%1e9*hz/1e9
}

// SelfTarget resolves the self alias to a concrete pid. A fixed target wins;
// otherwise the caller's own pid is used when the request context carries
// one. ok is false when neither is available.
func (p Policy) SelfTarget(ctx context.Context) (pid int32, ok bool) {
	if p.FakeSelf >= 0 {
		return p.FakeSelf, true
	}
	return CallerFromContext(ctx)
}

type callerKey struct{}

// WithCaller returns a context carrying the pid of the process issuing the
// current request. The transport adapter installs it before dispatching into
// the namespace.
func WithCaller(ctx context.Context, pid int32) context.Context {
	return context.WithValue(ctx, callerKey{}, pid)
}

// CallerFromContext extracts the requesting process's pid, if the transport
// recorded one.
func CallerFromContext(ctx context.Context) (int32, bool) {
	pid, ok := ctx.Value(callerKey{}).(int32)
	return pid, ok
}
