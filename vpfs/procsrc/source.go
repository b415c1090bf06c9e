// Package procsrc supplies the live process table consumed by the namespace
// providers. The Source capability is deliberately narrow (list ids, fetch
// one record) so the rest of the translator can be tested against a
// deterministic fake table.
package procsrc

import (
	"errors"
	"time"
)

// ErrNoSuchProcess is returned by GetProcess when the pid does not resolve
// to a currently-live process. Callers treat it as an ordinary negative
// lookup, never as a fault.
var ErrNoSuchProcess = errors.New("no such process")

// State is the single-letter lifecycle state of a process, using the
// conventional encoding (R running, S sleeping, D uninterruptible,
// Z zombie, T stopped).
type State string

const (
	StateRunning  State = "R"
	StateSleeping State = "S"
	StateWaiting  State = "D"
	StateZombie   State = "Z"
	StateStopped  State = "T"
)

// Record is a point-in-time view of one process. Providers borrow Records
// read-only for the duration of a single request; a Record may describe a
// process that has already exited by the time it is rendered.
type Record struct {
	PID  int32
	PPID int32
	PGID int32

	Name  string // short command name
	State State

	Owner    uint32 // owning uid, valid only when HasOwner
	HasOwner bool

	Args []string // full argument vector
	Env  []string // environment strings, may be empty when unreadable

	UTime     uint64 // user cpu time consumed, nanoseconds
	STime     uint64 // system cpu time consumed, nanoseconds
	StartedAt time.Time

	VirtBytes uint64
	RSSBytes  uint64
}

// Source is the process table capability. Implementations must tolerate
// concurrent callers and never guarantee that two calls observe the same
// snapshot: a pid returned by ListPIDs may already be gone when GetProcess
// is called with it.
type Source interface {
	// ListPIDs returns the ids of all currently-live processes, in the
	// source's natural order.
	ListPIDs() ([]int32, error)

	// GetProcess returns the record for pid, or ErrNoSuchProcess.
	GetProcess(pid int32) (*Record, error)
}
