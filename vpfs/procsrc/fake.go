package procsrc

import (
	"sync"
)

// Fake is a deterministic in-memory Source for tests and demo mounts. The
// table can be mutated between calls, which is exactly how tests exercise
// the process-vanished-mid-request race the providers must tolerate.
type Fake struct {
	mu    sync.RWMutex
	order []int32
	procs map[int32]Record
}

var _ Source = (*Fake)(nil)

// NewFake builds a fake table seeded with recs. ListPIDs preserves seeding
// order.
func NewFake(recs ...Record) *Fake {
	f := &Fake{procs: make(map[int32]Record, len(recs))}
	for _, rec := range recs {
		f.Add(rec)
	}
	return f
}

// Add inserts or replaces a record.
func (f *Fake) Add(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.procs[rec.PID]; !exists {
		f.order = append(f.order, rec.PID)
	}
	f.procs[rec.PID] = rec
}

// Remove drops pid from the table, simulating process exit.
func (f *Fake) Remove(pid int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.procs[pid]; !exists {
		return
	}
	delete(f.procs, pid)
	for i, p := range f.order {
		if p == pid {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// ListPIDs implements Source.
func (f *Fake) ListPIDs() ([]int32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pids := make([]int32, len(f.order))
	copy(pids, f.order)
	return pids, nil
}

// GetProcess implements Source. The returned Record is a copy, so callers
// can hold it past subsequent table mutations.
func (f *Fake) GetProcess(pid int32) (*Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.procs[pid]
	if !ok {
		return nil, ErrNoSuchProcess
	}
	return &rec, nil
}
