// Package observability keeps the session's internal counters. The
// silent-drop posture means a rejected peer gets no feedback; these
// counters exist so the behavior stays observable and testable from
// the inside without weakening that contract.
package observability

import "sync"

type DropReason string

const (
	DropBadShape     DropReason = "bad_shape"
	DropBadType      DropReason = "bad_type"
	DropBadFilename  DropReason = "bad_filename"
	DropOversize     DropReason = "oversize"
	DropRateLimited  DropReason = "rate_limited"
	DropUnauthorized DropReason = "unauthorized"
	DropStaleVersion DropReason = "stale_version"
	DropUnknownFile  DropReason = "unknown_file"
	DropAssembly     DropReason = "assembly"
	DropBadDirective DropReason = "bad_directive"
)

// Audit is written by the engine goroutine and read by the telemetry
// worker, hence the mutex despite the single-owner design elsewhere.
type Audit struct {
	mu      sync.Mutex
	drops   map[DropReason]uint64
	applied uint64
	relayed uint64
}

func NewAudit() *Audit {
	return &Audit{drops: make(map[DropReason]uint64)}
}

func (a *Audit) Drop(reason DropReason) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.drops[reason]++
}

func (a *Audit) Applied() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied++
}

func (a *Audit) Relayed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.relayed++
}

// Drops returns a copy of the per-reason drop counters.
func (a *Audit) Drops() map[DropReason]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[DropReason]uint64, len(a.drops))
	for reason, n := range a.drops {
		out[reason] = n
	}
	return out
}

func (a *Audit) DropCount(reason DropReason) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.drops[reason]
}

func (a *Audit) AppliedCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied
}

func (a *Audit) RelayedCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.relayed
}
