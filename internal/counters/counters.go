// Package counters holds the in-memory traffic accounting model: the
// dst-perspective and src-perspective counting maps, and the previous-window
// snapshots the analyzers compare against.
//
// Locking follows the teacher's perKey pattern (one mutex per outer-map row,
// not one mutex for the whole structure) — a striped lock keyed by the map's
// own keys, which spec's concurrency model calls out as preferable to a
// single coarse lock.
package counters

import "sync"

// row is one entry of an outer counting map: a plain map guarded by its own
// mutex, so the outer map's RWMutex only needs to be held long enough to
// find or create the row.
type row struct {
	mu sync.Mutex
	m  map[string]uint64
}

func newRow() *row { return &row{m: make(map[string]uint64)} }

func (r *row) inc(key string) {
	r.mu.Lock()
	r.m[key]++
	r.mu.Unlock()
}

func (r *row) sum() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint64
	for _, v := range r.m {
		total += v
	}
	return total
}

func (r *row) get(key string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m[key]
}

func (r *row) copyOut() map[string]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]uint64, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}

// stripedMap is a map[string]*row guarded by one RWMutex for structural
// changes (adding a new outer key); per-row content changes use the row's
// own mutex and never hold the outer lock.
type stripedMap struct {
	mu   sync.RWMutex
	rows map[string]*row
}

func newStripedMap() *stripedMap {
	return &stripedMap{rows: make(map[string]*row)}
}

func (s *stripedMap) inc(outer, inner string) {
	s.mu.RLock()
	r, ok := s.rows[outer]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		r, ok = s.rows[outer]
		if !ok {
			r = newRow()
			s.rows[outer] = r
		}
		s.mu.Unlock()
	}
	r.inc(inner)
}

// snapshot returns a shallow copy of the outer map: same *row pointers, new
// top-level map. Per spec, this is sufficient — callers read row contents
// through the row's own lock, so the "read-only" treatment of rows during
// analysis is enforced by that lock, not by convention alone.
func (s *stripedMap) snapshot() map[string]*row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*row, len(s.rows))
	for k, v := range s.rows {
		out[k] = v
	}
	return out
}

// drain swaps in a fresh empty map and returns the previous one.
func (s *stripedMap) drain() map[string]*row {
	s.mu.Lock()
	old := s.rows
	s.rows = make(map[string]*row)
	s.mu.Unlock()
	return old
}

// Counters is the shared mutable traffic-accounting state: DstCounter,
// SrcCounter, and the previous-window snapshots (SrcCounterPrev,
// DstAggregatePrev).
type Counters struct {
	dst *stripedMap
	src *stripedMap

	prevMu      sync.RWMutex
	srcPrev     map[string]map[string]uint64
	dstAggPrev  map[string]uint64
}

func New() *Counters {
	return &Counters{
		dst:        newStripedMap(),
		src:        newStripedMap(),
		srcPrev:    map[string]map[string]uint64{},
		dstAggPrev: map[string]uint64{},
	}
}

// IncDst increments DstCounter[dst][src] unconditionally.
func (c *Counters) IncDst(dst, src string) { c.dst.inc(dst, src) }

// IncSrc increments SrcCounter[src][dst]; callers must have already checked
// src is a managed IP (the invariant SrcCounter keys ⊆ ManagedIPs is
// enforced by the ingestor, not here).
func (c *Counters) IncSrc(src, dst string) { c.src.inc(src, dst) }

// DstRow returns the live row for victim, or nil if none exists. Used by
// the deep analyzer to read DstCounter[atk][victim] (traffic from the
// victim back to a candidate attacker).
func (c *Counters) DstRow(victim string) (*row, bool) {
	c.dst.mu.RLock()
	defer c.dst.mu.RUnlock()
	r, ok := c.dst.rows[victim]
	return r, ok
}

// SrcRow returns the live row for src, or nil if none exists.
func (c *Counters) SrcRow(src string) (*row, bool) {
	c.src.mu.RLock()
	defer c.src.mu.RUnlock()
	r, ok := c.src.rows[src]
	return r, ok
}

// Get reads a single (outer,inner) cell, 0 if absent, without exposing a row.
func (r *row) Get(inner string) uint64 {
	if r == nil {
		return 0
	}
	return r.get(inner)
}

// Sum adds up every value in the row, 0 if the row is nil.
func (r *row) Sum() uint64 {
	if r == nil {
		return 0
	}
	return r.sum()
}

// Keys returns the row's inner keys (e.g. the suspected sources for one
// victim), in no particular order.
func (r *row) Keys() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	return out
}

// SnapshotDst returns a shallow copy of DstCounter's outer map.
func (c *Counters) SnapshotDst() map[string]*row { return c.dst.snapshot() }

// SnapshotSrc returns a shallow copy of SrcCounter's outer map.
func (c *Counters) SnapshotSrc() map[string]*row { return c.src.snapshot() }

// SrcPrevRow returns the frozen previous-window row for src, or nil.
// SrcCounterPrev is immutable between resets, so no per-call locking of the
// row itself is required once it is retrieved.
func (c *Counters) SrcPrevRow(src string) map[string]uint64 {
	c.prevMu.RLock()
	defer c.prevMu.RUnlock()
	return c.srcPrev[src]
}

// DstAggregatePrev returns Σ DstCounter[dst] as captured at the previous
// reset, 0 if dst had no traffic in that window.
func (c *Counters) DstAggregatePrev(dst string) uint64 {
	c.prevMu.RLock()
	defer c.prevMu.RUnlock()
	return c.dstAggPrev[dst]
}

// Reset implements the end-of-tick sequence from spec §4.3 step 6:
// DstAggregatePrev is set from the current DstCounter, SrcCounterPrev is
// set to a deep copy of the current SrcCounter, and DstCounter/SrcCounter
// are cleared. The two halves are independent (separate outer-map locks),
// which is sufficient: nothing reads DstAggregatePrev and SrcCounterPrev
// together atomically, only each on its own threshold comparison.
func (c *Counters) Reset() {
	oldDst := c.dst.drain()
	aggPrev := make(map[string]uint64, len(oldDst))
	for dst, r := range oldDst {
		aggPrev[dst] = r.Sum()
	}

	oldSrc := c.src.drain()
	srcPrev := make(map[string]map[string]uint64, len(oldSrc))
	for src, r := range oldSrc {
		srcPrev[src] = r.copyOut()
	}

	c.prevMu.Lock()
	c.dstAggPrev = aggPrev
	c.srcPrev = srcPrev
	c.prevMu.Unlock()
}

// Row is the read-only view handed to analyzers: Get and Sum over a
// snapshot row. Exported so other packages can type-annotate without
// reaching into stripedMap internals.
type Row = row
