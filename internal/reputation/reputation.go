// Package reputation tracks per-peer trust scores and the monotonic,
// append-only HeavyHitterTable of IPs confirmed as attackers across
// collaboration rounds.
package reputation

import (
	"sync"
	"sync/atomic"

	"github.com/wardnet/wardnet/internal/managedip"
)

const defaultScore = 1.0

// Map is ReputationMap: peer_as_name -> float, defaulting to 1.0 for any
// peer never seen before. Unbounded in principle; normally moved by ±0.1.
type Map struct {
	mu     sync.RWMutex
	scores map[string]float64
}

func NewMap() *Map {
	return &Map{scores: make(map[string]float64)}
}

// Get returns the current score for as, defaultScore if unseen.
func (m *Map) Get(as string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.scores[as]; ok {
		return v
	}
	return defaultScore
}

// Adjust adds delta to as's score (creating it at defaultScore+delta if
// unseen) and returns the new value.
func (m *Map) Adjust(as string, delta float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scores[as]
	if !ok {
		v = defaultScore
	}
	v += delta
	m.scores[as] = v
	return v
}

// Snapshot returns a copy of every known peer's score, for the admin
// surface's /reputation endpoint.
func (m *Map) Snapshot() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.scores))
	for k, v := range m.scores {
		out[k] = v
	}
	return out
}

// HeavyHitters is the HeavyHitterTable: an insert-only approximate set of
// IPs confirmed as attackers, reusing the same Bloom-filter primitive as
// the Managed-IP Oracle. It is monotonic for the process lifetime — there
// is no Remove. Per spec §9's open question, the write path is the only
// consumer wired into the detection pipeline today; Test is the clearly
// marked extension point for a future pre-filter (exposed read-only via
// internal/httpserver's /heavy-hitters probe).
type HeavyHitters struct {
	mu      sync.RWMutex
	oracle  *managedip.Oracle
	inserts int64
}

func NewHeavyHitters(n uint, fp float64) *HeavyHitters {
	return &HeavyHitters{oracle: managedip.NewOracle(n, fp)}
}

// Add records ip as a confirmed heavy hitter.
func (h *HeavyHitters) Add(ip string) {
	h.mu.Lock()
	h.oracle.Add(ip)
	h.mu.Unlock()
	atomic.AddInt64(&h.inserts, 1)
}

// Test reports whether ip has (probably) been confirmed as a heavy hitter.
func (h *HeavyHitters) Test(ip string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.oracle.Test(ip)
}

// Inserts returns the total number of Add calls observed, for metrics.
func (h *HeavyHitters) Inserts() int64 {
	return atomic.LoadInt64(&h.inserts)
}
