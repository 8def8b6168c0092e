package packet

import (
	"context"
	"math/rand"
	"time"
)

// Generator emits synthetic packet records for tests and local evaluation.
// It is grounded on the traffic-driver role original_source/src/traffic
// played in the prototype, but it is explicitly NOT a production capture
// path — the real Source (packet capture, or a capture-file reader) is out
// of scope per spec and must be supplied by the operator.
type Generator struct {
	// Hosts is the pool of source/destination identifiers to draw from.
	Hosts []string
	// Rate is the average inter-packet gap; a new record is emitted
	// roughly every Rate, jittered by +/-50%.
	Rate time.Duration
	// Rand is used for host selection and jitter; defaults to a fresh
	// rand.Rand seeded from the current time if nil.
	Rand *rand.Rand
}

// Run emits records onto out until ctx is done or count records have been
// sent (count <= 0 means unbounded). The caller owns out and must drain it;
// Run never blocks past ctx cancellation.
func (g *Generator) Run(ctx context.Context, out chan<- Record, count int) {
	r := g.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if len(g.Hosts) < 2 {
		return
	}
	rate := g.Rate
	if rate <= 0 {
		rate = 10 * time.Millisecond
	}

	sent := 0
	for {
		if count > 0 && sent >= count {
			return
		}
		jitter := time.Duration(r.Int63n(int64(rate))) - rate/2
		select {
		case <-ctx.Done():
			return
		case <-time.After(rate + jitter):
		}

		src := g.Hosts[r.Intn(len(g.Hosts))]
		dst := g.Hosts[r.Intn(len(g.Hosts))]
		for dst == src {
			dst = g.Hosts[r.Intn(len(g.Hosts))]
		}
		transport := TCP
		if r.Intn(2) == 0 {
			transport = UDP
		}
		rec := Record{
			Src:       src,
			Dst:       dst,
			SrcPort:   1024 + r.Intn(60000),
			DstPort:   1 + r.Intn(1024),
			Timestamp: time.Now(),
			Transport: transport,
		}
		select {
		case <-ctx.Done():
			return
		case out <- rec:
			sent++
		}
	}
}
