// Package ingest implements the Ingestor: it drains packet records
// indefinitely, applies the sampling gate, and updates the dst- and
// src-perspective counters under the managed-IP filter (spec §4.1).
package ingest

import (
	"context"
	"math/rand"

	"github.com/wardnet/wardnet/internal/counters"
	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/internal/packet"
	"github.com/wardnet/wardnet/pkg/metrics"
)

// Ingestor consumes PacketRecords and never blocks on analysis; queue
// overflow (if any) is the producer's problem, per spec.
type Ingestor struct {
	Counters     *counters.Counters
	Oracle       *managedip.Oracle
	SamplingRate float64
	Transform    func(string) string // HashID when USE_HASH is set, identity otherwise

	// Draw returns a uniform sample in [0,1); overridable for deterministic
	// tests. Defaults to rand.Float64 at construction.
	Draw func() float64
}

func New(c *counters.Counters, oracle *managedip.Oracle, samplingRate float64, transform func(string) string) *Ingestor {
	return &Ingestor{
		Counters:     c,
		Oracle:       oracle,
		SamplingRate: samplingRate,
		Transform:    transform,
		Draw:         rand.Float64,
	}
}

// Run drains src until ctx is cancelled or the channel closes.
func (in *Ingestor) Run(ctx context.Context, src packet.Source) {
	ch := src.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			in.Ingest(rec)
		}
	}
}

// Ingest applies spec §4.1 steps 1-3 to a single record.
func (in *Ingestor) Ingest(rec packet.Record) {
	if in.Draw() > in.SamplingRate {
		metrics.PacketsSampledOut.Inc()
		return
	}

	src := in.Transform(rec.Src)
	dst := in.Transform(rec.Dst)

	in.Counters.IncDst(dst, src)
	metrics.PacketsIngested.Inc()

	if in.Oracle.Test(src) {
		in.Counters.IncSrc(src, dst)
	}
}
