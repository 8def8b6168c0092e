package ingest

import (
	"testing"

	"github.com/wardnet/wardnet/internal/counters"
	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/internal/packet"
)

func newTestIngestor(rate float64, draws ...float64) (*Ingestor, *counters.Counters, *managedip.Oracle) {
	c := counters.New()
	oracle := managedip.NewOracle(100, 0.01)
	in := New(c, oracle, rate, managedip.Transform(false))
	i := 0
	in.Draw = func() float64 {
		if i < len(draws) {
			v := draws[i]
			i++
			return v
		}
		return 0
	}
	return in, c, oracle
}

func TestSamplingGateKeepsAtEquality(t *testing.T) {
	in, c, _ := newTestIngestor(0.5, 0.5)
	in.Ingest(packet.Record{Src: "A", Dst: "V"})
	row := c.SnapshotDst()["V"]
	if row == nil || row.Get("A") != 1 {
		t.Fatal("draw == rate should count the packet")
	}
}

func TestSamplingGateDropsAboveRate(t *testing.T) {
	in, c, _ := newTestIngestor(0.5, 0.51)
	in.Ingest(packet.Record{Src: "A", Dst: "V"})
	if len(c.SnapshotDst()) != 0 {
		t.Fatal("draw > rate should drop the packet")
	}
}

func TestRateOneAlwaysCounts(t *testing.T) {
	in, c, _ := newTestIngestor(1.0, 0.999999)
	in.Ingest(packet.Record{Src: "A", Dst: "V"})
	if c.SnapshotDst()["V"].Get("A") != 1 {
		t.Fatal("rate 1.0 must always count")
	}
}

func TestManagedOnlySourceCounting(t *testing.T) {
	in, c, oracle := newTestIngestor(1.0, 0, 0, 0)
	oracle.Add("A") // A is managed, B is not

	in.Ingest(packet.Record{Src: "A", Dst: "V"})
	in.Ingest(packet.Record{Src: "B", Dst: "V"})

	if _, ok := c.SrcRow("A"); !ok {
		t.Fatal("managed source A must appear in SrcCounter")
	}
	if _, ok := c.SrcRow("B"); ok {
		t.Fatal("unmanaged source B must not appear in SrcCounter")
	}
	if c.SnapshotDst()["V"].Sum() != 2 {
		t.Fatal("DstCounter must count every source, managed or not")
	}
}

func TestHashTransformAppliedBeforeStorage(t *testing.T) {
	c := counters.New()
	oracle := managedip.NewOracle(100, 0.01)
	oracle.Add(managedip.HashID("A"))
	in := New(c, oracle, 1.0, managedip.Transform(true))
	in.Draw = func() float64 { return 0 }

	in.Ingest(packet.Record{Src: "A", Dst: "V"})

	if _, ok := c.SrcRow(managedip.HashID("A")); !ok {
		t.Fatal("hashed src should be the SrcCounter key when USE_HASH is on")
	}
	if _, ok := c.SrcRow("A"); ok {
		t.Fatal("raw src must never appear as a key when hashing is enabled")
	}
}
