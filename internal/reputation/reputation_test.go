package reputation

import "testing"

func TestDefaultScoreIsOne(t *testing.T) {
	m := NewMap()
	if m.Get("AS-Y") != 1.0 {
		t.Fatalf("unseen peer should default to 1.0, got %v", m.Get("AS-Y"))
	}
}

func TestAdjustMonotonicPerEvent(t *testing.T) {
	m := NewMap()
	if got := m.Adjust("AS-Y", 0.1); got != 1.1 {
		t.Fatalf("FOUND should move 1.0 -> 1.1, got %v", got)
	}
	if got := m.Adjust("AS-Y", -0.1); got != 1.0 {
		t.Fatalf("NOT_ACK should move 1.1 -> 1.0, got %v", got)
	}
}

func TestHeavyHittersNoFalseNegatives(t *testing.T) {
	h := NewHeavyHitters(1000, 0.01)
	h.Add("10.0.0.1")
	if !h.Test("10.0.0.1") {
		t.Fatal("added IP must test positive")
	}
	if h.Inserts() != 1 {
		t.Fatalf("want 1 insert, got %d", h.Inserts())
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	m := NewMap()
	m.Adjust("AS-Y", 0.1)
	snap := m.Snapshot()
	m.Adjust("AS-Y", 0.1)
	if snap["AS-Y"] != 1.1 {
		t.Fatalf("snapshot must not see later mutations, got %v", snap["AS-Y"])
	}
}
