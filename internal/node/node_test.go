package node

import (
	"context"
	"testing"

	"github.com/wardnet/wardnet/internal/collab"
	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/pkg/config"
)

type fakeSink struct {
	calls [][]string
}

func (f *fakeSink) Filter(ips []string) {
	cp := append([]string(nil), ips...)
	f.calls = append(f.calls, cp)
}

func (f *fakeSink) total() int {
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

func testNode(t *testing.T) (*Node, *fakeSink) {
	t.Helper()
	cfg := &config.Config{
		ASName:         "AS1",
		ASSize:         1,
		AnalysisPeriod: 10,
		MsgLength:      50,
		Thresholds: config.Thresholds{
			VictimLo:               100,
			VictimHi:               1000,
			VictimTimeMin:          50,
			VictimTimePercentage:   2.0,
			Src1:                   50,
			Src2:                   200,
			Src3:                   0.8,
			Src3Min:                20,
			TrafficProportionality: 10,
		},
		Topics:              config.Topics{High: "TOPIC_HIGH", Low: "TOPIC_LOW"},
		HeavyHitterCapacity:  1000,
		HeavyHitterFPRate:    0.01,
		ManagedIPsCapacity:   1000,
		ManagedIPsFPRate:     0.01,
	}
	oracle := managedip.NewOracle(cfg.ManagedIPsCapacity, cfg.ManagedIPsFPRate)
	oracle.Add("ATK1")

	sink := &fakeSink{}
	n := New(cfg, oracle, nil, sink)
	return n, sink
}

func TestHandleRequestSelfEchoSuppressed(t *testing.T) {
	n, _ := testNode(t)
	req := collab.NewRequest("AS1", "V", []string{"ATK1"}, 1, collab.Threshold)

	n.handleRequest(context.Background(), req, true, []string{"TOPIC_HIGH"})

	if _, ok := n.Ledger.Pending(req.RequestID); ok {
		t.Fatal("self-originated request arriving via bus must be dropped before being stored")
	}
}

func TestHandleRequestNonSelfEchoStoresPending(t *testing.T) {
	n, _ := testNode(t)
	req := collab.NewRequest("AS2", "V", []string{"ATK1"}, 1, collab.Threshold)

	n.handleRequest(context.Background(), req, true, []string{"TOPIC_LOW"})

	if _, ok := n.Ledger.Pending(req.RequestID); !ok {
		t.Fatal("a peer's request must be recorded in PendingRequest")
	}
}

func TestHandleRequestUnderThresholdSkipsDeepAnalysis(t *testing.T) {
	n, sink := testNode(t)
	req := collab.NewRequest("AS2", "V", []string{"ATK1"}, 0, collab.Threshold)

	n.handleRequest(context.Background(), req, true, []string{"TOPIC_LOW"})

	if sink.total() != 0 {
		t.Fatalf("requests below this node's own threshold must never reach the deep analyzer or the sink, got %d ips", sink.total())
	}

	resp, ackIPs := n.buildResponse(req)
	if resp.Decision != collab.NotAck {
		t.Fatalf("below-own-threshold must respond NOT_ACK per spec §4.5 step 5, got %v", resp.Decision)
	}
	if len(ackIPs) != 0 {
		t.Fatalf("below-own-threshold must not confirm any attackers, got %v", ackIPs)
	}
}

func TestHandleRequestAboveThresholdConfirmsAttacker(t *testing.T) {
	n, sink := testNode(t)
	for i := 0; i < 60; i++ {
		n.Counters.IncSrc("ATK1", "V")
	}

	req := collab.NewRequest("AS2", "V", []string{"ATK1"}, 1000, collab.Threshold)
	n.handleRequest(context.Background(), req, true, []string{"TOPIC_LOW"})

	if sink.total() == 0 {
		t.Fatal("a confirmed attacker must be submitted to the mitigation sink")
	}
	found := false
	for _, c := range sink.calls {
		for _, ip := range c {
			if ip == "ATK1" {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("ATK1 should have been confirmed via deep analysis case 1")
	}
}

func TestHandleResponseFoundAdjustsReputationAndHeavyHitters(t *testing.T) {
	n, sink := testNode(t)
	resp := collab.Response{
		RequestID:               "r1",
		RequestOriginator:       "AS1",
		ASName:                  "AS2",
		Decision:                collab.Found,
		AckPotentialAttackerIPs: []string{"9.9.9.9"},
	}

	n.handleResponse(resp)

	if got := n.Reputation.Get("AS2"); got != 1.1 {
		t.Fatalf("reputation should rise by 0.1 for a FOUND response to our own request, got %v", got)
	}
	if !n.HeavyHitters.Test("9.9.9.9") {
		t.Fatal("an acknowledged attacker must be added to HeavyHitters")
	}
	if sink.total() == 0 {
		t.Fatal("acknowledged attackers must be submitted to mitigation")
	}
}

func TestHandleResponseNotAckOnlyMovesReputationWhenSelfOriginated(t *testing.T) {
	n, _ := testNode(t)

	n.handleResponse(collab.Response{RequestID: "r1", RequestOriginator: "AS1", ASName: "AS2", Decision: collab.NotAck})
	if got := n.Reputation.Get("AS2"); got != 0.9 {
		t.Fatalf("reputation should fall by 0.1 for a NOT_ACK to our own request, got %v", got)
	}

	n.handleResponse(collab.Response{RequestID: "r2", RequestOriginator: "AS3", ASName: "AS4", Decision: collab.NotAck})
	if got := n.Reputation.Get("AS4"); got != 1.0 {
		t.Fatalf("a NOT_ACK to someone else's request must not move our reputation table, got %v", got)
	}
}

func TestTickResetsCountersRegardlessOfDetection(t *testing.T) {
	n, _ := testNode(t)
	n.Counters.IncDst("V", "S1")

	n.tick(context.Background())

	if len(n.Counters.SnapshotDst()) != 0 {
		t.Fatal("tick must reset DstCounter even when nothing was detected")
	}
}

func TestTickDetectsAndRunsSelfResponder(t *testing.T) {
	n, sink := testNode(t)
	for i := 0; i < 150; i++ {
		n.Counters.IncDst("V", "ATK1")
	}
	n.Counters.IncSrc("ATK1", "V")

	n.tick(context.Background())

	pending, _ := n.Ledger.Counts()
	if pending == 0 {
		t.Fatal("a detected victim must produce at least one pending CollabRequest, including the self-invoked local response")
	}
	if sink.total() == 0 {
		t.Fatal("a detected victim's candidate sources must be submitted to mitigation")
	}
}
