// Package node ties every component together into the running AS
// detection node: the four cooperating activities from spec §5 (ingestion,
// periodic analysis, bus consumer, bus producer) plus the reap janitor
// that resolves the unbounded-ledger open question.
package node

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wardnet/wardnet/internal/bus"
	"github.com/wardnet/wardnet/internal/collab"
	"github.com/wardnet/wardnet/internal/counters"
	"github.com/wardnet/wardnet/internal/detect"
	"github.com/wardnet/wardnet/internal/ingest"
	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/internal/mitigation"
	"github.com/wardnet/wardnet/internal/packet"
	"github.com/wardnet/wardnet/internal/reputation"
	"github.com/wardnet/wardnet/pkg/config"
	"github.com/wardnet/wardnet/pkg/metrics"
)

// Node is the assembled detection node. Construct with New, then Run it
// with a packet Source; Run blocks until ctx is cancelled.
type Node struct {
	cfg *config.Config

	Counters     *counters.Counters
	Oracle       *managedip.Oracle
	HeavyHitters *reputation.HeavyHitters
	Reputation   *reputation.Map
	Ledger       *collab.Ledger

	bus       *bus.Client
	sink      mitigation.Sink
	transform func(string) string
	thresh    detect.Thresholds

	ingestor *ingest.Ingestor

	wg sync.WaitGroup
}

// New assembles a Node from its configuration and the two externally
// supplied collaborators (the message bus client and the mitigation sink).
// oracle must already be seeded (see managedip.LoadOracle).
func New(cfg *config.Config, oracle *managedip.Oracle, busClient *bus.Client, sink mitigation.Sink) *Node {
	transform := managedip.Transform(cfg.UseHash)
	c := counters.New()

	n := &Node{
		cfg:          cfg,
		Counters:     c,
		Oracle:       oracle,
		HeavyHitters: reputation.NewHeavyHitters(cfg.HeavyHitterCapacity, cfg.HeavyHitterFPRate),
		Reputation:   reputation.NewMap(),
		Ledger:       collab.NewLedger(),
		bus:          busClient,
		sink:         sink,
		transform:    transform,
		thresh: detect.Thresholds{
			VictimLo:               cfg.Thresholds.VictimLo,
			VictimHi:                cfg.Thresholds.VictimHi,
			VictimTimeMin:           cfg.Thresholds.VictimTimeMin,
			VictimTimePercentage:    cfg.Thresholds.VictimTimePercentage,
			Src1:                    cfg.Thresholds.Src1,
			Src2:                    cfg.Thresholds.Src2,
			Src3:                    cfg.Thresholds.Src3,
			Src3Min:                 cfg.Thresholds.Src3Min,
			TrafficProportionality:  cfg.Thresholds.TrafficProportionality,
		},
	}
	n.ingestor = ingest.New(c, oracle, cfg.SamplingRate, transform)
	return n
}

// Run starts every cooperating activity and blocks until ctx is done.
func (n *Node) Run(ctx context.Context, src packet.Source) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.ingestor.Run(ctx, src)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.analysisLoop(ctx)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.reapLoop(ctx)
	}()

	if n.bus != nil {
		for _, topic := range n.cfg.AllTopics() {
			n.startBusConsumer(ctx, topic)
		}
	}

	<-ctx.Done()
	n.wg.Wait()
}

func (n *Node) startBusConsumer(ctx context.Context, topic string) {
	reqTopic := topic + ".REQ"
	resTopic := topic + ".RES"

	reqReader := n.bus.Subscribe(reqTopic)
	resReader := n.bus.Subscribe(resTopic)

	reqCh := make(chan bus.Message, 16)
	resCh := make(chan bus.Message, 16)

	n.wg.Add(3)
	go func() {
		defer n.wg.Done()
		defer reqReader.Close()
		bus.Consume(ctx, reqTopic, reqReader, reqCh)
	}()
	go func() {
		defer n.wg.Done()
		defer resReader.Close()
		bus.Consume(ctx, resTopic, resReader, resCh)
	}()
	go func() {
		defer n.wg.Done()
		n.dispatchLoop(ctx, topic, reqCh, resCh)
	}()
}

func (n *Node) dispatchLoop(ctx context.Context, topic string, reqCh, resCh <-chan bus.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-reqCh:
			if !ok {
				return
			}
			n.onBusRequest(ctx, topic, m)
		case m, ok := <-resCh:
			if !ok {
				return
			}
			n.onBusResponse(m)
		}
	}
}

func (n *Node) reapLoop(ctx context.Context) {
	interval := time.Duration(n.cfg.ReapIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ttl := time.Duration(n.cfg.RequestTTLSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, responses := n.Ledger.Reap(ttl)
			if pending > 0 {
				metrics.ReapEvictionsTotal.WithLabelValues("pending").Add(float64(pending))
			}
			if responses > 0 {
				metrics.ReapEvictionsTotal.WithLabelValues("response").Add(float64(responses))
			}
			p, r := n.Ledger.Counts()
			metrics.PendingRequests.Set(float64(p))
			metrics.ResponseLedgerEntries.Set(float64(r))
			log.Debug().Int("evicted_pending", pending).Int("evicted_responses", responses).Msg("reap_tick")
		}
	}
}
