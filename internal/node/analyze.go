package node

import (
	"context"
	"time"

	"github.com/wardnet/wardnet/internal/collab"
	"github.com/wardnet/wardnet/internal/detect"
	"github.com/wardnet/wardnet/pkg/metrics"
)

// analysisLoop runs tick every ANALYSIS_PERIOD seconds until ctx is done.
func (n *Node) analysisLoop(ctx context.Context) {
	interval := time.Duration(n.cfg.AnalysisPeriod) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.tick(ctx)
		}
	}
}

// tick implements spec §4.3: run the shallow Attack analysis over every
// victim seen this window, fan out a CollabRequest per chunk of candidate
// sources for anything detected, submit the whole candidate set to
// mitigation, then reset the counters for the next window.
func (n *Node) tick(ctx context.Context) {
	snapshot := n.Counters.SnapshotDst()

	for victim, row := range snapshot {
		total := row.Sum()
		prev := n.Counters.DstAggregatePrev(victim)

		result := detect.Shallow(total, prev, n.thresh)
		if !result.Detected {
			continue
		}
		metrics.ShallowDetectionsTotal.WithLabelValues(string(result.Case)).Inc()

		candidates := row.Keys()
		if len(candidates) == 0 {
			continue
		}

		topics := n.chooseTopics(total)
		for _, chunk := range collab.Chunk(candidates, n.cfg.MsgLength) {
			req := collab.NewRequest(n.cfg.ASName, victim, chunk, result.Strength/n.cfg.ASSize, result.Case)
			n.publishRequest(ctx, req, topics)
			// The originator also runs the responder path against its own
			// state, synchronously and without self-echo suppression; the
			// copy that comes back over the bus is dropped by handleRequest's
			// self-echo check.
			n.handleRequest(ctx, req, false, topics)
		}

		n.sink.Filter(candidates)
	}

	n.Counters.Reset()
}

// chooseTopics picks which base topics a detected victim's CollabRequests
// are published on: the configured TOPICS list wholesale when
// TOPICS_USE_ADDITIONAL is set, otherwise TOPIC_HIGH or TOPIC_LOW by
// priority (spec §4.3 step 3).
func (n *Node) chooseTopics(total uint64) []string {
	if n.cfg.Topics.UseAdditional && len(n.cfg.Topics.Additional) > 0 {
		return n.cfg.Topics.Additional
	}
	if detect.ClassifyPriority(total, n.thresh) == detect.PriorityHigh {
		return []string{n.cfg.Topics.High}
	}
	return []string{n.cfg.Topics.Low}
}
