package node

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wardnet/wardnet/internal/bus"
	"github.com/wardnet/wardnet/internal/collab"
	"github.com/wardnet/wardnet/internal/detect"
	"github.com/wardnet/wardnet/pkg/metrics"
)

// onBusRequest decodes a REQ arriving on topic and dispatches it with
// viaBus=true so self-echo suppression applies.
func (n *Node) onBusRequest(ctx context.Context, topic string, m bus.Message) {
	var req collab.Request
	if err := json.Unmarshal(m.Value, &req); err != nil {
		metrics.BusReadErrorsTotal.Inc()
		log.Warn().Err(err).Str("topic", topic).Msg("malformed_collab_request")
		return
	}
	n.handleRequest(ctx, req, true, []string{topic})
}

// onBusResponse decodes a RES arriving on the bus.
func (n *Node) onBusResponse(m bus.Message) {
	var resp collab.Response
	if err := json.Unmarshal(m.Value, &resp); err != nil {
		metrics.BusReadErrorsTotal.Inc()
		log.Warn().Err(err).Msg("malformed_collab_response")
		return
	}
	n.handleResponse(resp)
}

// handleRequest implements spec §4.5's responder side. viaBus distinguishes
// a request that arrived over the bus (where self-echo suppression applies)
// from the synchronous local invocation the originator makes against its own
// node during the same analysis tick (spec §5's self-invocation note).
// topics is the set of base topics this request is to be answered on: the
// single arrival topic for a bus delivery, or the full fan-out list chosen
// by the caller for a local one.
func (n *Node) handleRequest(ctx context.Context, req collab.Request, viaBus bool, topics []string) {
	if viaBus && req.RequestOriginator == n.cfg.ASName {
		metrics.SelfEchoDroppedTotal.Inc()
		return
	}

	n.Ledger.PutPending(req)

	if n.isHighPriority(topics) && n.Reputation.Get(req.RequestOriginator) > 0.5 {
		n.sink.Filter(req.PotentialAttackerIPs)
	}

	resp, ackIPs := n.buildResponse(req)
	if len(ackIPs) > 0 {
		metrics.DeepConfirmationsTotal.Add(float64(len(ackIPs)))
		n.sink.Filter(ackIPs)
	}

	n.publishResponse(ctx, resp, topics)
}

// buildResponse implements spec §4.5 steps 4-6: below this node's own
// threshold it answers NOT_ACK outright; otherwise it runs the deep
// analyzer against every managed candidate and classifies the outcome.
// Split out of handleRequest so the decision it produces can be asserted
// directly in tests without a live bus.
func (n *Node) buildResponse(req collab.Request) (collab.Response, []string) {
	if !n.isLargerThanOwnThreshold(req) {
		return collab.Response{
			RequestID:         req.RequestID,
			RequestOriginator: req.RequestOriginator,
			ASName:            n.cfg.ASName,
			Decision:          collab.NotAck,
		}, nil
	}

	var (
		managedCount int
		ackIPs       []string
	)
	for _, atk := range req.PotentialAttackerIPs {
		if !n.Oracle.Test(atk) {
			continue
		}
		managedCount++

		srcRow, _ := n.Counters.SrcRow(atk)
		prevRow := n.Counters.SrcPrevRow(atk)
		dstRow, _ := n.Counters.DstRow(atk)

		if detect.DeepConfirm(srcRow, prevRow, dstRow, req.PotentialVictim, n.thresh) {
			ackIPs = append(ackIPs, atk)
		}
	}

	return collab.Response{
		RequestID:               req.RequestID,
		RequestOriginator:       req.RequestOriginator,
		ASName:                  n.cfg.ASName,
		Decision:                collab.ClassifyDecision(managedCount, len(ackIPs)),
		AckPotentialAttackerIPs: ackIPs,
	}, ackIPs
}

// handleResponse implements spec §4.5's originator side: record the
// response; every FOUND submits its IPs to mitigation and HeavyHitters,
// while reputation moves on FOUND / NOT_ACK only when this node was the
// one that asked — a response to someone else's request never moves this
// node's own reputation table.
func (n *Node) handleResponse(resp collab.Response) {
	n.Ledger.PutResponse(resp)

	switch resp.Decision {
	case collab.Found:
		n.sink.Filter(resp.AckPotentialAttackerIPs)
		for _, ip := range resp.AckPotentialAttackerIPs {
			n.HeavyHitters.Add(ip)
		}
		if resp.RequestOriginator == n.cfg.ASName {
			n.Reputation.Adjust(resp.ASName, 0.1)
			metrics.ReputationAdjustmentsTotal.WithLabelValues("up").Inc()
		}
	case collab.NotAck:
		if resp.RequestOriginator == n.cfg.ASName {
			n.Reputation.Adjust(resp.ASName, -0.1)
			metrics.ReputationAdjustmentsTotal.WithLabelValues("down").Inc()
		}
	case collab.NotManaged, collab.UnderThrs:
		// no reputation or mitigation action.
	}
}

func (n *Node) isHighPriority(topics []string) bool {
	for _, t := range topics {
		if t == n.cfg.Topics.High {
			return true
		}
	}
	return false
}

// isLargerThanOwnThreshold rescales the originator's relative strength by
// this node's own AS_SIZE and compares it against the threshold matching
// the request's detection case (spec §4.5 step 5).
func (n *Node) isLargerThanOwnThreshold(req collab.Request) bool {
	local := req.RequestsRelativeToSize * n.cfg.ASSize
	switch req.RequestDetection {
	case collab.Threshold:
		return local > n.thresh.VictimLo
	case collab.TrafficIncrease:
		return local > n.thresh.VictimTimePercentage
	default:
		return false
	}
}

func (n *Node) publishRequest(ctx context.Context, req collab.Request, topics []string) {
	if n.bus == nil {
		return
	}
	body, err := json.Marshal(req)
	if err != nil {
		log.Error().Err(err).Msg("marshal_collab_request_failed")
		return
	}
	for _, topic := range topics {
		full := topic + ".REQ"
		if err := n.bus.Publish(ctx, full, req.RequestID, body); err != nil {
			log.Warn().Err(err).Str("topic", full).Msg("publish_request_failed")
			continue
		}
		metrics.ReqPublishedTotal.WithLabelValues(full).Inc()
	}
}

func (n *Node) publishResponse(ctx context.Context, resp collab.Response, topics []string) {
	if n.bus == nil {
		return
	}
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("marshal_collab_response_failed")
		return
	}
	for _, topic := range topics {
		full := topic + ".RES"
		if err := n.bus.Publish(ctx, full, resp.RequestID, body); err != nil {
			log.Warn().Err(err).Str("topic", full).Msg("publish_response_failed")
			continue
		}
		metrics.ResPublishedTotal.WithLabelValues(full).Inc()
	}
}
