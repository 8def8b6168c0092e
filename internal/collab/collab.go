// Package collab implements the peer collaboration wire types and the
// request/response protocol state (PendingRequest, ResponseLedger): the
// REQ/RES exchange that lets one AS node ask another to confirm a
// heavy-hitter against a shared victim.
package collab

import (
	"github.com/google/uuid"
)

// DetectionCase is the shallow analyzer's classification of why a victim
// was flagged. Serialized as its string name, per spec §6.
type DetectionCase string

const (
	Threshold       DetectionCase = "THRESHOLD"
	TrafficIncrease DetectionCase = "TRAFFIC_INCREASE"
)

// Decision is a responder's verdict on a CollabRequest.
type Decision string

const (
	NotManaged Decision = "NOT_MANAGED"
	NotAck     Decision = "NOT_ACK"
	UnderThrs  Decision = "UNDER_THRS"
	Found      Decision = "FOUND"
)

// Request is the wire shape of a collaboration request (§3 CollabRequest).
type Request struct {
	RequestID              string        `json:"request_id"`
	RequestOriginator      string        `json:"request_originator"`
	PotentialVictim        string        `json:"potential_victim"`
	PotentialAttackerIPs   []string      `json:"potential_attacker_ips"`
	RequestsRelativeToSize float64       `json:"requests_relative_to_size"`
	RequestDetection       DetectionCase `json:"request_detection"`
}

// Response is the wire shape of a collaboration response (§3 CollabResponse).
type Response struct {
	RequestID               string   `json:"request_id"`
	RequestOriginator       string   `json:"request_originator"`
	ASName                  string   `json:"as_name"`
	Decision                Decision `json:"decision"`
	AckPotentialAttackerIPs []string `json:"ack_potential_attacker_ips"`
}

// NewRequest builds a Request with a fresh, globally-unique request_id.
func NewRequest(originator, victim string, ips []string, relativeToSize float64, kind DetectionCase) Request {
	return Request{
		RequestID:              uuid.NewString(),
		RequestOriginator:      originator,
		PotentialVictim:        victim,
		PotentialAttackerIPs:   ips,
		RequestsRelativeToSize: relativeToSize,
		RequestDetection:       kind,
	}
}

// Chunk partitions ips into chunks of size m (the "chunking law" of §8):
// for N items and chunk size m, exactly ceil(N/m) chunks are produced and
// their concatenation reproduces ips in its original order.
func Chunk(ips []string, m int) [][]string {
	if m <= 0 {
		m = len(ips)
		if m == 0 {
			return nil
		}
	}
	var chunks [][]string
	for i := 0; i < len(ips); i += m {
		end := i + m
		if end > len(ips) {
			end = len(ips)
		}
		chunks = append(chunks, ips[i:end])
	}
	return chunks
}

// ClassifyDecision implements §4.5 step 6's decision table from the
// partitioned outcome of running the deep analyzer over every candidate.
func ClassifyDecision(managedCount, ackCount int) Decision {
	if managedCount == 0 {
		return NotManaged
	}
	if ackCount > 0 {
		return Found
	}
	return UnderThrs
}
