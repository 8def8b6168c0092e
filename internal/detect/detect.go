// Package detect implements the two analyzer kinds from spec §4: the
// victim-centric Shallow (Attack) analyzer and the source-centric Deep
// (Attacker) analyzer. Both are plain functions (Shallow, DeepConfirm) that
// internal/node calls directly; Kind names the two analysis kinds, but there
// is no shared capability interface and nothing dispatches on Kind.
package detect

import (
	"github.com/wardnet/wardnet/internal/collab"
	"github.com/wardnet/wardnet/internal/counters"
)

// Kind tags which analysis produced a result.
type Kind int

const (
	KindAttack Kind = iota
	KindAttacker
)

// Thresholds bundles every tunable from spec §4.3/§4.4. Values come from
// pkg/config and are passed by value, never mutated after startup.
type Thresholds struct {
	VictimLo               float64
	VictimHi               float64
	VictimTimeMin          float64
	VictimTimePercentage   float64
	Src1                   float64
	Src2                   float64
	Src3                   float64
	Src3Min                float64
	TrafficProportionality float64
}

// ShallowResult is the outcome of running the Attack analysis against one
// victim's current and previous traffic totals.
type ShallowResult struct {
	Detected bool
	Case     collab.DetectionCase
	Strength float64
}

// Shallow implements spec §4.3 steps 2: Rule A (threshold) then Rule B
// (traffic increase), short-circuiting on the first hit.
func Shallow(n uint64, prevN uint64, th Thresholds) ShallowResult {
	nf := float64(n)
	if nf > th.VictimLo {
		return ShallowResult{Detected: true, Case: collab.Threshold, Strength: nf}
	}
	if prevN == 0 || nf < th.VictimTimeMin {
		return ShallowResult{}
	}
	ratio := nf / float64(prevN)
	if ratio > th.VictimTimePercentage {
		return ShallowResult{Detected: true, Case: collab.TrafficIncrease, Strength: ratio}
	}
	return ShallowResult{}
}

// Priority classifies a detected victim's traffic total into a base
// priority: high if it exceeds VictimHi, low otherwise. Topic fan-out
// (TOPICS_USE_ADDITIONAL) is applied by the caller (internal/node), which
// owns the configured topic lists.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

func ClassifyPriority(n uint64, th Thresholds) Priority {
	if float64(n) > th.VictimHi {
		return PriorityHigh
	}
	return PriorityLow
}

// DeepConfirm implements spec §4.4: given the live SrcCounter row for a
// candidate attacker, its frozen SrcCounterPrev row, and the live
// DstCounter row for that same candidate (read as DstCounter[atk], used to
// find F = traffic victim->atk), decide whether the candidate is confirmed
// against victim. Cases are evaluated in order and short-circuit on the
// first hit, exactly as specified.
func DeepConfirm(atkSrcRow *counters.Row, atkSrcPrevRow map[string]uint64, atkDstRow *counters.Row, victim string, th Thresholds) bool {
	s := maxU64(atkSrcRow.Get(victim), atkSrcPrevRow[victim])
	t := maxU64(atkSrcRow.Sum(), sumMap(atkSrcPrevRow))

	// Case 1 — direct heavy flow.
	if float64(s) > th.Src1 {
		return true
	}
	// Case 2 — fan-out heavy source.
	if float64(t) > th.Src2 {
		return true
	}
	// Case 3 — targeted minority.
	if float64(t) > th.Src3Min && t > 0 && float64(s)/float64(t) >= th.Src3 {
		return true
	}
	// Case 4 — asymmetric conversation.
	f := float64(atkDstRow.Get(victim))
	if f == 0 {
		f = 0.1
	}
	return float64(s)/f >= th.TrafficProportionality
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func sumMap(m map[string]uint64) uint64 {
	var total uint64
	for _, v := range m {
		total += v
	}
	return total
}
