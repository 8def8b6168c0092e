// Package packet defines the wire-shape of observed traffic and the
// producer interface the ingestor drains.
package packet

import "time"

// Transport identifies the IP transport of an observed packet.
type Transport string

const (
	TCP Transport = "TCP"
	UDP Transport = "UDP"
)

// Record is an immutable observation of one packet header. Src/Dst are
// opaque identifiers: raw IP text, or fixed-width lowercase hex SHA3-256
// when hashing is enabled upstream (see internal/managedip).
type Record struct {
	Src       string
	Dst       string
	SrcPort   int
	DstPort   int
	Timestamp time.Time
	Transport Transport
}

// Source is the external producer of packet records. Implementations may
// be backed by live capture, a replay file, or (for tests and local
// evaluation) the synthetic Generator below. The core never blocks a
// Source; it is the producer's job to keep the channel drained or accept
// that the ingestor's receive loop is the only consumer.
type Source interface {
	Packets() <-chan Record
}

// ChanSource adapts a bare channel to the Source interface.
type ChanSource chan Record

func (c ChanSource) Packets() <-chan Record { return c }
