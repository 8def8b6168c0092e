// Package mitigation implements the Mitigation Sink interface from spec
// §6: a single Filter(ips) operation. The system never actuates mitigation
// itself — it only emits an ordered stream of IPs — so every Sink here is
// either a no-op or a bookkeeping/visibility layer, never a firewall client.
package mitigation

import (
	"github.com/rs/zerolog/log"

	"github.com/wardnet/wardnet/pkg/metrics"
)

// Sink receives IP lists to filter. Implementations must not block the
// caller for long; all call sites treat Filter as fire-and-forget.
type Sink interface {
	Filter(ips []string)
}

// NoopSink is grounded on the prototype's NoMitigation: it does nothing but
// count and log, which is sufficient when no Redis is configured.
type NoopSink struct{}

func (NoopSink) Filter(ips []string) {
	if len(ips) == 0 {
		return
	}
	metrics.MitigationFilterTotal.WithLabelValues("noop").Add(float64(len(ips)))
	log.Debug().Strs("ips", ips).Msg("mitigation_noop")
}
