package httpserver

import "sync/atomic"

// draining backs GET /health's graceful-shutdown response: cmd/wardnet sets
// it once a SIGTERM starts the drain sequence, so a load balancer stops
// routing new admin traffic before the process actually exits.
var draining atomic.Bool
var drainingEnabled atomic.Bool

func EnableDrainFlag(on bool) { drainingEnabled.Store(on) }
func SetDraining(on bool) {
	if drainingEnabled.Load() {
		draining.Store(on)
	}
}
func IsDraining() bool { return drainingEnabled.Load() && draining.Load() }
