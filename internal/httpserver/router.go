// Package httpserver builds the admin HTTP surface: ambient observability
// the node carries alongside its detection logic, in the teacher's chi +
// zerolog + promhttp style — never a detection feature in its own right.
package httpserver

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	Lm "github.com/wardnet/wardnet/internal/middleware"
	"github.com/wardnet/wardnet/internal/node"
	"github.com/wardnet/wardnet/internal/rl"
	"github.com/wardnet/wardnet/pkg/config"
	"github.com/wardnet/wardnet/pkg/metrics"
)

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

// RouterDeps bundles everything the admin surface reads or probes. Node
// exposes the live Oracle/HeavyHitters/Reputation/Ledger state; Limiter is
// optional — when nil, requests are never rate-limited.
type RouterDeps struct {
	Cfg     *config.Config
	Node    *node.Node
	Limiter *rl.Limiter
}

// NewRouter builds the chi router for the admin surface and a cleanup func
// for anything NewRouter itself started (currently nothing, kept symmetric
// with cmd/wardnet/main.go's other cleanup hooks).
func NewRouter(d RouterDeps) (http.Handler, func()) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(Lm.AccessLoggerFromEnv())
	if d.Limiter != nil {
		r.Use(adminRateLimit(d.Limiter))
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":   "wardnet",
			"status": "ok",
			"hint":   "see /health, /metrics, /managed, /heavy-hitters, /reputation, /pending",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if IsDraining() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "draining"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/managed", func(w http.ResponseWriter, req *http.Request) {
		ip := req.URL.Query().Get("ip")
		if ip == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing ip query param"})
			metrics.Requests.WithLabelValues("400", "/managed").Inc()
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ip": ip, "managed": d.Node.Oracle.Test(ip)})
		metrics.Requests.WithLabelValues("200", "/managed").Inc()
	})

	r.Get("/heavy-hitters", func(w http.ResponseWriter, req *http.Request) {
		ip := req.URL.Query().Get("ip")
		if ip == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing ip query param"})
			metrics.Requests.WithLabelValues("400", "/heavy-hitters").Inc()
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ip":          ip,
			"heavy_hitter": d.Node.HeavyHitters.Test(ip),
			"inserts":      d.Node.HeavyHitters.Inserts(),
		})
		metrics.Requests.WithLabelValues("200", "/heavy-hitters").Inc()
	})

	r.Get("/reputation", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Node.Reputation.Snapshot())
		metrics.Requests.WithLabelValues("200", "/reputation").Inc()
	})

	r.Get("/pending", func(w http.ResponseWriter, _ *http.Request) {
		pending, responses := d.Node.Ledger.Counts()
		writeJSON(w, http.StatusOK, map[string]any{
			"pending_requests":        pending,
			"response_ledger_entries": responses,
		})
		metrics.Requests.WithLabelValues("200", "/pending").Inc()
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found"})
	})

	return r, func() {}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Admin surface bucket parameters: a small, trusted fan-in, so a single
// generous bucket per caller is enough — there is no per-route policy the
// way the teacher's proxy had.
const (
	adminRPS   = 20
	adminBurst = 40
)

// adminRateLimit gates every admin request through the shared token bucket,
// keyed by remote IP (rl.AdminKey).
func adminRateLimit(l *rl.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			remoteIP := req.RemoteAddr
			if host, _, err := net.SplitHostPort(remoteIP); err == nil {
				remoteIP = host
			}
			allowed, _, retryAfter, _, err := l.Consume(req.Context(), rl.AdminKey(remoteIP), adminRPS, adminBurst, 1)
			if err == nil && !allowed {
				w.Header().Set("Retry-After", retryAfter.String())
				writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate_limited"})
				metrics.Requests.WithLabelValues("429", req.URL.Path).Inc()
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
