package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/internal/node"
	"github.com/wardnet/wardnet/internal/mitigation"
	"github.com/wardnet/wardnet/pkg/config"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		ASName: "AS1", ASSize: 1,
		Thresholds:          config.Thresholds{VictimLo: 100, VictimHi: 1000, VictimTimePercentage: 2, VictimTimeMin: 50, Src1: 50, Src2: 200, Src3: 0.8, Src3Min: 20, TrafficProportionality: 10},
		Topics:              config.Topics{High: "TOPIC_HIGH", Low: "TOPIC_LOW"},
		ManagedIPsCapacity:  100,
		ManagedIPsFPRate:    0.01,
		HeavyHitterCapacity: 100,
		HeavyHitterFPRate:   0.01,
	}
	oracle := managedip.NewOracle(cfg.ManagedIPsCapacity, cfg.ManagedIPsFPRate)
	oracle.Add("1.2.3.4")
	n := node.New(cfg, oracle, nil, mitigation.NoopSink{})

	h, _ := NewRouter(RouterDeps{Cfg: cfg, Node: n})
	return h
}

func TestHealthReportsOKWhenNotDraining(t *testing.T) {
	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHealthReportsDrainingWhenFlagSet(t *testing.T) {
	EnableDrainFlag(true)
	SetDraining(true)
	defer func() { SetDraining(false); EnableDrainFlag(false) }()

	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while draining, got %d", w.Code)
	}
}

func TestManagedRequiresIPParam(t *testing.T) {
	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/managed", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without ip param, got %d", w.Code)
	}
}

func TestManagedReportsMembership(t *testing.T) {
	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/managed?ip=1.2.3.4", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPendingReportsLedgerCounts(t *testing.T) {
	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/pending", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	h := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
