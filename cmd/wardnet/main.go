// Command wardnet runs one AS's collaborative DDoS detection node: packet
// ingestion, periodic shallow analysis, the bus-driven collaboration
// protocol, and the admin HTTP surface, all wired from environment
// configuration (pkg/config).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wardnet/wardnet/internal/bus"
	"github.com/wardnet/wardnet/internal/httpserver"
	"github.com/wardnet/wardnet/internal/managedip"
	"github.com/wardnet/wardnet/internal/mitigation"
	"github.com/wardnet/wardnet/internal/node"
	"github.com/wardnet/wardnet/internal/packet"
	"github.com/wardnet/wardnet/internal/rl"
	"github.com/wardnet/wardnet/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	setupLogging(cfg.LogLevel)

	log.Info().Str("as_name", cfg.ASName).Bool("use_hash", cfg.UseHash).Msg("starting wardnet")

	oracle, err := loadOracle(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load managed-ip oracle")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	busClient, sink, limiter := wireBackends(ctx, cfg)
	if busClient != nil {
		defer busClient.Close()
	}

	n := node.New(cfg, oracle, busClient, sink)

	httpserver.EnableDrainFlag(true)
	router, cleanupRouter := httpserver.NewRouter(httpserver.RouterDeps{Cfg: cfg, Node: n, Limiter: limiter})
	defer cleanupRouter()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("admin_http_listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("admin_http_failed")
		}
	}()

	src := buildSource(cfg)

	nodeDone := make(chan struct{})
	go func() {
		n.Run(ctx, src)
		close(nodeDone)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown_signal_received")
	httpserver.SetDraining(true)

	select {
	case <-nodeDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("node_shutdown_timed_out")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("admin_http_shutdown_error")
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func loadOracle(cfg *config.Config) (*managedip.Oracle, error) {
	transform := managedip.Transform(cfg.UseHash)
	if cfg.ManagedIPsFile == "" {
		return managedip.NewOracle(cfg.ManagedIPsCapacity, cfg.ManagedIPsFPRate), nil
	}
	f, err := os.Open(cfg.ManagedIPsFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return managedip.LoadOracle(f, cfg.ManagedIPsCapacity, cfg.ManagedIPsFPRate, transform)
}

// wireBackends connects to Kafka and Redis when configured, falling back to
// a noop mitigation sink and a nil bus client (no collaboration) otherwise
// — useful for a single-node local evaluation run.
func wireBackends(ctx context.Context, cfg *config.Config) (*bus.Client, mitigation.Sink, *rl.Limiter) {
	var (
		busClient *bus.Client
		sink      mitigation.Sink = mitigation.NoopSink{}
		limiter   *rl.Limiter
	)

	if cfg.KafkaHost != "" {
		brokers := cfg.KafkaBrokers()
		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Second)
		defer cancel()
		if err := bus.WaitForBroker(waitCtx, brokers); err != nil {
			log.Warn().Err(err).Msg("kafka_unreachable_running_without_bus")
		} else {
			busClient = bus.NewClient(brokers)
		}
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sink = mitigation.NewRedisSink(rdb, cfg.ASName, time.Duration(cfg.RequestTTLSeconds)*time.Second)
		limiter = rl.New(rdb)
	}

	return busClient, sink, limiter
}

// buildSource returns the packet Source the ingestor drains. Real packet
// capture is out of scope (SPEC_FULL.md's Non-goals); the synthetic
// Generator stands in for local evaluation, behind WARDNET_SYNTHETIC_TRAFFIC.
func buildSource(cfg *config.Config) packet.Source {
	if os.Getenv("WARDNET_SYNTHETIC_TRAFFIC") != "true" {
		return packet.ChanSource(make(chan packet.Record))
	}

	out := make(chan packet.Record, 64)
	gen := &packet.Generator{
		Hosts: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "198.51.100.7", "198.51.100.8"},
		Rate:  5 * time.Millisecond,
	}
	go gen.Run(context.Background(), out, 0)
	return packet.ChanSource(out)
}
