package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/polymirror/copytrader/config"
	"github.com/polymirror/copytrader/internal/adapters/audit"
	"github.com/polymirror/copytrader/internal/adapters/export"
	"github.com/polymirror/copytrader/internal/adapters/notify"
	"github.com/polymirror/copytrader/internal/adapters/polymarket"
	"github.com/polymirror/copytrader/internal/adapters/wsworker"
	"github.com/polymirror/copytrader/internal/distributor"
	"github.com/polymirror/copytrader/internal/executor"
	"github.com/polymirror/copytrader/internal/monitor"
	"github.com/polymirror/copytrader/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single monitor cycle and exit")
	paperFlag := flag.Bool("paper", false, "force paper trading regardless of config")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	auditPath := flag.String("audit-db", "", "optional sqlite path for the execution audit log")
	exportPath := flag.String("export-csv", "", "optional CSV path for the trade exporter")
	remoteListen := flag.String("remote-listen", "", "address to accept remote worker connections over WebSocket (optional)")
	remoteWorker := flag.String("remote-worker", "", "dial this distributor's --remote-listen address and run as a remote worker instead of the local pipeline")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	setupLogger(cfg.Log)

	if *paperFlag {
		cfg.Pipeline.PaperTradingEnabled = true
	}

	slog.Info("copytrader starting",
		"config", *configPath,
		"addresses", len(cfg.Pipeline.UserAddresses),
		"fetch_interval", cfg.FetchInterval(),
		"aggregation", cfg.Pipeline.AggregationEnabled,
		"paper", cfg.Pipeline.PaperTradingEnabled,
		"once", *once,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := polymarket.NewClient(cfg.API.ActivityBase, cfg.API.PositionsBase, cfg.Pipeline.RetryLimit)
	feed := polymarket.NewActivityFeed(client)
	positions := polymarket.NewPositionsFeed(client)
	submitter := polymarket.NewSubmitter(client)

	var exporter ports.TradeExporter
	if *exportPath != "" {
		e, err := export.NewCSVExporter(*exportPath)
		if err != nil {
			slog.Error("failed to open trade exporter", "err", err)
			os.Exit(1)
		}
		defer e.Close()
		exporter = e
	}

	var auditStore ports.AuditStore = ports.NoopAuditStore{}
	if *auditPath != "" {
		store, err := audit.NewSQLiteStore(*auditPath)
		if err != nil {
			slog.Error("failed to open audit store", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		auditStore = store
	}

	workerCfg := executor.Config{
		AggregationEnabled: cfg.Pipeline.AggregationEnabled,
		AggregationWindow:  cfg.AggregationWindow(),
		PaperTrading:       cfg.Pipeline.PaperTradingEnabled,
		PaperBalance:       cfg.Pipeline.PaperTradingBalanceUSD,
		ProxyWallet:        cfg.Pipeline.ProxyWallet,
	}

	if *remoteWorker != "" {
		runRemoteWorker(ctx, *remoteWorker, workerCfg, cfg.Workers.QueueDepth, positions, submitter, exporter, auditStore)
		return
	}

	registry := distributor.NewRegistry()
	dist := distributor.New(registry)

	if *remoteListen != "" {
		srv := startRemoteListener(ctx, *remoteListen, dist)
		defer srv.Close()
	}

	workers := make([]*executor.Worker, 0, cfg.Workers.Count)
	for i := 0; i < cfg.Workers.Count; i++ {
		w := executor.New(strconv.Itoa(i), cfg.Workers.QueueDepth, workerCfg, positions, positions, submitter, exporter, auditStore)
		workers = append(workers, w)
		dist.Register(w.Sink())
	}

	mon := monitor.New(monitor.Config{
		Addresses:        cfg.Pipeline.UserAddresses,
		FetchInterval:    cfg.FetchInterval(),
		TooOldSeconds:    cfg.Pipeline.TooOldSeconds,
		DedupTTL:         cfg.DedupTTL(),
		PositionsRefresh: 60 * time.Second,
	}, feed, positions, dist)

	dashboard := notify.NewConsole()
	go runDashboard(ctx, dashboard, mon, dist, workers, cfg.Pipeline.PaperTradingEnabled)

	for _, w := range workers {
		go w.Run(ctx)
	}

	if *once {
		mon.RunCycle(ctx)
		slog.Info("copytrader: single cycle complete")
		shutdown(dist)
		return
	}

	if err := mon.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("monitor exited with error", "err", err)
	}

	shutdown(dist)
	slog.Info("copytrader stopped cleanly")
}

// shutdown broadcasts shutdown to every worker and waits a bounded grace
// period for in-flight activities to finish (spec §5 cancellation: no
// hard-kill path in the core).
func shutdown(dist *distributor.Distributor) {
	dist.BroadcastShutdown()
	time.Sleep(2 * time.Second)
}

// startRemoteListener accepts remote worker connections over WebSocket
// (spec §4.2's worker registry, extended to out-of-process workers) and
// registers/unregisters each with dist as it connects and disconnects.
// The returned server is closed when ctx is cancelled or by the caller.
func startRemoteListener(ctx context.Context, addr string, dist *distributor.Distributor) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/worker", wsworker.Handler(
		func(sink *wsworker.Sink) {
			slog.Info("copytrader: remote worker connected", "id", sink.ID())
			dist.Register(sink)
		},
		func(id string) {
			slog.Info("copytrader: remote worker disconnected", "id", id)
			dist.Unregister(id)
		},
	))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		slog.Info("copytrader: remote worker listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("remote worker listener failed", "err", err)
		}
	}()
	return srv
}

// runRemoteWorker dials a distributor's --remote-listen address and runs
// a single local executor.Worker fed entirely by messages relayed over
// that WebSocket connection (internal/adapters/wsworker), as an
// out-of-process alternative to the in-process workers main() otherwise
// starts. It blocks until the connection drops or ctx is cancelled.
func runRemoteWorker(ctx context.Context, url string, cfg executor.Config, queueDepth int, positions ports.PositionsProvider, submitter ports.OrderSubmitter, exporter ports.TradeExporter, auditStore ports.AuditStore) {
	w := executor.New("", queueDepth, cfg, positions, positions, submitter, exporter, auditStore)
	go w.Run(ctx)

	slog.Info("copytrader: running as remote worker", "dial", url, "worker_id", w.ID())
	if err := wsworker.Dial(ctx, url, w.Sink()); err != nil && ctx.Err() == nil {
		slog.Error("remote worker dial failed", "err", err)
	}
}

func runDashboard(ctx context.Context, dashboard *notify.Console, mon *monitor.Monitor, dist *distributor.Distributor, workers []*executor.Worker, paper bool) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			received := dist.Received()
			stats := make([]notify.WorkerStat, 0, len(workers))
			for _, w := range workers {
				stats = append(stats, notify.WorkerStat{ID: w.ID(), Received: received[w.ID()]})
			}
			dashboard.Render(notify.Snapshot{
				DedupCacheSize: mon.DedupCacheSize(),
				BacklogLen:     dist.BacklogLen(),
				Workers:        stats,
				PaperTrading:   paper,
			})
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
