// pairingd is the NexMeet random-pairing chat server.
// Usage: go run ./cmd/pairingd --config configs/pairingd.example.yaml
//
// Without --config the server starts with built-in defaults and journaling disabled.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nexmeet/nexmeet-chat/internal/config"
	"github.com/nexmeet/nexmeet-chat/internal/connection"
	"github.com/nexmeet/nexmeet-chat/internal/database"
	"github.com/nexmeet/nexmeet-chat/internal/match"
	"github.com/nexmeet/nexmeet-chat/internal/metrics"
	"github.com/nexmeet/nexmeet-chat/internal/router"
	"github.com/nexmeet/nexmeet-chat/internal/session"
	"github.com/nexmeet/nexmeet-chat/internal/sweeper"
	"github.com/nexmeet/nexmeet-chat/internal/version"
	"github.com/nexmeet/nexmeet-chat/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults when empty)")
	envPath := flag.String("env", ".env", "optional dotenv file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envPath, "error", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting pairingd",
		"version", version.Version,
		"commit", version.Get().Commit,
		"instance_id", cfg.Instance.ID,
		"config", *configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pairingd failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pairingd stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadAndValidate(path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// run wires every component, serves until ctx is cancelled, then shuts down
// in reverse order.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	registry := match.NewRegistry(match.Config{
		MaxWaiting: cfg.Matchmaking.MaxWaiting,
		Seed:       cfg.Matchmaking.Seed,
	}, nil, logger)

	connMgr := connection.NewManager(managerConfig(cfg), m, logger)

	svc := session.NewService(session.Config{
		RequirePairing: cfg.Matchmaking.RequirePairing,
	}, registry, connMgr, m, logger)

	rtr := router.NewRouter(router.RouterConfig{
		JournalEnabled:    cfg.Database.Enabled,
		JournalBufferSize: cfg.Writers.BufferSize,
		JournalMaxSize:    cfg.Writers.MaxBufferSize,
	}, connMgr.Messages(), svc, m, logger)

	var (
		pool    *pgxpool.Pool
		journal *writer.JournalWriter
	)
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		var err error
		pool, err = database.Connect(ctx, cfg.Database.DBConfig)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		journal = writer.NewJournalWriter(writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
		}, rtr.Journal(), pool, logger)
	}

	sw := sweeper.New(sweeper.Config{
		TTL:      cfg.Matchmaking.WaitingTTL,
		Interval: cfg.Matchmaking.SweepInterval,
	}, registry, svc, rtr, rtr, logger)

	if journal != nil {
		if err := journal.Start(ctx); err != nil {
			return err
		}
	}
	if err := rtr.Start(ctx); err != nil {
		return err
	}
	if err := sw.Start(ctx); err != nil {
		return err
	}

	deps := handlerDeps{
		instanceID:  cfg.Instance.ID,
		wsPath:      cfg.Server.WSPath,
		ws:          connMgr,
		metricsPath: cfg.Metrics.Path,
		stats: func() statsResponse {
			resp := statsResponse{
				Instance:    cfg.Instance.ID,
				Pairing:     svc.Stats(),
				Connections: connMgr.Stats(),
				Router:      rtr.Stats(),
				Sweeper:     sw.Stats(),
			}
			if journal != nil {
				js := journal.Stats()
				resp.Journal = &js
			}
			return resp
		},
		logger: logger,
	}
	if cfg.Metrics.Enabled {
		deps.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	if pool != nil {
		deps.ping = pool.Ping
	}

	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           newHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening",
			"addr", cfg.Server.ListenAddr,
			"ws_path", cfg.Server.WSPath,
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Hijacked websocket connections outlive Shutdown; the manager closes them.
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		if err := connMgr.Stop(shutdownCtx); err != nil {
			logger.Warn("connection manager stop", "error", err)
		}
		if err := sw.Stop(shutdownCtx); err != nil {
			logger.Warn("sweeper stop", "error", err)
		}
		if err := rtr.Stop(shutdownCtx); err != nil {
			logger.Warn("router stop", "error", err)
		}
		if journal != nil {
			if err := journal.Stop(shutdownCtx); err != nil {
				logger.Warn("journal writer stop", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

func managerConfig(cfg *config.Config) connection.ManagerConfig {
	mc := connection.DefaultManagerConfig()
	mc.MessageBufferSize = cfg.Connections.EventBufferSize
	mc.AllowedOrigins = cfg.Server.AllowedOrigins
	mc.Peer = connection.PeerConfig{
		SendBufferSize: cfg.Connections.SendBufferSize,
		MaxMessageSize: cfg.Connections.MaxMessageSize,
		WriteTimeout:   cfg.Connections.WriteTimeout,
		PingInterval:   cfg.Connections.PingInterval,
		PongTimeout:    cfg.Connections.PingTimeout,
		RateLimit:      cfg.Connections.RateLimit,
		RateBurst:      cfg.Connections.RateBurst,
	}
	return mc
}
