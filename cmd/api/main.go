// Package main implements the chat-with-pdf API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
	"github.com/tyagiharsh607/chat-with-pdf/engine/ingest"
	"github.com/tyagiharsh607/chat-with-pdf/engine/rag"
	"github.com/tyagiharsh607/chat-with-pdf/engine/semantic"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/auth"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/bucket"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/config"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/gemini"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/metrics"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/mid"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/natsutil"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/ollama"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/repo"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := repo.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	vectorStore, err := semantic.New(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbeddingModel, domain.EmbeddingDims)
	generator := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiRPS)
	blobs := bucket.New(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	alerter, closeNATS := operatorAlerter(cfg, logger)
	defer closeNATS()

	ingestSvc := ingest.New(ingest.Deps{
		Chats:    store,
		Embedder: embedder,
		Index:    vectorStore,
		Blobs:    blobs,
		Alerts:   alerter,
		Logger:   logger,
	})
	ragSvc := rag.New(rag.Deps{
		Embedder: embedder,
		Index:    vectorStore,
		Messages: store,
		Model:    generator,
		Logger:   logger,
	})

	reg := metrics.New()
	srv := newServer(store, tokens, ingestSvc, ragSvc, reg, logger)

	handler := mid.Chain(srv.routes(),
		mid.Recover(logger),
		mid.OTel("chat-with-pdf"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.MetricsPort > 0 {
		go serveMetrics(cfg.MetricsPort, reg, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// operatorAlerter connects to NATS when configured and returns an alert
// publisher. Without a NATS URL, alerts are logged only.
func operatorAlerter(cfg *config.Config, logger *slog.Logger) (ingest.Alerter, func()) {
	if cfg.NATSURL == "" {
		return nil, func() {}
	}
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("chat-with-pdf-api"))
	if err != nil {
		logger.Warn("nats connect failed, operator alerts disabled", "err", err)
		return nil, func() {}
	}
	alerter := ingest.AlertFunc(func(ctx context.Context, a ingest.Alert) {
		if err := natsutil.Publish(ctx, nc, cfg.AlertSubject, a); err != nil {
			logger.Error("alert publish failed", "reason", a.Reason, "err", err)
		}
	})
	return alerter, nc.Close
}

func serveMetrics(port int, reg *metrics.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", "err", err)
	}
}
