// Command ingest runs a local file through the ingestion pipeline into an
// existing chat, bypassing the HTTP API. Operator tooling for backfills and
// for reprocessing documents after an index wipe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/tyagiharsh607/chat-with-pdf/engine/domain"
	"github.com/tyagiharsh607/chat-with-pdf/engine/ingest"
	"github.com/tyagiharsh607/chat-with-pdf/engine/semantic"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/bucket"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/config"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/ollama"
	"github.com/tyagiharsh607/chat-with-pdf/pkg/repo"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		chatID     = flag.String("chat", "", "chat id to ingest into")
		filePath   = flag.String("file", "", "local file to ingest")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	_ = godotenv.Load()

	if *chatID == "" || *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -chat <chat-id> -file <path> [-config config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *chatID, *filePath); err != nil {
		log.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, chatID, filePath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

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

	// The CLI acts as the chat's owner, so the pipeline's ownership gate
	// passes for any existing chat.
	owner, err := store.OwnerOf(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat %s: %w", chatID, err)
	}

	svc := ingest.New(ingest.Deps{
		Chats:    store,
		Embedder: ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbeddingModel, domain.EmbeddingDims),
		Index:    vectorStore,
		Blobs:    bucket.New(cfg.StorageURL, cfg.StorageBucket, cfg.StorageServiceKey),
		Logger:   log,
	})

	name := filepath.Base(filePath)
	receipt, err := svc.Ingest(ctx, ingest.Request{
		Data:        data,
		FileName:    name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		ChatID:      chatID,
		OwnerID:     owner,
	})
	if err != nil {
		return err
	}

	log.Info("ingest complete", "chat_id", chatID, "file_url", receipt.FileURL, "chunks", receipt.ChunkCount)
	return nil
}
