package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding/openai"
	"docchat/internal/llm/ollama"
	"docchat/internal/prompt"
	"docchat/internal/rerank"
	"docchat/internal/retrieve"
	"docchat/internal/service"
	"docchat/internal/store/memory"
	"docchat/internal/store/qdrant"
	"docchat/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	embedder := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err := embedder.Warmup(ctx); err != nil {
		logger.Fatal("embedding model unavailable", zap.Error(err))
	}

	var store domain.ChunkStore
	switch cfg.Store.Type {
	case "memory", "":
		store = memory.NewStore(cfg.Store.SnapshotPath, logger)
	case "qdrant":
		qcfg := qdrant.Config{}
		if cfg.Store.Qdrant != nil {
			qcfg = qdrant.Config{
				Host:       cfg.Store.Qdrant.Host,
				Port:       cfg.Store.Qdrant.Port,
				Collection: cfg.Store.Qdrant.Collection,
			}
		}
		qs, err := qdrant.NewStore(qcfg)
		if err != nil {
			logger.Fatal("qdrant store init failed", zap.Error(err))
		}
		defer qs.Close()
		store = qs
	default:
		logger.Fatal("unknown store type", zap.String("type", cfg.Store.Type))
	}

	generator := ollama.NewClient(ollama.Config{
		Host:    cfg.Generator.Host,
		Model:   cfg.Generator.Model,
		Timeout: time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	if err := generator.Ping(ctx); err != nil {
		logger.Fatal("generation service unavailable", zap.Error(err))
	}

	retriever := retrieve.New(embedder, store, cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity)
	reranker := rerank.New(cfg.Retrieval.RerankTopN)
	prompts := prompt.NewBuilder(cfg.Retrieval.HistoryWindow)
	svc := service.NewChatService(retriever, reranker, prompts, generator, store, logger)

	count, err := svc.DocumentCount(ctx)
	if err != nil {
		logger.Fatal("could not read store", zap.Error(err))
	}
	logger.Info("docchat ready", zap.Int("chunks", count), zap.String("model", cfg.Generator.Model))

	m := tui.New(svc, count)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		logger.Fatal("tui exited", zap.Error(err))
	}
}
