package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding/openai"
	"docchat/internal/ingest"
	"docchat/internal/store/memory"
	"docchat/internal/store/qdrant"
	"docchat/internal/summarize"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: docchat-ingest [--config=config.yaml] file-or-dir [...]")
		os.Exit(1)
	}

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

	ch := chunker.NewWindowChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	pipeline := ingest.NewPipeline(ch, embedder, store, cfg.Embedder.BatchSize, logger)

	stats, err := pipeline.Run(ctx, inputs)
	if err != nil {
		logger.Fatal("ingestion failed", zap.Error(err))
	}

	total, err := store.Count(ctx)
	if err != nil {
		logger.Fatal("could not read store", zap.Error(err))
	}

	fmt.Printf("Ingested %d chunks from %d sections (%s)\n",
		stats.Chunks, stats.Sections, strings.Join(stats.Files, ", "))
	fmt.Printf("Store now holds %d chunks\n", total)

	printSummary(inputs)
}

// printSummary gives a quick extractive overview of what was just indexed.
// Best effort: summary failures never fail the run.
func printSummary(paths []string) {
	var sections []domain.Section
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		loaded, err := ingest.LoadFile(p)
		if err != nil {
			continue
		}
		sections = append(sections, loaded...)
	}
	if len(sections) == 0 {
		return
	}
	text, err := summarize.NewFrequencySummarizer().SummarizeSections(sections, 3)
	if err != nil || strings.TrimSpace(text) == "" {
		return
	}
	fmt.Printf("\nCorpus overview: %s\n", text)
}
