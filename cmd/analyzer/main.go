package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/frangin2003/groq-video-analyzer/internal/api"
	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/clip"
	"github.com/frangin2003/groq-video-analyzer/internal/config"
	"github.com/frangin2003/groq-video-analyzer/internal/db"
	"github.com/frangin2003/groq-video-analyzer/internal/index"
	"github.com/frangin2003/groq-video-analyzer/internal/ingest"
	"github.com/frangin2003/groq-video-analyzer/internal/logging"
	"github.com/frangin2003/groq-video-analyzer/internal/media"
	"github.com/frangin2003/groq-video-analyzer/internal/playback"
	"github.com/frangin2003/groq-video-analyzer/internal/progress"
	"github.com/frangin2003/groq-video-analyzer/internal/provider"
	"github.com/frangin2003/groq-video-analyzer/internal/sampler"
	"github.com/frangin2003/groq-video-analyzer/internal/search"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.VideosLibraryDir(), cfg.FramesDir(), cfg.ClipsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting video analyzer",
		"version", config.Version,
		"backend", cfg.Backend(),
		"data_dir", cfg.DataDir(),
	)

	if err := media.CheckBinaries(); err != nil {
		logger.Warn("ffmpeg tooling incomplete, ingestion and extraction will fail", "error", err)
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	prov, idx, err := buildBackend(cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := idx.(*index.Milvus); ok {
		defer c.Close()
	}

	ffmpeg := media.NewRealFFmpeg(logger)
	hub := progress.NewHub(logger)
	smp := sampler.New(ffmpeg, config.SampleStrideSeconds, config.FrameTargetWidth, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Repository: repo,
		Ingestor:   ingest.NewOrchestrator(repo, smp, prov, idx, hub, logger),
		Searcher:   search.NewService(repo, prov, idx, hub, logger),
		Extractor:  clip.NewExtractor(ffmpeg, cfg.ClipsDir(), logger),
		Streamer:   playback.NewStreamer(logger),
		FFmpeg:     ffmpeg,
		Hub:        hub,
		VideosDir:  cfg.VideosLibraryDir(),
		FramesDir:  cfg.FramesDir(),
		Backend:    cfg.Backend(),
		Logger:     logger,
		StartTime:  startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildBackend wires the provider and vector index pair for the configured
// backend. The two always come as a pair so embeddings land in an index of
// matching dimension.
func buildBackend(cfg config.Config, logger *slog.Logger) (provider.Provider, index.Index, error) {
	switch cfg.Backend() {
	case config.BackendRemote:
		prov := provider.NewRemote(provider.RemoteConfig{
			APIKey:         cfg.APIKey(),
			BaseURL:        cfg.APIBaseURL(),
			VisionModel:    cfg.VisionModel(),
			EmbeddingModel: cfg.EmbeddingModel(),
			Logger:         logger,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		idx, err := index.NewMilvus(ctx, index.MilvusConfig{
			Address:    cfg.MilvusAddr(),
			Username:   cfg.MilvusUsername(),
			Password:   cfg.MilvusPassword(),
			APIKey:     cfg.MilvusAPIKey(),
			Collection: cfg.MilvusCollection(),
			Dimension:  config.RemoteEmbeddingDim,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect vector index: %w", err)
		}
		return prov, idx, nil

	case config.BackendLocal:
		prov := provider.NewLocal(provider.LocalConfig{
			BaseURL:     cfg.OllamaBaseURL(),
			VisionModel: cfg.OllamaVisionModel(),
			EmbedModel:  cfg.OllamaEmbedModel(),
			Logger:      logger,
		})
		if err := prov.CheckReachable(context.Background()); err != nil {
			logger.Warn("ollama not reachable at startup, ingestion will fail until it is", "error", err)
		}

		// Dimension 0: fixed by the first embedding the model produces.
		idx, err := index.NewFlat(cfg.VectorsDir(), 0, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local index: %w", err)
		}
		return prov, idx, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend())
	}
}
