package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frangin2003/groq-video-analyzer/internal/catalog"
	"github.com/frangin2003/groq-video-analyzer/internal/clip"
	"github.com/frangin2003/groq-video-analyzer/internal/ingest"
	"github.com/frangin2003/groq-video-analyzer/internal/media"
	"github.com/frangin2003/groq-video-analyzer/internal/playback"
	"github.com/frangin2003/groq-video-analyzer/internal/progress"
	"github.com/frangin2003/groq-video-analyzer/internal/search"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Repository catalog.Repository
	Ingestor   *ingest.Orchestrator
	Searcher   *search.Service
	Extractor  *clip.Extractor
	Streamer   playback.VideoStreamer
	FFmpeg     media.FFmpeg
	Hub        *progress.Hub
	VideosDir  string
	FramesDir  string
	Backend    string
	Logger     *slog.Logger
	StartTime  time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Uploads, clip downloads and SSE streams hold the response
			// open indefinitely.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
