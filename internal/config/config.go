// Package config provides configuration management for the video analyzer.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// Default values
	DefaultPort     = 8080
	DefaultLogLevel = "info"
	DefaultDataDir  = ".video-analyzer"

	// Environment variable names
	EnvPort     = "VA_PORT"
	EnvLogLevel = "VA_LOG_LEVEL"
	EnvDataDir  = "VA_DATA_DIR"
	EnvBackend  = "VA_BACKEND"

	// Remote backend (OpenAI-compatible gateway + Milvus)
	EnvAPIKey         = "VA_API_KEY"
	EnvAPIBaseURL     = "VA_API_BASE_URL"
	EnvVisionModel    = "VA_VISION_MODEL"
	EnvEmbeddingModel = "VA_EMBEDDING_MODEL"
	EnvMilvusAddr     = "VA_MILVUS_ADDR"
	EnvMilvusAPIKey   = "VA_MILVUS_API_KEY"
	EnvMilvusUser     = "VA_MILVUS_USERNAME"
	EnvMilvusPassword = "VA_MILVUS_PASSWORD"
	EnvMilvusColl     = "VA_MILVUS_COLLECTION"

	// Local backend (Ollama + flat file index)
	EnvOllamaBaseURL     = "VA_OLLAMA_BASE_URL"
	EnvOllamaVisionModel = "VA_OLLAMA_VISION_MODEL"
	EnvOllamaEmbedModel  = "VA_OLLAMA_EMBED_MODEL"

	// Backend modes
	BackendRemote = "remote"
	BackendLocal  = "local"

	// Database filename
	DBFilename = "analyzer.db"

	// Remote embedding dimension. Must match the Milvus collection schema.
	RemoteEmbeddingDim = 768

	// Sampling cadence and frame sizing
	SampleStrideSeconds = 2
	FrameTargetWidth    = 1120

	DefaultVisionModel     = "llama-3.2-90b-vision-preview"
	DefaultEmbeddingModel  = "nomic-embed-text-v1.5"
	DefaultAPIBaseURL      = "https://api.groq.com/openai/v1"
	DefaultMilvusAddr      = "localhost:19530"
	DefaultMilvusColl      = "video_frames"
	DefaultOllamaBaseURL   = "http://localhost:11434"
	DefaultOllamaVision    = "llama3.2-vision:11b"
	DefaultOllamaEmbedding = "mxbai-embed-large"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	VideosLibraryDir() string
	FramesDir() string
	ClipsDir() string
	VectorsDir() string

	Backend() string
	APIKey() string
	APIBaseURL() string
	VisionModel() string
	EmbeddingModel() string
	MilvusAddr() string
	MilvusAPIKey() string
	MilvusUsername() string
	MilvusPassword() string
	MilvusCollection() string
	OllamaBaseURL() string
	OllamaVisionModel() string
	OllamaEmbedModel() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	backend  string

	apiKey         string
	apiBaseURL     string
	visionModel    string
	embeddingModel string

	milvusAddr     string
	milvusAPIKey   string
	milvusUser     string
	milvusPassword string
	milvusColl     string

	ollamaBaseURL string
	ollamaVision  string
	ollamaEmbed   string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		backend:        BackendRemote,
		apiBaseURL:     DefaultAPIBaseURL,
		visionModel:    DefaultVisionModel,
		embeddingModel: DefaultEmbeddingModel,
		milvusAddr:     DefaultMilvusAddr,
		milvusColl:     DefaultMilvusColl,
		ollamaBaseURL:  DefaultOllamaBaseURL,
		ollamaVision:   DefaultOllamaVision,
		ollamaEmbed:    DefaultOllamaEmbedding,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if b := os.Getenv(EnvBackend); b != "" {
		if b != BackendRemote && b != BackendLocal {
			return nil, fmt.Errorf("invalid %s: must be %q or %q", EnvBackend, BackendRemote, BackendLocal)
		}
		cfg.backend = b
	}

	cfg.apiKey = os.Getenv(EnvAPIKey)
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		cfg.apiBaseURL = v
	}
	if v := os.Getenv(EnvVisionModel); v != "" {
		cfg.visionModel = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.embeddingModel = v
	}

	if v := os.Getenv(EnvMilvusAddr); v != "" {
		cfg.milvusAddr = v
	}
	cfg.milvusAPIKey = os.Getenv(EnvMilvusAPIKey)
	cfg.milvusUser = os.Getenv(EnvMilvusUser)
	cfg.milvusPassword = os.Getenv(EnvMilvusPassword)
	if v := os.Getenv(EnvMilvusColl); v != "" {
		cfg.milvusColl = v
	}

	if v := os.Getenv(EnvOllamaBaseURL); v != "" {
		cfg.ollamaBaseURL = v
	}
	if v := os.Getenv(EnvOllamaVisionModel); v != "" {
		cfg.ollamaVision = v
	}
	if v := os.Getenv(EnvOllamaEmbedModel); v != "" {
		cfg.ollamaEmbed = v
	}

	if cfg.backend == BackendRemote && cfg.apiKey == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvAPIKey, EnvBackend, BackendRemote)
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// VideosLibraryDir returns the directory where uploaded videos are stored
func (c *EnvConfig) VideosLibraryDir() string {
	return filepath.Join(c.dataDir, "videos")
}

// FramesDir returns the directory where sampled frames are stored
func (c *EnvConfig) FramesDir() string {
	return filepath.Join(c.dataDir, "frames")
}

// ClipsDir returns the directory for transient extracted clips
func (c *EnvConfig) ClipsDir() string {
	return filepath.Join(c.dataDir, "clips")
}

// VectorsDir returns the directory holding the local flat index files
func (c *EnvConfig) VectorsDir() string {
	return filepath.Join(c.dataDir, "vectors")
}

// Backend returns the selected backend mode ("remote" or "local")
func (c *EnvConfig) Backend() string {
	return c.backend
}

func (c *EnvConfig) APIKey() string         { return c.apiKey }
func (c *EnvConfig) APIBaseURL() string     { return c.apiBaseURL }
func (c *EnvConfig) VisionModel() string    { return c.visionModel }
func (c *EnvConfig) EmbeddingModel() string { return c.embeddingModel }

func (c *EnvConfig) MilvusAddr() string       { return c.milvusAddr }
func (c *EnvConfig) MilvusAPIKey() string     { return c.milvusAPIKey }
func (c *EnvConfig) MilvusUsername() string   { return c.milvusUser }
func (c *EnvConfig) MilvusPassword() string   { return c.milvusPassword }
func (c *EnvConfig) MilvusCollection() string { return c.milvusColl }

func (c *EnvConfig) OllamaBaseURL() string     { return c.ollamaBaseURL }
func (c *EnvConfig) OllamaVisionModel() string { return c.ollamaVision }
func (c *EnvConfig) OllamaEmbedModel() string  { return c.ollamaEmbed }

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
