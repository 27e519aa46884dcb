// Package index stores frame embeddings with their metadata and answers
// top-k similarity queries. Two variants exist: a hosted Milvus collection
// and a local flat file index.
package index

import (
	"context"
	"errors"
)

// Metadata is the frame record stored alongside each vector.
type Metadata struct {
	TaskID      string  `json:"task_id"`
	VideoPath   string  `json:"video_path"`
	FramePath   string  `json:"frame_path"`
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	Description string  `json:"description"`
}

// Match is one query result. Score is a similarity, higher is better. The
// remote variant returns cosine similarity; the local variant converts its
// L2 distance via 1 - distance. The two scales are only approximately
// comparable and are never mixed within one deployment.
type Match struct {
	Metadata
	Score float64 `json:"score"`
}

// Index is the vector store capability both variants implement.
type Index interface {
	// Upsert writes one vector and its metadata under id, overwriting any
	// previous entry with the same id.
	Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error

	// Query returns up to k matches ranked by score, highest first.
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// ErrDimensionMismatch is returned when a vector's length does not match
// the index dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")
