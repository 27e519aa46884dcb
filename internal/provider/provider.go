// Package provider abstracts the description and embedding backends. Both
// the remote (hosted gateway) and local (Ollama) variants expose the same
// two capabilities: describe a frame image and embed a text.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Provider turns a frame into a description and a description into a
// fixed-dimension embedding vector. Implementations are safe for use from
// multiple ingestion tasks.
type Provider interface {
	// Name identifies the backend in logs and errors ("remote", "local").
	Name() string

	// Describe returns a natural-language description of the image at path.
	Describe(ctx context.Context, imagePath string) (string, error)

	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension is the embedding vector length. The local variant returns 0
	// until the first successful Embed call discovers it.
	Dimension() int
}

// ErrMalformedResponse indicates the backend replied with output that could
// not be parsed at all.
var ErrMalformedResponse = errors.New("malformed provider response")

// Error wraps any transport or status failure from a backend call.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// describePrompt is the fixed single-turn instruction used by both variants.
const describePrompt = `Describe this video frame for similarity search. Cover, in one flowing paragraph: a summary of the scene, the type of location, the time of day, the weather, the main subjects and what they are doing, visible objects, what covers the ground and sky, and the visual composition of the shot. Be specific and concrete.`
