package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// RemoteDimension is the embedding length produced by the hosted embedding
// model. It must match the remote vector index schema.
const RemoteDimension = 768

// Remote serves descriptions and embeddings from an OpenAI-compatible
// hosted gateway via a vision chat model and a text embedding model.
type Remote struct {
	client         *openai.Client
	visionModel    string
	embeddingModel string
	logger         *slog.Logger
}

type RemoteConfig struct {
	APIKey         string
	BaseURL        string
	VisionModel    string
	EmbeddingModel string
	Logger         *slog.Logger
}

func NewRemote(cfg RemoteConfig) *Remote {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Remote{
		client:         openai.NewClientWithConfig(clientCfg),
		visionModel:    cfg.VisionModel,
		embeddingModel: cfg.EmbeddingModel,
		logger:         cfg.Logger,
	}
}

func (r *Remote) Name() string {
	return "remote"
}

func (r *Remote) Dimension() int {
	return RemoteDimension
}

func (r *Remote) Describe(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", &Error{Backend: r.Name(), Op: "describe", Err: err}
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: describePrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	})
	if err != nil {
		return "", &Error{Backend: r.Name(), Op: "describe", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Backend: r.Name(), Op: "describe",
			Err: fmt.Errorf("no choices returned by %s", r.visionModel)}
	}

	return resp.Choices[0].Message.Content, nil
}

func (r *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(r.embeddingModel),
		Input: []string{text},
	})
	if err != nil {
		return nil, &Error{Backend: r.Name(), Op: "embed", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &Error{Backend: r.Name(), Op: "embed",
			Err: fmt.Errorf("no embeddings returned by %s", r.embeddingModel)}
	}

	return resp.Data[0].Embedding, nil
}
