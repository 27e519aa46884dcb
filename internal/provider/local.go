package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Local serves descriptions and embeddings from an Ollama server over its
// local HTTP API. The embedding dimension is discovered from the first
// successful Embed call.
type Local struct {
	baseURL     string
	visionModel string
	embedModel  string
	httpClient  *http.Client
	logger      *slog.Logger

	mu        sync.Mutex
	dimension int
}

type LocalConfig struct {
	BaseURL     string
	VisionModel string
	EmbedModel  string
	Logger      *slog.Logger
}

func NewLocal(cfg LocalConfig) *Local {
	return &Local{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		visionModel: cfg.VisionModel,
		embedModel:  cfg.EmbedModel,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: cfg.Logger,
	}
}

func (l *Local) Name() string {
	return "local"
}

func (l *Local) Dimension() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dimension
}

// CheckReachable probes the server before starting work so a whole-task
// failure can be reported up front instead of per frame.
func (l *Local) CheckReachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", nil)
	if err != nil {
		return &Error{Backend: l.Name(), Op: "check", Err: err}
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return &Error{Backend: l.Name(), Op: "check", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{Backend: l.Name(), Op: "check",
			Err: fmt.Errorf("HTTP %d from %s", resp.StatusCode, l.baseURL)}
	}
	return nil
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (l *Local) Describe(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", &Error{Backend: l.Name(), Op: "describe", Err: err}
	}

	body, err := l.post(ctx, "/api/generate", generateRequest{
		Model:  l.visionModel,
		Prompt: describePrompt,
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
	}, "describe")
	if err != nil {
		return "", err
	}

	text, err := collectGenerateText(body)
	if err != nil {
		return "", &Error{Backend: l.Name(), Op: "describe", Err: err}
	}
	return text, nil
}

// collectGenerateText accepts either a single JSON object or newline-
// delimited JSON fragments, concatenating the response field of every
// well-formed line. It fails only when no line parses.
func collectGenerateText(body []byte) (string, error) {
	var b strings.Builder
	parsed := 0

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var gr generateResponse
		if err := json.Unmarshal(line, &gr); err != nil {
			continue
		}
		parsed++
		b.WriteString(gr.Response)
	}

	if parsed == 0 {
		return "", fmt.Errorf("%w: no parseable line in %d bytes", ErrMalformedResponse, len(body))
	}
	return b.String(), nil
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := l.post(ctx, "/api/embeddings", embeddingRequest{
		Model:  l.embedModel,
		Prompt: text,
	}, "embed")
	if err != nil {
		return nil, err
	}

	var er embeddingResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, &Error{Backend: l.Name(), Op: "embed",
			Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if len(er.Embedding) == 0 {
		return nil, &Error{Backend: l.Name(), Op: "embed",
			Err: fmt.Errorf("empty embedding from %s", l.embedModel)}
	}

	vec := make([]float32, len(er.Embedding))
	for i, v := range er.Embedding {
		vec[i] = float32(v)
	}

	l.mu.Lock()
	if l.dimension == 0 {
		l.dimension = len(vec)
		if l.logger != nil {
			l.logger.Info("discovered embedding dimension",
				"model", l.embedModel, "dimension", l.dimension)
		}
	}
	l.mu.Unlock()

	return vec, nil
}

func (l *Local) post(ctx context.Context, path string, payload any, op string) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Backend: l.Name(), Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Backend: l.Name(), Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Backend: l.Name(), Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Backend: l.Name(), Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Backend: l.Name(), Op: op,
			Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, tail(string(body), 256))}
	}
	return body, nil
}

func tail(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
