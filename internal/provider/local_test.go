package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.jpg")
	if err := os.WriteFile(path, []byte("not a real jpeg, provider does not decode"), 0644); err != nil {
		t.Fatalf("write test image: %v", err)
	}
	return path
}

func newLocalForServer(srv *httptest.Server) *Local {
	return NewLocal(LocalConfig{
		BaseURL:     srv.URL,
		VisionModel: "test-vision",
		EmbedModel:  "test-embed",
	})
}

func TestLocal_Describe_SingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}
		w.Write([]byte(`{"model":"test-vision","response":"a beach at sunset","done":true}`))
	}))
	defer srv.Close()

	got, err := newLocalForServer(srv).Describe(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got != "a beach at sunset" {
		t.Errorf("Describe() = %q, want %q", got, "a beach at sunset")
	}
}

func TestLocal_Describe_StreamedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"a beach "}
{"response":"at "}
not-json-noise
{"response":"sunset","done":true}
`))
	}))
	defer srv.Close()

	got, err := newLocalForServer(srv).Describe(context.Background(), writeTestImage(t))
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if got != "a beach at sunset" {
		t.Errorf("Describe() = %q, want %q", got, "a beach at sunset")
	}
}

func TestLocal_Describe_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer srv.Close()

	_, err := newLocalForServer(srv).Describe(context.Background(), writeTestImage(t))
	if err == nil {
		t.Fatal("Describe() should fail for unparseable output")
	}
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if perr.Backend != "local" {
		t.Errorf("Backend = %s, want local", perr.Backend)
	}
}

func TestLocal_Describe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newLocalForServer(srv).Describe(context.Background(), writeTestImage(t))
	if err == nil {
		t.Fatal("Describe() should fail on non-200 status")
	}

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
}

func TestLocal_Embed_DiscoversDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %s, want /api/embeddings", r.URL.Path)
		}
		w.Write([]byte(`{"embedding":[0.1, 0.2, 0.3, 0.4]}`))
	}))
	defer srv.Close()

	local := newLocalForServer(srv)

	if got := local.Dimension(); got != 0 {
		t.Errorf("Dimension() before first embed = %d, want 0", got)
	}

	vec, err := local.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("len(vec) = %d, want 4", len(vec))
	}
	if got := local.Dimension(); got != 4 {
		t.Errorf("Dimension() after embed = %d, want 4", got)
	}
}

func TestLocal_Embed_EmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[]}`))
	}))
	defer srv.Close()

	if _, err := newLocalForServer(srv).Embed(context.Background(), "query"); err == nil {
		t.Error("Embed() should fail for empty embedding")
	}
}

func TestLocal_CheckReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))

	local := newLocalForServer(srv)
	if err := local.CheckReachable(context.Background()); err != nil {
		t.Errorf("CheckReachable() error = %v", err)
	}

	srv.Close()
	if err := local.CheckReachable(context.Background()); err == nil {
		t.Error("CheckReachable() should fail once the server is down")
	}
}

func TestCollectGenerateText_EmptyResponseFields(t *testing.T) {
	// Lines that parse but carry empty response fields still count as parsed.
	got, err := collectGenerateText([]byte(`{"done":true}`))
	if err != nil {
		t.Fatalf("collectGenerateText() error = %v", err)
	}
	if got != "" {
		t.Errorf("collectGenerateText() = %q, want empty", got)
	}
}
