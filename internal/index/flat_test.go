package index

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFlatUpsertAndQuery(t *testing.T) {
	idx, err := NewFlat(t.TempDir(), 3, testLogger())
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}

	ctx := context.Background()
	records := []struct {
		id  string
		vec []float32
	}{
		{"a_0", []float32{1, 0, 0}},
		{"a_1", []float32{0, 1, 0}},
		{"a_2", []float32{0.9, 0.1, 0}},
	}
	for i, r := range records {
		meta := Metadata{TaskID: "a", FrameNumber: i, Description: r.id}
		if err := idx.Upsert(ctx, r.id, r.vec, meta); err != nil {
			t.Fatalf("Upsert %s failed: %v", r.id, err)
		}
	}

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Description != "a_0" {
		t.Errorf("expected nearest match a_0, got %s", matches[0].Description)
	}
	if matches[1].Description != "a_2" {
		t.Errorf("expected second match a_2, got %s", matches[1].Description)
	}
	// Exact hit has zero distance so the score is exactly 1.
	if matches[0].Score != 1 {
		t.Errorf("expected score 1 for exact hit, got %f", matches[0].Score)
	}
	if matches[1].Score >= matches[0].Score {
		t.Errorf("scores not descending: %f then %f", matches[0].Score, matches[1].Score)
	}
}

func TestFlatPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewFlat(dir, 2, testLogger())
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	vecs := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	for i, v := range vecs {
		meta := Metadata{TaskID: "t", FrameNumber: i, Timestamp: float64(i * 2)}
		if err := idx.Upsert(ctx, "t_"+string(rune('0'+i)), v, meta); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}

	for _, name := range []string{flatIndexFile, flatMetadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}

	reloaded, err := NewFlat(dir, 0, testLogger())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Len() != 3 {
		t.Fatalf("expected 3 vectors after reload, got %d", reloaded.Len())
	}
	if reloaded.Dimension() != 2 {
		t.Fatalf("expected dimension 2 after reload, got %d", reloaded.Dimension())
	}

	// Insertion order survives the reload: metadata at position i still
	// describes vector i.
	results, err := reloaded.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].FrameNumber != 1 {
		t.Errorf("expected frame 1 nearest to (0,1), got %d", results[0].FrameNumber)
	}
	if results[0].Distance != 0 {
		t.Errorf("expected zero distance for exact hit, got %f", results[0].Distance)
	}
}

func TestFlatDimensionMismatch(t *testing.T) {
	idx, err := NewFlat(t.TempDir(), 3, testLogger())
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	ctx := context.Background()

	if err := idx.Upsert(ctx, "x", []float32{1, 2}, Metadata{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on upsert, got %v", err)
	}
	if err := idx.Upsert(ctx, "x", []float32{1, 2, 3}, Metadata{}); err != nil {
		t.Fatalf("valid upsert failed: %v", err)
	}
	if _, err := idx.Query(ctx, []float32{1, 2, 3, 4}, 5); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on query, got %v", err)
	}
}

func TestFlatDimensionFixedByFirstUpsert(t *testing.T) {
	idx, err := NewFlat(t.TempDir(), 0, testLogger())
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	ctx := context.Background()

	if idx.Dimension() != 0 {
		t.Fatalf("expected dimension 0 before first upsert, got %d", idx.Dimension())
	}
	if err := idx.Upsert(ctx, "a", []float32{1, 2, 3, 4}, Metadata{}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if idx.Dimension() != 4 {
		t.Errorf("expected dimension 4 after first upsert, got %d", idx.Dimension())
	}
	if err := idx.Upsert(ctx, "b", []float32{1, 2}, Metadata{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for second upsert, got %v", err)
	}
}

func TestFlatCorruptMetadataRejected(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := NewFlat(dir, 2, testLogger())
	if err != nil {
		t.Fatalf("NewFlat failed: %v", err)
	}
	if err := idx.Upsert(ctx, "a", []float32{1, 0}, Metadata{}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, flatMetadataFile), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFlat(dir, 0, testLogger()); err == nil {
		t.Error("expected error for metadata out of step with vectors")
	}
}

func TestL2Distance(t *testing.T) {
	got := l2Distance([]float32{0, 0}, []float32{3, 4})
	if math.Abs(got-5) > 1e-9 {
		t.Errorf("expected distance 5, got %f", got)
	}
}
