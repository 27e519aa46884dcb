package index

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	flatIndexFile    = "index.bin"
	flatMetadataFile = "metadata.json"

	flatMagic = uint32(0x464C4154) // "FLAT"
)

// Flat is an in-process exact-L2 index persisted as a binary vector blob
// plus a JSON metadata array. metadata[i] always describes the vector at
// position i; both grow append-only in the same order so the alignment
// never drifts.
type Flat struct {
	mu     sync.RWMutex
	dim    int
	vecs   [][]float32
	meta   []Metadata
	dir    string
	logger *slog.Logger
}

// Result is one nearest-neighbour hit annotated with its raw L2 distance.
type Result struct {
	Metadata
	Distance float64 `json:"distance"`
}

// NewFlat loads the index pair from dir if present, otherwise creates an
// empty index. dimension may be 0, in which case it is fixed by the first
// Upsert (the local provider discovers its dimension at runtime).
func NewFlat(dir string, dimension int, logger *slog.Logger) (*Flat, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	f := &Flat{dim: dimension, dir: dir, logger: logger}

	if _, err := os.Stat(f.indexPath()); err == nil {
		if err := f.load(); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("loaded flat index", "dir", dir, "vectors", len(f.vecs), "dimension", f.dim)
		}
	}

	return f, nil
}

func (f *Flat) indexPath() string    { return filepath.Join(f.dir, flatIndexFile) }
func (f *Flat) metadataPath() string { return filepath.Join(f.dir, flatMetadataFile) }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vecs)
}

// Dimension returns the index dimension (0 if not yet fixed).
func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

func (f *Flat) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dim == 0 {
		f.dim = len(vector)
	}
	if len(vector) != f.dim {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), f.dim)
	}

	// Vectors and metadata are appended in lockstep; the id only matters
	// for the remote variant's overwrite semantics.
	vec := make([]float32, len(vector))
	copy(vec, vector)
	f.vecs = append(f.vecs, vec)
	f.meta = append(f.meta, meta)

	if err := f.persist(); err != nil {
		// Roll back the in-memory append so memory and disk stay aligned.
		f.vecs = f.vecs[:len(f.vecs)-1]
		f.meta = f.meta[:len(f.meta)-1]
		return err
	}
	return nil
}

func (f *Flat) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	results, err := f.Search(ctx, vector, k)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		// Ranking parity with the remote variant: higher is better.
		matches[i] = Match{Metadata: r.Metadata, Score: 1 - r.Distance}
	}
	return matches, nil
}

// Search returns the k nearest records by exact L2 distance, nearest first.
func (f *Flat) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.dim != 0 && len(vector) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(vector), f.dim)
	}

	if k <= 0 {
		k = 5
	}

	results := make([]Result, 0, len(f.vecs))
	for i, v := range f.vecs {
		results = append(results, Result{
			Metadata: f.meta[i],
			Distance: l2Distance(vector, v),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// persist writes both files under the write lock. Each file is written to
// a temp name and renamed so a crash never leaves a torn file behind.
func (f *Flat) persist() error {
	if err := f.writeIndexFile(); err != nil {
		return err
	}
	return f.writeMetadataFile()
}

func (f *Flat) writeIndexFile() error {
	tmp := f.indexPath() + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write index blob: %w", err)
	}

	err = func() error {
		header := []uint32{flatMagic, uint32(f.dim), uint32(len(f.vecs))}
		for _, v := range header {
			if err := binary.Write(file, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		for _, vec := range f.vecs {
			if err := binary.Write(file, binary.LittleEndian, vec); err != nil {
				return err
			}
		}
		return file.Sync()
	}()
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write index blob: %w", err)
	}

	return os.Rename(tmp, f.indexPath())
}

func (f *Flat) writeMetadataFile() error {
	data, err := json.Marshal(f.meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmp := f.metadataPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	return os.Rename(tmp, f.metadataPath())
}

func (f *Flat) load() error {
	file, err := os.Open(f.indexPath())
	if err != nil {
		return fmt.Errorf("open index blob: %w", err)
	}
	defer file.Close()

	var magic, dim, count uint32
	for _, p := range []*uint32{&magic, &dim, &count} {
		if err := binary.Read(file, binary.LittleEndian, p); err != nil {
			return fmt.Errorf("read index header: %w", err)
		}
	}
	if magic != flatMagic {
		return fmt.Errorf("index blob has unknown format (magic %#x)", magic)
	}

	vecs := make([][]float32, count)
	for i := range vecs {
		vec := make([]float32, dim)
		if err := binary.Read(file, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		vecs[i] = vec
	}

	metaData, err := os.ReadFile(f.metadataPath())
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	var meta []Metadata
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return fmt.Errorf("parse metadata: %w", err)
	}

	if len(meta) != int(count) {
		return fmt.Errorf("index files disagree: %d vectors, %d metadata records", count, len(meta))
	}

	f.dim = int(dim)
	f.vecs = vecs
	f.meta = meta
	return nil
}
