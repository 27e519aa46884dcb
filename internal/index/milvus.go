package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusConfig carries the connection and collection settings for the
// remote index.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	APIKey     string
	Collection string
	Dimension  int
}

// Milvus stores frame vectors in a Milvus collection with an HNSW cosine
// index. Scores returned by Query are cosine similarities.
type Milvus struct {
	mc     client.Client
	coll   string
	dim    int
	logger *slog.Logger
}

var searchOutputFields = []string{"task_id", "video_path", "frame_path", "description", "frame_number", "timestamp"}

// NewMilvus connects to Milvus and ensures the collection, vector index
// and load state exist before returning.
func NewMilvus(ctx context.Context, cfg MilvusConfig, logger *slog.Logger) (*Milvus, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}

	m := &Milvus{mc: mc, coll: cfg.Collection, dim: cfg.Dimension, logger: logger}
	if err := m.ensureSchemaAndIndex(ctx); err != nil {
		mc.Close()
		return nil, err
	}
	return m, nil
}

func (m *Milvus) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := m.mc.HasCollection(ctx, m.coll)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !has {
		// Explicit primary key so re-ingesting a video overwrites its
		// frames instead of duplicating them.
		schema := entity.NewSchema().WithName(m.coll)
		schema.WithField(entity.NewField().WithName("id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256))
		schema.WithField(entity.NewField().WithName("task_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("video_path").WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024))
		schema.WithField(entity.NewField().WithName("frame_path").WithDataType(entity.FieldTypeVarChar).WithMaxLength(1024))
		schema.WithField(entity.NewField().WithName("description").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("frame_number").WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName("timestamp").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(m.dim)))

		if err := m.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := m.mc.CreateIndex(ctx, m.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	if err := m.mc.LoadCollection(ctx, m.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (m *Milvus) Upsert(ctx context.Context, id string, vector []float32, meta Metadata) error {
	if len(vector) != m.dim {
		return fmt.Errorf("%w: got %d, collection has %d", ErrDimensionMismatch, len(vector), m.dim)
	}

	_, err := m.mc.Upsert(ctx, m.coll, "",
		entity.NewColumnVarChar("id", []string{id}),
		entity.NewColumnVarChar("task_id", []string{meta.TaskID}),
		entity.NewColumnVarChar("video_path", []string{meta.VideoPath}),
		entity.NewColumnVarChar("frame_path", []string{meta.FramePath}),
		entity.NewColumnVarChar("description", []string{meta.Description}),
		entity.NewColumnInt64("frame_number", []int64{int64(meta.FrameNumber)}),
		entity.NewColumnDouble("timestamp", []float64{meta.Timestamp}),
		entity.NewColumnFloatVector("vector", m.dim, [][]float32{vector}),
	)
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

func (m *Milvus) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, collection has %d", ErrDimensionMismatch, len(vector), m.dim)
	}
	if k <= 0 {
		k = 5
	}

	sp, _ := entity.NewIndexHNSWSearchParam(74)
	res, err := m.mc.Search(ctx, m.coll, []string{}, "", searchOutputFields,
		[]entity.Vector{entity.FloatVector(vector)}, "vector", entity.COSINE, k, sp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var matches []Match
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			match := Match{Score: float64(r.Scores[i])}
			match.TaskID = varcharAt(cols["task_id"], i)
			match.VideoPath = varcharAt(cols["video_path"], i)
			match.FramePath = varcharAt(cols["frame_path"], i)
			match.Description = varcharAt(cols["description"], i)
			if c, ok := cols["frame_number"].(*entity.ColumnInt64); ok {
				data := c.Data()
				if i < len(data) {
					match.FrameNumber = int(data[i])
				}
			}
			if c, ok := cols["timestamp"].(*entity.ColumnDouble); ok {
				data := c.Data()
				if i < len(data) {
					match.Timestamp = data[i]
				}
			}
			matches = append(matches, match)
		}
	}
	return matches, nil
}

func varcharAt(col entity.Column, i int) string {
	c, ok := col.(*entity.ColumnVarChar)
	if !ok {
		return ""
	}
	data := c.Data()
	if i >= len(data) {
		return ""
	}
	return data[i]
}

// Close releases the Milvus connection.
func (m *Milvus) Close() error {
	return m.mc.Close()
}
