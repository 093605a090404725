package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docchat/internal/domain"
)

// Store implements the chunk store against a local Qdrant instance. It is the
// drop-in alternative to the in-memory brute-force store for corpora that
// outgrow a single snapshot file; Qdrant owns durability, so no snapshotting
// happens here.
type Store struct {
	client     *qdrant.Client
	collection string
}

type Config struct {
	Host       string
	Port       int
	Collection string
}

func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "docchat"
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: cfg.Host, Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Store{client: client, collection: cfg.Collection}, nil
}

func (s *Store) AddChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.New().String()),
			Vectors: qdrant.NewVectors(toFloat32(vectors[i])...),
			Payload: qdrant.NewValueMap(map[string]any{
				"text":   ch.Text,
				"source": ch.Source,
				"file":   ch.File,
			}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	return err
}

func (s *Store) Search(ctx context.Context, vector []float64, topK int) ([]domain.RetrievedDoc, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	if !exists || topK <= 0 {
		return nil, nil
	}
	limit := uint64(topK)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(toFloat32(vector)...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	results := make([]domain.RetrievedDoc, 0, len(resp))
	for _, r := range resp {
		doc := domain.RetrievedDoc{Similarity: float64(r.Score)}
		if v := r.Payload["text"]; v != nil {
			doc.Text = v.GetStringValue()
		}
		if v := r.Payload["source"]; v != nil {
			doc.Source = v.GetStringValue()
		}
		if v := r.Payload["file"]; v != nil {
			doc.File = v.GetStringValue()
		}
		results = append(results, doc)
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.collection})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) Clear(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.client.DeleteCollection(ctx, s.collection)
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dimension),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	}); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
