// Package vectorstore wraps a qdrant collection for the Embedder + Vector
// Store Client (C7). It is adapted directly from the teacher's
// internal/persistence/databases/qdrant_vector.go, retargeted to chunk ids
// of the form "{doc_id}:{ordinal}" and extended with the doc-id-prefix
// delete the spec requires for rollback on storage_failed.
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// originalIDField is the payload key used to recover a chunk id whose
// deterministic UUID doesn't round-trip (qdrant point ids must be UUIDs or
// unsigned integers).
const originalIDField = "_original_id"

// docIDField is stamped into every point's payload so DeleteByDoc can
// select by doc_id without needing a reverse index of point ids.
const docIDField = "doc_id"

// Result is one similarity-search hit. Vector is populated when the caller
// requests WithVectors, so the Hybrid Retriever's MMR step (§4.9 step 4)
// can measure similarity against chunk embeddings already fetched from the
// dense branch instead of re-embedding.
type Result struct {
	ID       string
	Score    float64
	Metadata map[string]string
	Vector   []float32
}

// Store is the vector store client.
type Store struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// New connects to qdrant and ensures the configured collection exists.
func New(dsn, collection string, dimension int, metric string) (*Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	s := &Store{client: client, collection: collection, dimension: dimension, metric: strings.ToLower(strings.TrimSpace(metric))}
	if err := s.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch s.metric {
	case "l2", "euclidean":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}
	if s.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimension > 0")
	}
	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: distance,
		}),
	})
}

func pointUUID(id string) (uuidStr string, isOriginal bool) {
	if _, err := uuid.Parse(id); err == nil {
		return id, false
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String(), true
}

// Upsert writes one chunk's dense vector and metadata, tagged with the
// owning doc_id for prefix deletes.
func (s *Store) Upsert(ctx context.Context, chunkID, docID string, vector []float32, metadata map[string]string) error {
	uuidStr, isOriginal := pointUUID(chunkID)
	payload := make(map[string]any, len(metadata)+2)
	for k, v := range metadata {
		payload[k] = v
	}
	payload[docIDField] = docID
	if isOriginal {
		payload[originalIDField] = chunkID
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(uuidStr),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	return err
}

// Delete removes one chunk by id.
func (s *Store) Delete(ctx context.Context, chunkID string) error {
	uuidStr, _ := pointUUID(chunkID)
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(uuidStr)),
	})
	return err
}

// DeleteByDoc removes every chunk belonging to a document, used to roll
// back partial chunks on storage_failed (§4.7) and to clear stale chunks
// on re-enrichment.
func (s *Store) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch(docIDField, docID)},
		}),
	})
	return err
}

// SimilaritySearch runs a dense nearest-neighbor query with an optional
// metadata equality filter. When withVectors is set, each hit's point
// vector is returned alongside its score and metadata.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string, withVectors bool) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	var queryFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for k, v := range filter {
			must = append(must, qdrant.NewMatch(k, v))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}
	limit := uint64(k)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(hits))
	for _, hit := range hits {
		uuidStr := hit.Id.GetUuid()
		if uuidStr == "" {
			uuidStr = hit.Id.String()
		}
		metadata := map[string]string{}
		var originalID string
		if hit.Payload != nil {
			for k, v := range hit.Payload {
				if k == originalIDField {
					originalID = v.GetStringValue()
					continue
				}
				metadata[k] = v.GetStringValue()
			}
		}
		id := originalID
		if id == "" {
			id = uuidStr
		}
		var dense []float32
		if withVectors && hit.Vectors != nil {
			dense = hit.Vectors.GetVector().GetData()
		}
		out = append(out, Result{ID: id, Score: float64(hit.Score), Metadata: metadata, Vector: dense})
	}
	return out, nil
}

func (s *Store) Dimension() int { return s.dimension }

func (s *Store) Close() error { return s.client.Close() }
