package vectordb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"runbook-rag/internal/embedding"
	"runbook-rag/internal/helper"
	"runbook-rag/internal/models"
)

const compress = false

// Store wraps a chromem-go collection together with the embedder used
// for both ingestion and querying. Embedding-space consistency between
// the two sides is the one invariant this type exists to protect.
type Store struct {
	db             *chromem.DB
	collection     *chromem.Collection
	embedder       embedding.Embedder
	collectionName string
}

// NewStore opens (or creates) the vector database and its collection.
func NewStore(dbPath, collectionName string, inMemory bool, embedder embedding.Embedder) (*Store, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	s := &Store{db: db, embedder: embedder, collectionName: collectionName}
	if s.collection, err = db.GetOrCreateCollection(collectionName, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return s, nil
}

// Ingest embeds and stores a batch of chunks. Each record gets a fresh
// uuid, the chunk's flattened metadata plus chunk_type/chunk_index,
// and the chunk's document string as retrievable content.
func (s *Store) Ingest(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.EmbeddingText()
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %v", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		meta := chunk.Metadata.Flatten()
		meta["chunk_type"] = string(chunk.Type)
		meta["chunk_index"] = strconv.Itoa(i)
		docs[i] = chromem.Document{
			ID:        id,
			Content:   chunk.DocumentString(),
			Metadata:  meta,
			Embedding: vectors[i],
		}
	}

	log.Debug().Int("count", len(docs)).Msg("adding documents to vector store")
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search embeds the query with the ingestion embedder and returns up
// to k results in descending similarity order. An empty collection
// returns an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k <= 0 || k > count {
		k = count
	}

	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	out := make([]models.SearchResult, len(results))
	for i, r := range results {
		out[i] = models.SearchResult{Document: r.Content, Metadata: r.Metadata}
	}
	return out, nil
}

// Count reports the number of stored documents.
func (s *Store) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Clear drops the collection and recreates it empty.
func (s *Store) Clear(_ context.Context) error {
	if err := s.db.DeleteCollection(s.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	c, err := s.db.GetOrCreateCollection(s.collectionName, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to recreate collection: %v", err)
	}
	s.collection = c
	return nil
}
