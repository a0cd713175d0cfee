package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"runbook-rag/internal/config"
	"runbook-rag/internal/embedding"
	"runbook-rag/internal/helper"
	"runbook-rag/internal/models"
)

// Record is one stored chunk in the chunks table. The embedding
// column width matches the nomic-embed-text model.
type Record struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string            `bun:"id,pk"`
	Document      string            `bun:"document,notnull"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.DSN + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Store is a Postgres/pgvector alternative to the embedded vector
// store: the same ingest/search/clear contract, backed by a chunks
// table ordered with the `<->` distance operator.
type Store struct {
	db       *bun.DB
	embedder embedding.Embedder
}

func NewStore(db *bun.DB, embedder embedding.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Record)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

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

	records := make([]Record, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		meta := chunk.Metadata.Flatten()
		meta["chunk_type"] = string(chunk.Type)
		meta["chunk_index"] = strconv.Itoa(i)
		records[i] = Record{
			ID:        id,
			Document:  chunk.DocumentString(),
			Embedding: vectors[i],
			Metadata:  meta,
		}
	}

	_, err = s.db.NewInsert().Model(&records).Exec(ctx)
	return err
}

func (s *Store) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %v", err)
	}

	var records []Record
	err = s.db.NewSelect().
		Model(&records).
		Column("id", "document", "metadata").
		OrderExpr("embedding <-> ?", queryEmbedding).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, len(records))
	for i, r := range records {
		out[i] = models.SearchResult{Document: r.Document, Metadata: r.Metadata}
	}
	return out, nil
}

// Count reports the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Record)(nil)).Count(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*Record)(nil)).IfExists().Exec(ctx)
	if err != nil {
		return err
	}
	return s.Init(ctx)
}
