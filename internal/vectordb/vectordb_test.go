package vectordb

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"

	"runbook-rag/internal/models"
)

// fakeEmbedder maps text to a deterministic bag-of-words vector so
// identical texts embed identically and similarity search behaves.
type fakeEmbedder struct{}

func (fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%64]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (f fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("", "test_collection", true, fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func testChunks() []models.Chunk {
	return []models.Chunk{
		{
			Type:     models.ChunkText,
			Text:     "restart the service by running service restart",
			Metadata: models.Metadata{"source": "runbook.pdf", "file_type": "pdf", "chunk_id": 0},
		},
		{
			Type:     models.ChunkText,
			Text:     "backups run nightly and are stored offsite",
			Metadata: models.Metadata{"source": "runbook.pdf", "file_type": "pdf", "chunk_id": 1},
		},
		{
			Type:     models.ChunkTable,
			Table:    [][]string{{"host", "role"}, {"db01", "primary"}},
			Metadata: models.Metadata{"source": "runbook.pdf", "file_type": "pdf", "caption": "Table 1 on page 2"},
		},
	}
}

func TestIngestAndSearchRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := s.Search(ctx, "restart the service by running service restart", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Document != "restart the service by running service restart" {
		t.Errorf("top result = %q", results[0].Document)
	}
	if results[0].Metadata["chunk_type"] != "text" {
		t.Errorf("chunk_type = %q", results[0].Metadata["chunk_type"])
	}
	if results[0].Metadata["source"] != "runbook.pdf" {
		t.Errorf("source = %q", results[0].Metadata["source"])
	}
	if _, ok := results[0].Metadata["chunk_index"]; !ok {
		t.Error("chunk_index missing from stored metadata")
	}
}

func TestTableDocumentString(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	results, err := s.Search(ctx, "[TABLE] Table 1 on page 2", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	found := false
	for _, r := range results {
		if r.Metadata["chunk_type"] == "table" {
			found = true
			if r.Document != "host | role\ndb01 | primary" {
				t.Errorf("table document string = %q", r.Document)
			}
		}
	}
	if !found {
		t.Error("table chunk not retrievable")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	results, err := s.Search(ctx, "restart", 5)
	if err != nil {
		t.Fatalf("Search after Clear: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result after clear, got %d", len(results))
	}
}

func TestCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Errorf("empty store count = %d, %v", n, err)
	}
	if err := s.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 3 {
		t.Errorf("count after ingest = %d, %v", n, err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Errorf("count after clear = %d, %v", n, err)
	}
}

func TestSearchClampsK(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Ingest(ctx, testChunks()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	results, err := s.Search(ctx, "restart", 50)
	if err != nil {
		t.Fatalf("Search with oversized k: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}
