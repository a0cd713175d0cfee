package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ChunkType classifies what a chunk carries.
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkTable ChunkType = "table"
	ChunkImage ChunkType = "image"
)

// Metadata holds per-chunk key/value pairs. Values are restricted to
// scalars (string, int, float64, bool or nil); anything else is
// stringified once, at the index boundary, by Flatten.
type Metadata map[string]any

// Chunk is the atomic retrievable unit produced by the parser.
// Text chunks use Text, table chunks use Table, image chunks carry
// their file reference and caption in Metadata only.
type Chunk struct {
	Type     ChunkType
	Text     string
	Table    [][]string
	Metadata Metadata
}

// Flatten converts metadata to the string-only map the vector store
// persists. Scalar values are formatted with strconv; non-scalar
// values fall back to fmt.Sprint.
func (m Metadata) Flatten() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// Caption returns the chunk's caption metadata, if any.
func (c Chunk) Caption() string {
	if s, ok := c.Metadata["caption"].(string); ok {
		return s
	}
	return ""
}

// EmbeddingText is the canonical string a chunk is embedded from:
// the text itself for text chunks, a typed caption for tables and
// images, and the stringified content for anything else.
func (c Chunk) EmbeddingText() string {
	switch c.Type {
	case ChunkText:
		return c.Text
	case ChunkTable, ChunkImage:
		caption := c.Caption()
		if caption == "" {
			caption = "No caption"
		}
		return fmt.Sprintf("[%s] %s", strings.ToUpper(string(c.Type)), caption)
	default:
		return c.Text
	}
}

// DocumentString is the textual representation persisted alongside the
// embedding and returned on retrieval. Table rows are joined with
// pipes, one row per line.
func (c Chunk) DocumentString() string {
	if c.Type == ChunkTable && len(c.Table) > 0 {
		rows := make([]string, len(c.Table))
		for i, row := range c.Table {
			rows[i] = strings.Join(row, " | ")
		}
		return strings.Join(rows, "\n")
	}
	return c.Text
}

// SearchResult is one ranked hit from the vector index: the persisted
// document string plus the flattened metadata stored with it.
type SearchResult struct {
	Document string
	Metadata map[string]string
}

// ChunkType reconstructs the typed chunk kind from stored metadata.
func (r SearchResult) ChunkType() ChunkType {
	if t, ok := r.Metadata["chunk_type"]; ok {
		return ChunkType(t)
	}
	return ChunkText
}

// ChatTurn is one question and the answer chunk followed by the
// retrieved evidence that produced it.
type ChatTurn struct {
	Question string
	Answer   []SearchResult
}

// IngestReport summarizes one batch ingestion.
type IngestReport struct {
	Processed int
	Chunks    int
	Failed    map[string]error
}
