package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"runbook-rag/internal/helper"
	"runbook-rag/internal/models"
	"runbook-rag/internal/splitter"
)

// ErrUnsupportedFormat is returned for document extensions the parser
// does not understand. Fatal to that document, not to a batch.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Parser turns a document file into an ordered sequence of typed
// chunks: all image chunks first, then table chunks, then the text
// windows produced by the splitter.
type Parser struct {
	imagesDir string
	split     *splitter.Splitter
}

func New(imagesDir string, split *splitter.Splitter) *Parser {
	if split == nil {
		split = splitter.Default()
	}
	return &Parser{imagesDir: imagesDir, split: split}
}

// intermediate extraction results before chunk assembly
type imageRef struct {
	File    string
	Caption string
	Page    int // 0 when the format has no pages
}

type tableRef struct {
	Rows    [][]string
	Caption string
	Page    int
	Index   int
}

type extraction struct {
	text   string
	images []imageRef
	tables []tableRef
}

// Process extracts chunks from one document, dispatching on the file
// extension. Extracted images are persisted under the parser's images
// directory and referenced by path in chunk metadata.
func (p *Parser) Process(filePath string) ([]models.Chunk, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	var ex extraction
	var err error
	switch ext {
	case "pdf":
		ex, err = p.extractPDF(filePath)
	case "docx", "doc":
		ex, err = p.extractDOCX(filePath)
	case "md", "markdown":
		ex, err = extractMarkdown(filePath)
	case "txt":
		ex, err = extractText(filePath)
	case "xlsx":
		ex, err = extractXLSX(filePath)
	case "ods":
		ex, err = extractODS(filePath)
	default:
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	chunks := p.assemble(filePath, ext, ex)
	log.Debug().Str("file", filePath).Int("chunks", len(chunks)).Msg("parsed document")
	return chunks, nil
}

// assemble stamps source/file_type metadata on every chunk and fixes
// the emission order: images, tables, then text windows.
func (p *Parser) assemble(filePath, ext string, ex extraction) []models.Chunk {
	source := filepath.Base(filePath)
	var chunks []models.Chunk

	for _, img := range ex.images {
		md := models.Metadata{
			"caption":   img.Caption,
			"file":      img.File,
			"source":    source,
			"file_type": ext,
		}
		if img.Page > 0 {
			md["page"] = img.Page
		}
		chunks = append(chunks, models.Chunk{Type: models.ChunkImage, Metadata: md})
	}

	for _, tbl := range ex.tables {
		md := models.Metadata{
			"caption":   tbl.Caption,
			"source":    source,
			"file_type": ext,
		}
		if tbl.Page > 0 {
			md["page"] = tbl.Page
		} else {
			md["table_index"] = tbl.Index
		}
		chunks = append(chunks, models.Chunk{Type: models.ChunkTable, Table: tbl.Rows, Metadata: md})
	}

	for i, window := range p.split.Split(ex.text) {
		chunks = append(chunks, models.Chunk{
			Type: models.ChunkText,
			Text: window,
			Metadata: models.Metadata{
				"chunk_id":  i,
				"source":    source,
				"file_type": ext,
			},
		})
	}
	return chunks
}

// persistImage writes image bytes under the images directory and
// returns the stored path.
func (p *Parser) persistImage(name string, data []byte) (string, error) {
	if err := helper.CreateFolder(p.imagesDir); err != nil {
		return "", err
	}
	path := filepath.Join(p.imagesDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fileStem returns the file name without directory or extension.
func fileStem(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func extractText(filePath string) (extraction, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return extraction{}, err
	}
	return extraction{text: string(data)}, nil
}
