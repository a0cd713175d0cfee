package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"runbook-rag/internal/guardrails"
	"runbook-rag/internal/models"
	"runbook-rag/internal/parser"
)

// NoRelevantInfo is the answer surfaced when retrieval finds nothing.
const NoRelevantInfo = "No relevant information found in documents."

// VectorIndex is the retrieval contract the assistant depends on.
// Both the embedded store and the Postgres store satisfy it.
type VectorIndex interface {
	Ingest(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Generator produces an answer for a prompt. Failures are expected to
// degrade to in-band error text, never to an error return.
type Generator interface {
	Healthy(ctx context.Context) bool
	Generate(ctx context.Context, prompt string) string
}

// Response is one answered question with its supporting evidence.
type Response struct {
	Query    string
	Answer   string
	Evidence []models.SearchResult
}

// Assistant wires parsing, retrieval, generation and the guardrail
// chains into the question-answering flow, and owns session state:
// chat history and the documents-loaded flag.
type Assistant struct {
	index     VectorIndex
	generator Generator
	parser    *parser.Parser
	input     *guardrails.Input
	output    *guardrails.Output
	topK      int

	history []models.ChatTurn
	loaded  bool
}

func New(index VectorIndex, generator Generator, p *parser.Parser, topK int) *Assistant {
	if topK <= 0 {
		topK = 5
	}
	return &Assistant{
		index:     index,
		generator: generator,
		parser:    p,
		input:     guardrails.NewInput(),
		output:    guardrails.NewOutput(),
		topK:      topK,
	}
}

// IngestFiles parses and indexes a batch of documents. Per-document
// failures are isolated and reported; chunks from all successfully
// parsed documents are combined into a single ingestion.
func (a *Assistant) IngestFiles(ctx context.Context, paths []string) (models.IngestReport, error) {
	report := models.IngestReport{Failed: make(map[string]error)}

	var all []models.Chunk
	for _, path := range paths {
		chunks, err := a.parser.Process(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to process document")
			report.Failed[path] = err
			continue
		}
		all = append(all, chunks...)
		report.Processed++
	}

	if len(all) > 0 {
		if err := a.index.Ingest(ctx, all); err != nil {
			return report, err
		}
		a.loaded = true
	}
	report.Chunks = len(all)
	log.Info().Int("documents", report.Processed).Int("chunks", report.Chunks).
		Int("failed", len(report.Failed)).Msg("ingestion finished")
	return report, nil
}

// Ask runs one question through the full flow: input validation,
// retrieval, context assembly, generation and output validation. Only
// validated answers are appended to the chat history.
func (a *Assistant) Ask(ctx context.Context, query string) (*Response, error) {
	// a persistent index reopened from an earlier run already holds
	// documents; the load flag follows the index, not just this
	// process's ingests
	if !a.loaded {
		if n, err := a.index.Count(ctx); err == nil && n > 0 {
			a.loaded = true
		}
	}

	validated, err := a.input.Validate(query, guardrails.InputState{DocumentsLoaded: a.loaded})
	if err != nil {
		return nil, err
	}

	results, err := a.index.Search(ctx, validated, a.topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Response{Query: validated, Answer: NoRelevantInfo}, nil
	}

	sources := assembleContext(results)
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(sources, "\n\n"), validated)
	answer := a.generator.Generate(ctx, prompt)

	if err := a.output.Validate(answer, sources, referenceSet(results)); err != nil {
		return nil, err
	}

	answerChunk := models.SearchResult{
		Document: answer,
		Metadata: map[string]string{"source": "LLM Answer", "chunk_type": "text"},
	}
	a.history = append(a.history, models.ChatTurn{
		Question: validated,
		Answer:   append([]models.SearchResult{answerChunk}, results...),
	})

	return &Response{Query: validated, Answer: answer, Evidence: results}, nil
}

// History returns the session's chat turns in order.
func (a *Assistant) History() []models.ChatTurn {
	out := make([]models.ChatTurn, len(a.history))
	copy(out, a.history)
	return out
}

// DocumentsLoaded reports whether any documents have been ingested.
func (a *Assistant) DocumentsLoaded() bool { return a.loaded }

// Ready reports whether the answer backend is reachable.
func (a *Assistant) Ready(ctx context.Context) bool { return a.generator.Healthy(ctx) }

// ClearDocuments drops all indexed content and resets the load flag.
// Chat history is kept.
func (a *Assistant) ClearDocuments(ctx context.Context) error {
	if err := a.index.Clear(ctx); err != nil {
		return err
	}
	a.loaded = false
	return nil
}

// assembleContext renders retrieved chunks into the grounding context:
// text verbatim, tables as caption plus pipe rows, images as caption
// with an omission note. Order follows retrieval order.
func assembleContext(results []models.SearchResult) []string {
	var sources []string
	for _, r := range results {
		caption := r.Metadata["caption"]
		switch r.ChunkType() {
		case models.ChunkTable:
			if r.Document != "" {
				sources = append(sources, caption+"\n"+r.Document)
			} else {
				sources = append(sources, caption)
			}
		case models.ChunkImage:
			sources = append(sources, caption+" [Image omitted in prompt]")
		default:
			sources = append(sources, r.Document)
		}
	}
	return sources
}

// referenceSet collects the names an answer may legitimately
// reference: image file names and table captions of the retrieved
// evidence.
func referenceSet(results []models.SearchResult) map[string]struct{} {
	refs := make(map[string]struct{})
	for _, r := range results {
		switch r.ChunkType() {
		case models.ChunkImage:
			if file := r.Metadata["file"]; file != "" {
				refs[filepath.Base(file)] = struct{}{}
			}
		case models.ChunkTable:
			if caption := r.Metadata["caption"]; caption != "" {
				refs[caption] = struct{}{}
			}
		}
	}
	return refs
}
