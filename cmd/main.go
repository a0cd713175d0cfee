package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runbook-rag/internal/config"
	"runbook-rag/internal/db"
	"runbook-rag/internal/embedding"
	"runbook-rag/internal/helper"
	"runbook-rag/internal/llm"
	"runbook-rag/internal/parser"
	"runbook-rag/internal/rag"
	"runbook-rag/internal/splitter"
	"runbook-rag/internal/vectordb"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment as is")
	}

	files := flag.String("file", "", "Comma separated list of documents to ingest")
	query := flag.String("query", "", "Question to answer from the ingested documents")
	clear := flag.Bool("clear", false, "Remove all indexed documents before anything else")
	dryRun := flag.Bool("dry-run", false, "Parse documents and print chunks without indexing")
	flag.Parse()

	if *files == "" && *query == "" && !*clear {
		log.Fatal().Msg("Provide documents with -file, a question with -query, or -clear")
	}

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	ctx := context.Background()

	if *dryRun && *files != "" {
		parseOnly(splitPaths(*files), cfg)
		return
	}

	assistant, closeFn, err := buildAssistant(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error wiring assistant")
	}
	defer closeFn()

	if *clear {
		if err := assistant.ClearDocuments(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error clearing documents")
		}
		log.Info().Msg("Cleared all indexed documents")
	}

	if *files != "" {
		ingest(ctx, assistant, splitPaths(*files))
	}

	if *query != "" {
		ask(ctx, assistant, *query)
	}
}

func splitPaths(csv string) []string {
	var paths []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// buildAssistant wires the embedder, the vector index and the parser.
// The Postgres store is used when the database block is enabled in the
// config, otherwise the embedded store.
func buildAssistant(cfg *config.Config) (*rag.Assistant, func(), error) {
	embedder, err := embedding.NewOllamaEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, err
	}

	var index rag.VectorIndex
	closeFn := func() {}
	if cfg.Database.Enabled {
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		store := db.NewStore(bunDB, embedder)
		if err := store.Init(context.Background()); err != nil {
			return nil, nil, err
		}
		index = store
		closeFn = func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}
	} else {
		store, err := vectordb.NewStore(cfg.Storage.DBPath, cfg.Storage.CollectionName, cfg.Storage.InMemory, embedder)
		if err != nil {
			return nil, nil, err
		}
		index = store
	}

	split := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	p := parser.New(cfg.Storage.ImagesDir, split)

	return rag.New(index, llm.NewClient(&cfg.LLM), p, cfg.RAG.TopK), closeFn, nil
}

func parseOnly(paths []string, cfg *config.Config) {
	split := splitter.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	p := parser.New(cfg.Storage.ImagesDir, split)
	for _, path := range paths {
		chunks, err := p.Process(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Error parsing document")
			continue
		}
		log.Info().Str("file", path).Int("chunks", len(chunks)).Msg("Parsed document")
		helper.PrettyPrint(chunks)
	}
}

func ingest(ctx context.Context, assistant *rag.Assistant, paths []string) {
	report, err := assistant.IngestFiles(ctx, paths)
	if err != nil {
		log.Fatal().Err(err).Msg("Error indexing documents")
	}
	for path, ferr := range report.Failed {
		log.Warn().Err(ferr).Str("file", path).Msg("Document skipped")
	}
	log.Info().Int("documents", report.Processed).Int("chunks", report.Chunks).Msg("Ingestion complete")
}

func ask(ctx context.Context, assistant *rag.Assistant, query string) {
	if !assistant.Ready(ctx) {
		log.Fatal().Msg("Ollama is not reachable")
	}

	response, err := assistant.Ask(ctx, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, ev := range response.Evidence {
		fmt.Printf("[%s] %s\n", ev.Metadata["source"], firstLine(ev.Document))
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Answer)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
