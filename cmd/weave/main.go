// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/weave"
	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/chunker"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/ingestion"
	"github.com/poiesic/weave/reembed"
	"github.com/poiesic/weave/search"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "weave",
		Usage: "Chunked document store with hybrid keyword and semantic retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Chunk, store, and embed a document",
				ArgsUsage: "[file]",
				Action:    ingestCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:     "doc-id",
						Usage:    "Document identifier",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content-type",
						Usage: "Chunking strategy (document, episodic, semantic, preference, procedural, working)",
						Value: "document",
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Maximum tokens per chunk",
						Value: chunker.DefaultMaxTokens,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Tokens repeated between adjacent chunks",
					},
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Delete any existing chunks for this document first",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Query the store",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Retrieval mode (hybrid, keyword, vector)",
						Value: "hybrid",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum semantic similarity",
						Value: search.DefaultSimilarityThreshold,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Print store statistics",
				Action: statsCommand,
				Flags:  storeFlags(),
			},
			{
				Name:      "delete",
				Usage:     "Remove a document and its chunks",
				ArgsUsage: "<doc-id>",
				Action:    deleteCommand,
				Flags:     storeFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for every chunk",
				Action: reembedCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens a store.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func openStore(c *cli.Context) (*weave.Store, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
	)
	store, err := weave.Open(c.String("db"), weave.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	var content []byte
	var err error
	if c.Args().Len() > 0 {
		content, err = os.ReadFile(c.Args().First())
	} else {
		content, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	contentType, err := core.ParseContentType(c.String("content-type"))
	if err != nil {
		return err
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline, err := store.NewIngestionPipeline(ingestion.WithSynchronousEmbedding())
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	cfg := chunker.DefaultConfig(c.String("doc-id"))
	cfg.ContentType = contentType
	cfg.MaxTokens = c.Int("max-tokens")
	cfg.Overlap = c.Int("overlap")

	var result *ingestion.Result
	if c.Bool("replace") {
		result, err = pipeline.Reingest(ctx, string(content), cfg)
	} else {
		result, err = pipeline.Ingest(ctx, string(content), cfg)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Stored %d chunks for document %q\n", len(result.ChunkIDs), result.DocID)
	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	var mode search.Mode
	switch c.String("mode") {
	case "hybrid":
		mode = search.ModeHybrid
	case "keyword":
		mode = search.ModeKeyword
	case "vector":
		mode = search.ModeVector
	default:
		return fmt.Errorf("invalid mode %q: must be one of hybrid, keyword, vector", c.String("mode"))
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := store.NewSearchEngine()
	if err != nil {
		return fmt.Errorf("failed to create search engine: %w", err)
	}

	results, err := engine.Query(ctx, query, search.Options{
		Limit:               c.Int("limit"),
		Mode:                mode,
		SimilarityThreshold: c.Float64("threshold"),
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: [%0.3f] %s#%d: %s\n",
			i+1, hit.Score, hit.Chunk.DocID, hit.Chunk.Index, snippet(hit.Chunk.Content, 120))
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.ChunkRepository().Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	vecStats, err := store.VectorStore().Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read vector stats: %w", err)
	}

	fmt.Printf("Documents:     %d\n", stats.DocCount)
	fmt.Printf("Chunks:        %d\n", stats.ChunkCount)
	fmt.Printf("Relationships: %d\n", stats.RelationshipCount)
	fmt.Printf("Vectors:       %d\n", vecStats.TotalVectors)
	fmt.Printf("Storage:       %d bytes\n", stats.StorageSize)
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	docID := c.Args().First()
	if docID == "" {
		return fmt.Errorf("doc-id is required")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := store.ChunkRepository().DeleteChunksByDoc(ctx, docID)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	fmt.Printf("Removed %d chunks for document %q\n", removed, docID)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	config := reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	store, err := openStore(c)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	processed, err := store.NewReembedder(config, os.Stderr).Run(ctx)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Done: %d chunks\n", processed)
	return nil
}

func snippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
