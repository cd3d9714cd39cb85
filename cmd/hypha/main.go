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
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/hypha"
	"github.com/poiesic/hypha/ai"
	"github.com/poiesic/hypha/ai/openai"
	"github.com/poiesic/hypha/convert"
	"github.com/poiesic/hypha/schema"
)

func main() {
	app := &cli.App{
		Name:  "hypha",
		Usage: "Schema-driven knowledge extraction into linked markdown notes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Extract entities from a source and render them as notes",
				Action: extractCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "schema",
						Aliases:  []string{"s"},
						Usage:    "Path to the JSON schema file",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Path to the source document (.txt or .md)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "vault",
						Usage: "Vault directory for generated notes (omit to skip rendering)",
					},
					&cli.StringFlag{
						Name:  "cache-dir",
						Usage: "Extraction cache directory (omit for an in-memory cache)",
					},
					&cli.DurationFlag{
						Name:  "cache-ttl",
						Usage: "Staleness bound for cached extractions",
						Value: time.Hour,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in runes",
						Value: hypha.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Overlap between adjacent chunks in runes",
						Value: hypha.DefaultChunkOverlap,
					},
					&cli.Float64Flag{
						Name:  "quality-threshold",
						Usage: "Minimum confidence for extracted entities",
						Value: hypha.DefaultQualityThreshold,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent chunk extractions (0 for sequential)",
					},
					&cli.StringFlag{
						Name:  "file-as-entity",
						Usage: "Treat the source as one entity of this type",
					},
					&cli.BoolFlag{
						Name:  "no-index",
						Usage: "Skip the index note",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Overwrite existing notes",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate the schema and source without calling the oracle",
					},
					&cli.StringFlag{
						Name:    "host",
						Usage:   "OpenAI-compatible endpoint",
						EnvVars: []string{"HYPHA_HOST"},
						Value:   "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:    "model",
						Usage:   "Model name",
						EnvVars: []string{"HYPHA_MODEL"},
						Value:   "qwen2.5:3b",
					},
				},
			},
			{
				Name:  "schema",
				Usage: "Inspect and validate extraction schemas",
				Subcommands: []*cli.Command{
					{
						Name:      "validate",
						Usage:     "Parse and validate a schema file",
						ArgsUsage: "<schema.json>",
						Action:    schemaValidateCommand,
					},
					{
						Name:      "prompt",
						Usage:     "Print the extraction prompt a schema produces",
						ArgsUsage: "<schema.json>",
						Action:    schemaPromptCommand,
					},
					{
						Name:      "example",
						Usage:     "Write an example schema",
						ArgsUsage: "<output.json>",
						Action:    schemaExampleCommand,
					},
					{
						Name:      "import",
						Usage:     "Derive a schema from an RDF/JSON-LD ontology",
						ArgsUsage: "<ontology.jsonld> <schema.json>",
						Action:    schemaImportCommand,
					},
				},
			},
			{
				Name:  "convert",
				Usage: "Convert a note vault to linked data",
				Subcommands: []*cli.Command{
					{
						Name:   "jsonld",
						Usage:  "Emit a JSON-LD @graph document",
						Action: convertJSONLDCommand,
						Flags:  convertFlags(),
					},
					{
						Name:   "cypher",
						Usage:  "Emit Cypher MERGE statements",
						Action: convertCypherCommand,
						Flags:  convertFlags(),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func convertFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "schema",
			Aliases:  []string{"s"},
			Usage:    "Path to the JSON schema file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "notes",
			Aliases:  []string{"n"},
			Usage:    "Vault directory to convert",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Output file path",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "base-iri",
			Usage: "Base IRI for generated identifiers",
		},
	}
}

func setup(c *cli.Context) error {
	// Missing .env is fine; flags and real env vars still apply.
	_ = godotenv.Load()

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

func extractCommand(c *cli.Context) error {
	ctx := context.Background()
	schemaPath := c.String("schema")
	sourcePath := c.String("source")

	if c.Bool("dry-run") {
		return dryRun(schemaPath, sourcePath)
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithModel(c.String("model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid oracle configuration: %w", err)
	}
	completer, err := openai.NewCompleter(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create completer: %w", err)
	}

	opts := []hypha.Option{
		hypha.WithChunking(c.Int("chunk-size"), c.Int("chunk-overlap")),
		hypha.WithQualityThreshold(c.Float64("quality-threshold")),
	}
	if c.String("vault") != "" {
		opts = append(opts, hypha.WithVault(c.String("vault"), c.Bool("overwrite")))
		if !c.Bool("no-index") {
			opts = append(opts, hypha.WithIndexNote())
		}
	}
	if c.String("cache-dir") != "" {
		opts = append(opts, hypha.WithCacheDir(c.String("cache-dir")))
	}
	if c.Duration("cache-ttl") > 0 {
		opts = append(opts, hypha.WithCacheTTL(c.Duration("cache-ttl")))
	}
	if c.Int("workers") > 0 {
		opts = append(opts, hypha.WithWorkers(c.Int("workers")))
	}
	if c.String("file-as-entity") != "" {
		opts = append(opts, hypha.WithFileAsEntity(c.String("file-as-entity")))
	}

	extractor, err := hypha.New(schemaPath, completer, opts...)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}
	defer extractor.Close()

	result, err := extractor.ProcessFile(ctx, sourcePath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	printSummary(result)
	if !result.Success || len(result.Errors) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func dryRun(schemaPath, sourcePath string) error {
	parser := schema.NewParser()
	def, err := parser.Load(schemaPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("source not readable: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Schema:   %s (version %s)\n", def.Name, def.Version)
	fmt.Fprintf(os.Stderr, "Entities: %s\n", strings.Join(def.EntityNames(), ", "))
	fmt.Fprintf(os.Stderr, "Source:   %s\n", sourcePath)
	fmt.Fprintln(os.Stderr, "Dry run: schema and source look usable.")
	return nil
}

func printSummary(result *hypha.Result) {
	fmt.Fprintf(os.Stderr, "\nRun %s\n", result.Metadata.RunID)
	fmt.Fprintf(os.Stderr, "Chunks:   %d\n", result.Metadata.ChunkCount)
	fmt.Fprintf(os.Stderr, "Entities: %d\n", len(result.Entities))
	if result.Render != nil {
		fmt.Fprintf(os.Stderr, "Notes:    %d generated, %d skipped\n",
			len(result.Render.Generated), len(result.Render.Skipped))
		if result.Render.IndexFile != "" {
			fmt.Fprintf(os.Stderr, "Index:    %s\n", result.Render.IndexFile)
		}
	}
	fmt.Fprintf(os.Stderr, "Elapsed:  %s\n", result.Elapsed.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d errors:\n", len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", msg)
		}
	}
}

func schemaValidateCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("schema path is required")
	}

	def, err := schema.NewParser().Load(path)
	if err != nil {
		return err
	}

	fmt.Printf("Schema %q (version %s) is valid.\n", def.Name, def.Version)
	for _, name := range def.EntityNames() {
		entity := def.Entities[name]
		fmt.Printf("  %s: %d properties, %d relationships\n",
			name, len(entity.Properties), len(entity.Relationships))
	}
	return nil
}

func schemaPromptCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("schema path is required")
	}

	def, err := schema.NewParser().Load(path)
	if err != nil {
		return err
	}
	fmt.Println(schema.BuildExtractionPrompt(def))
	return nil
}

func schemaExampleCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := schema.WriteExample(path); err != nil {
		return err
	}
	fmt.Printf("Example schema written to %s\n", path)
	return nil
}

func schemaImportCommand(c *cli.Context) error {
	ontologyPath := c.Args().Get(0)
	outputPath := c.Args().Get(1)
	if ontologyPath == "" || outputPath == "" {
		return fmt.Errorf("ontology path and output path are required")
	}

	importer := convert.NewOntology()
	if err := importer.Load(ontologyPath); err != nil {
		return err
	}
	if err := importer.Export(outputPath); err != nil {
		return err
	}

	def, err := schema.NewParser().Load(outputPath)
	if err != nil {
		return err
	}
	fmt.Printf("Schema %q written to %s (%d entity types)\n", def.Name, outputPath, len(def.Entities))
	return nil
}

func convertJSONLDCommand(c *cli.Context) error {
	def, err := schema.NewParser().Load(c.String("schema"))
	if err != nil {
		return err
	}

	converter := convert.NewJSONLD(def, c.String("base-iri"))
	nodes, err := converter.ConvertDirectory(c.String("notes"))
	if err != nil {
		return err
	}
	if err := converter.Export(nodes, c.String("output")); err != nil {
		return fmt.Errorf("failed to write JSON-LD: %w", err)
	}

	fmt.Printf("Converted %d entities to %s\n", len(nodes), c.String("output"))
	return nil
}

func convertCypherCommand(c *cli.Context) error {
	def, err := schema.NewParser().Load(c.String("schema"))
	if err != nil {
		return err
	}

	converter := convert.NewCypher(def, c.String("base-iri"))
	added, err := converter.ConvertDirectory(c.String("notes"))
	if err != nil {
		return err
	}
	if err := converter.Export(c.String("output")); err != nil {
		return fmt.Errorf("failed to write Cypher: %w", err)
	}

	fmt.Printf("Converted %d entities to %s\n", added, c.String("output"))
	return nil
}
