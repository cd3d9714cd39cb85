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


// Package hypha extracts schema-conforming entities from text with an LLM
// oracle and renders them as a vault of linked markdown notes. This file
// is the assembled front door; the subpackages hold the moving parts.
package hypha

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/hypha/ai"
	"github.com/poiesic/hypha/cache"
	"github.com/poiesic/hypha/etl"
	"github.com/poiesic/hypha/notes"
	"github.com/poiesic/hypha/schema"
)

// Re-exported so callers of the facade don't need the etl package for
// common tuning.
const (
	DefaultChunkSize        = etl.DefaultChunkSize
	DefaultChunkOverlap     = etl.DefaultChunkOverlap
	DefaultQualityThreshold = etl.DefaultQualityThreshold
)

// Result is the outcome of one extraction run.
type Result = etl.Result

// Extractor ties a schema, an oracle, a cache, and a note vault into one
// ready-to-run unit.
type Extractor struct {
	schemaPath string
	pipeline   *etl.Pipeline
	cache      *cache.Cache
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*extractorOptions)

type extractorOptions struct {
	chunkSize        int
	chunkOverlap     int
	qualityThreshold float64
	cacheDir         string
	cacheTTL         time.Duration
	vaultDir         string
	overwrite        bool
	indexNote        bool
	workers          int
	fileAsEntity     string
}

// WithChunking sets the chunk size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(o *extractorOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithQualityThreshold sets the minimum confidence for extracted entities.
func WithQualityThreshold(threshold float64) Option {
	return func(o *extractorOptions) {
		o.qualityThreshold = threshold
	}
}

// WithCacheDir persists the extraction cache under dir. Without it the
// cache lives in memory for the extractor's lifetime.
func WithCacheDir(dir string) Option {
	return func(o *extractorOptions) {
		o.cacheDir = dir
	}
}

// WithCacheTTL sets the staleness bound for cached extractions.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *extractorOptions) {
		o.cacheTTL = ttl
	}
}

// WithVault renders extracted entities as notes under dir.
func WithVault(dir string, overwrite bool) Option {
	return func(o *extractorOptions) {
		o.vaultDir = dir
		o.overwrite = overwrite
	}
}

// WithIndexNote also writes an index note per run. Needs WithVault.
func WithIndexNote() Option {
	return func(o *extractorOptions) {
		o.indexNote = true
	}
}

// WithWorkers extracts chunks concurrently with the given pool size.
func WithWorkers(workers int) Option {
	return func(o *extractorOptions) {
		o.workers = workers
	}
}

// WithFileAsEntity treats each source as one entity of the given type and
// retries extraction when the oracle fails to surface it.
func WithFileAsEntity(entityType string) Option {
	return func(o *extractorOptions) {
		o.fileAsEntity = entityType
	}
}

// New creates an extractor bound to one schema. The schema is parsed
// eagerly so configuration errors surface here rather than mid-run.
func New(schemaPath string, completer ai.Completer, opts ...Option) (*Extractor, error) {
	options := &extractorOptions{
		chunkSize:        DefaultChunkSize,
		chunkOverlap:     DefaultChunkOverlap,
		qualityThreshold: DefaultQualityThreshold,
		cacheTTL:         cache.DefaultTTL,
	}
	for _, opt := range opts {
		opt(options)
	}

	parser := schema.NewParser()
	if _, err := parser.Load(schemaPath); err != nil {
		return nil, err
	}

	var extractionCache *cache.Cache
	if options.cacheDir != "" {
		extractionCache = cache.Open(options.cacheDir, options.cacheTTL)
	} else {
		extractionCache = cache.NewMemory(options.cacheTTL)
	}

	pipelineOpts := []etl.Option{
		etl.WithCache(extractionCache),
		etl.WithChunkSize(options.chunkSize),
		etl.WithChunkOverlap(options.chunkOverlap),
		etl.WithQualityThreshold(options.qualityThreshold),
	}
	if options.vaultDir != "" {
		generator, err := newGenerator(options)
		if err != nil {
			extractionCache.Close()
			return nil, err
		}
		pipelineOpts = append(pipelineOpts, etl.WithRenderer(generator))
		if options.indexNote {
			pipelineOpts = append(pipelineOpts, etl.WithIndexNote(true))
		}
	}
	if options.workers > 0 {
		pipelineOpts = append(pipelineOpts, etl.WithWorkers(options.workers))
	}
	if options.fileAsEntity != "" {
		pipelineOpts = append(pipelineOpts, etl.WithExpectedEntityType(options.fileAsEntity))
	}

	pipeline, err := etl.NewPipeline(parser, completer, pipelineOpts...)
	if err != nil {
		extractionCache.Close()
		return nil, err
	}

	return &Extractor{
		schemaPath: schemaPath,
		pipeline:   pipeline,
		cache:      extractionCache,
		logger:     slog.Default(),
	}, nil
}

func newGenerator(options *extractorOptions) (*notes.Generator, error) {
	genOpts := []notes.Option{}
	if options.overwrite {
		genOpts = append(genOpts, notes.WithOverwrite())
	}
	return notes.NewGenerator(options.vaultDir, genOpts...)
}

// ProcessFile extracts entities from a document on disk.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	return e.pipeline.ProcessFile(ctx, path, e.schemaPath)
}

// ProcessText extracts entities from in-memory text.
func (e *Extractor) ProcessText(ctx context.Context, text, sourceName string) (*Result, error) {
	return e.pipeline.ProcessText(ctx, text, e.schemaPath, sourceName)
}

// Close persists the extraction cache and releases the worker pool.
func (e *Extractor) Close() error {
	e.pipeline.Release()
	if err := e.cache.Close(); err != nil {
		e.logger.Error("error closing extraction cache", "err", err)
		return err
	}
	return nil
}
