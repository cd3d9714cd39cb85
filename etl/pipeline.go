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


package etl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/hypha/ai"
	"github.com/poiesic/hypha/cache"
	"github.com/poiesic/hypha/chunk"
	"github.com/poiesic/hypha/core"
	"github.com/poiesic/hypha/schema"
)

const (
	// DefaultChunkSize is the chunk budget in runes.
	DefaultChunkSize = 4000

	// DefaultChunkOverlap is the shared-rune count between adjacent chunks.
	DefaultChunkOverlap = 200

	// DefaultQualityThreshold is the minimum confidence an entity needs to
	// survive quality filtering. The comparison is inclusive.
	DefaultQualityThreshold = 0.7

	// expectedTypeRetries bounds the re-extraction attempts made when a
	// source declares its own entity type and the oracle failed to
	// surface it.
	expectedTypeRetries = 2
)

// Pipeline orchestrates extraction for one data source at a time: load,
// normalize, chunk, extract through the cache, deduplicate, validate,
// quality-filter, render.
type Pipeline struct {
	parser    *schema.Parser
	completer ai.Completer
	cache     *cache.Cache
	renderer  Renderer
	pool      *ants.Pool // nil means sequential chunk processing

	chunkSize        int
	chunkOverlap     int
	qualityThreshold float64
	expectedType     string
	generateIndex    bool
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithCache attaches an extraction cache. Without one every chunk goes to
// the oracle.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) error {
		p.cache = c
		return nil
	}
}

// WithRenderer attaches the note-emission collaborator invoked after
// filtering.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) error {
		p.renderer = r
		return nil
	}
}

// WithChunkSize sets the chunk budget in runes. Default is DefaultChunkSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return chunk.ErrInvalidChunking
		}
		p.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks in runes.
// Default is DefaultChunkOverlap.
func WithChunkOverlap(overlap int) Option {
	return func(p *Pipeline) error {
		if overlap < 0 {
			return chunk.ErrInvalidChunking
		}
		p.chunkOverlap = overlap
		return nil
	}
}

// WithQualityThreshold sets the minimum confidence for an entity to be
// kept. Entities exactly at the threshold are kept.
func WithQualityThreshold(threshold float64) Option {
	return func(p *Pipeline) error {
		p.qualityThreshold = threshold
		return nil
	}
}

// WithWorkers enables concurrent chunk extraction with a pool of the given
// size. Results are sorted back into document order before deduplication,
// so output is identical to sequential processing.
func WithWorkers(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithExpectedEntityType declares the entity type the source itself
// represents. When extraction yields no entity of this type the first
// chunk is retried with a stronger directive.
func WithExpectedEntityType(entityType string) Option {
	return func(p *Pipeline) error {
		p.expectedType = entityType
		return nil
	}
}

// WithIndexNote enables generation of an index note linking every
// rendered entity. Requires a renderer.
func WithIndexNote(enabled bool) Option {
	return func(p *Pipeline) error {
		p.generateIndex = enabled
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline around a schema parser and an oracle
// completer.
func NewPipeline(parser *schema.Parser, completer ai.Completer, opts ...Option) (*Pipeline, error) {
	if parser == nil {
		return nil, ErrSchemaParserRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	p := &Pipeline{
		parser:           parser,
		completer:        completer,
		chunkSize:        DefaultChunkSize,
		chunkOverlap:     DefaultChunkOverlap,
		qualityThreshold: DefaultQualityThreshold,
		logger:           slog.Default().With("component", "etl-pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// Release frees the worker pool, if any. The pipeline must not be used
// after Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
		p.pool = nil
	}
}

// ProcessFile runs the pipeline over a file on disk.
func (p *Pipeline) ProcessFile(ctx context.Context, path, schemaPath string) (*Result, error) {
	started := time.Now()

	text, srcMeta, err := LoadSource(path)
	if err != nil {
		return p.abort(started, path, err), err
	}
	return p.process(ctx, started, text, schemaPath, path, srcMeta.SourceType)
}

// ProcessText runs the pipeline over in-memory text. sourceName labels the
// run in metadata and logs.
func (p *Pipeline) ProcessText(ctx context.Context, text, schemaPath, sourceName string) (*Result, error) {
	return p.process(ctx, time.Now(), text, schemaPath, sourceName, "text")
}

func (p *Pipeline) abort(started time.Time, source string, err error) *Result {
	return &Result{
		Success: false,
		Errors:  []string{err.Error()},
		Elapsed: time.Since(started),
		Metadata: RunMetadata{
			RunID:       uuid.New(),
			Source:      source,
			ExtractedAt: started.UTC(),
		},
	}
}

type chunkOutcome struct {
	entities []core.Entity
	errors   []string
}

func (p *Pipeline) process(ctx context.Context, started time.Time, text, schemaPath, source, sourceType string) (*Result, error) {
	def, err := p.parser.Get(schemaPath)
	if err != nil {
		return p.abort(started, source, err), err
	}

	text = Normalize(text)

	var chunks []string
	if text != "" {
		chunks, err = chunk.Split(text, p.chunkSize, p.chunkOverlap)
		if err != nil {
			return p.abort(started, source, err), err
		}
	}

	meta := RunMetadata{
		RunID:         uuid.New(),
		Source:        source,
		SourceType:    sourceType,
		SchemaName:    def.Name,
		SchemaVersion: def.Version,
		ChunkCount:    len(chunks),
		ExtractedAt:   started.UTC(),
	}

	p.logger.Info("processing source",
		"source", source,
		"schema", def.Name,
		"chunks", len(chunks),
		"run_id", meta.RunID)

	// Cache fingerprints fold in the rendered schema, so edits to the
	// schema file invalidate entries without an explicit version bump.
	schemaID := schema.BuildExtractionPrompt(def)

	outcomes := p.extractAll(ctx, chunks, def, schemaID)

	var entities []core.Entity
	var runErrors []string
	for _, outcome := range outcomes {
		entities = append(entities, outcome.entities...)
		runErrors = append(runErrors, outcome.errors...)
	}

	if p.expectedType != "" && len(chunks) > 0 && !containsType(entities, p.expectedType) {
		retried, retryErrs := p.retryExpectedType(ctx, chunks[0], def)
		entities = append(retried, entities...)
		runErrors = append(runErrors, retryErrs...)
	}

	entities = Deduplicate(entities, p.logger)

	// Re-validate after deduplication. Freshly extracted entities were
	// already checked before caching; this pass also covers entities
	// restored from a previous run's store.
	valid := make([]core.Entity, 0, len(entities))
	for _, entity := range entities {
		ok, problems := schema.ValidateEntity(&entity, def)
		if !ok {
			for _, problem := range problems {
				runErrors = append(runErrors, fmt.Sprintf("entity %q (%s): %s", entity.Name(), entity.Type, problem))
			}
			continue
		}
		valid = append(valid, entity)
	}

	kept := make([]core.Entity, 0, len(valid))
	for _, entity := range valid {
		if entity.ConfidenceOrDefault() >= p.qualityThreshold {
			kept = append(kept, entity)
			continue
		}
		p.logger.Debug("entity below quality threshold",
			"name", entity.Name(),
			"type", entity.Type,
			"confidence", entity.ConfidenceOrDefault())
	}

	result := &Result{
		Success:  true,
		Entities: kept,
		Errors:   runErrors,
		Metadata: meta,
	}

	if p.renderer != nil {
		render, renderErr := p.renderer.ProcessEntities(kept, meta)
		if renderErr != nil {
			result.Errors = append(result.Errors, renderErr.Error())
		}
		if render != nil {
			result.Errors = append(result.Errors, render.Errors...)
		}
		result.Render = render

		if p.generateIndex && len(kept) > 0 {
			indexPath, indexErr := p.renderer.CreateIndex(kept, meta)
			if indexErr != nil {
				result.Errors = append(result.Errors, indexErr.Error())
			} else if result.Render != nil {
				result.Render.IndexFile = indexPath
			}
		}
	}

	if p.cache != nil {
		if persistErr := p.cache.Persist(); persistErr != nil {
			p.logger.Warn("failed to persist extraction cache", "err", persistErr)
		}
	}

	result.Elapsed = time.Since(started)
	result.Metadata.Elapsed = result.Elapsed

	p.logger.Info("processing complete",
		"source", source,
		"entities", len(kept),
		"errors", len(result.Errors),
		"elapsed", result.Elapsed)

	return result, nil
}

// extractAll runs extraction for every chunk, sequentially or through the
// worker pool. The returned slice is indexed by chunk so downstream stages
// always see document order.
func (p *Pipeline) extractAll(ctx context.Context, chunks []string, def *schema.Definition, schemaID string) []chunkOutcome {
	outcomes := make([]chunkOutcome, len(chunks))

	if p.pool == nil {
		for i, chunkText := range chunks {
			outcomes[i] = p.extractChunk(ctx, i, chunkText, def, schemaID)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, chunkText := range chunks {
		i, chunkText := i, chunkText
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = p.extractChunk(ctx, i, chunkText, def, schemaID)
		})
		if submitErr != nil {
			wg.Done()
			outcomes[i] = chunkOutcome{errors: []string{fmt.Sprintf("chunk %d: %v", i, submitErr)}}
		}
	}
	wg.Wait()
	return outcomes
}

// extractChunk resolves one chunk: cache hit, or oracle call followed by
// parsing and validation. Only entities that pass validation are cached,
// so a hit never resurrects a rejected entity.
func (p *Pipeline) extractChunk(ctx context.Context, index int, chunkText string, def *schema.Definition, schemaID string) chunkOutcome {
	if p.cache != nil {
		if cached, ok := p.cache.Get(chunkText, schemaID); ok {
			p.logger.Debug("cache hit", "chunk", index)
			return chunkOutcome{entities: cached}
		}
	}

	response, err := p.completer.Complete(ctx, buildPrompt(chunkText, def))
	if err != nil {
		return chunkOutcome{errors: []string{fmt.Sprintf("chunk %d: %v", index, err)}}
	}

	parsed, err := parseResponse(response)
	if err != nil {
		return chunkOutcome{errors: []string{fmt.Sprintf("chunk %d: %v", index, err)}}
	}

	outcome := chunkOutcome{entities: make([]core.Entity, 0, len(parsed))}
	for _, entity := range parsed {
		ok, problems := schema.ValidateEntity(&entity, def)
		if !ok {
			for _, problem := range problems {
				outcome.errors = append(outcome.errors, fmt.Sprintf("chunk %d: entity %q (%s): %s", index, entity.Name(), entity.Type, problem))
			}
			continue
		}
		outcome.entities = append(outcome.entities, entity)
	}

	if p.cache != nil {
		p.cache.Put(chunkText, schemaID, outcome.entities)
	}
	return outcome
}

// retryExpectedType re-runs the first chunk with a directive naming the
// missing type, through the same bounded-retry combinator the oracle
// adapter uses. Retry results are never cached: the directive-bearing
// prompt is a recovery path, not the canonical extraction for the chunk.
func (p *Pipeline) retryExpectedType(ctx context.Context, firstChunk string, def *schema.Definition) ([]core.Entity, []string) {
	var valid []core.Entity
	attempt := 0

	err := core.RetryWithBackoff(ctx, func() error {
		attempt++
		p.logger.Debug("retrying for expected entity type",
			"type", p.expectedType,
			"attempt", attempt)

		response, err := p.completer.Complete(ctx, buildRetryPrompt(firstChunk, def, p.expectedType))
		if err != nil {
			return err
		}
		parsed, err := parseResponse(response)
		if err != nil {
			return err
		}

		valid = valid[:0]
		for _, entity := range parsed {
			if ok, _ := schema.ValidateEntity(&entity, def); ok {
				valid = append(valid, entity)
			}
		}
		if !containsType(valid, p.expectedType) {
			return fmt.Errorf("no %s entity extracted", p.expectedType)
		}
		return nil
	}, expectedTypeRetries, core.LinearBackoff(0))

	if err != nil {
		return nil, []string{fmt.Sprintf("expected-type retry failed after %d attempts: %v", attempt, err)}
	}
	return valid, nil
}

func containsType(entities []core.Entity, entityType string) bool {
	for _, entity := range entities {
		if entity.Type == entityType {
			return true
		}
	}
	return false
}
