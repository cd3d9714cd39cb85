package etl

import (
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/hypha/core"
)

// RunMetadata describes one processing run. It accompanies the entity list
// handed to the rendering collaborator.
type RunMetadata struct {
	RunID         uuid.UUID
	Source        string
	SourceType    string
	SchemaName    string
	SchemaVersion string
	ChunkCount    int
	ExtractedAt   time.Time
	Elapsed       time.Duration
}

// RenderResult reports what the rendering collaborator did with the
// entities it was handed.
type RenderResult struct {
	Generated []string
	Skipped   []string
	Errors    []string
	IndexFile string
}

// Renderer is the note-emission collaborator. The pipeline treats it as an
// opaque sink: entities go in, file reports come out.
type Renderer interface {
	// ProcessEntities renders the final entity list into notes.
	ProcessEntities(entities []core.Entity, meta RunMetadata) (*RenderResult, error)

	// CreateIndex renders an index note linking every entity. Returns the
	// written path, or "" when nothing was generated.
	CreateIndex(entities []core.Entity, meta RunMetadata) (string, error)
}

// Result is the outcome of one pipeline run. Success is false only when
// the run could not proceed past loading or chunking; a successful run may
// still carry a non-empty error list from individual chunks or entities.
type Result struct {
	Success  bool
	Entities []core.Entity
	Errors   []string
	Elapsed  time.Duration
	Metadata RunMetadata
	Render   *RenderResult
}
