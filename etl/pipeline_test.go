package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/hypha/ai/mock"
	"github.com/poiesic/hypha/cache"
	"github.com/poiesic/hypha/core"
	"github.com/poiesic/hypha/schema"
)

const widgetSchema = `{
  "name": "Widget Catalog",
  "description": "Widgets and gadgets",
  "version": "1.2.0",
  "entities": {
    "Widget": {
      "description": "A widget",
      "properties": {
        "name": {"type": "string", "required": true},
        "description": {"type": "string"}
      },
      "relationships": {
        "contains": {"target": "Gadget", "description": "Component parts"}
      }
    },
    "Gadget": {
      "description": "A gadget",
      "properties": {
        "name": {"type": "string", "required": true}
      }
    }
  }
}`

const widgetResponse = `{
  "entities": [
    {
      "type": "Widget",
      "properties": {"name": "Widget", "description": "A widget that does X."},
      "relationships": {"contains": ["[[Gadget]]"]},
      "confidence": 0.95,
      "source_context": "# Widget"
    },
    {
      "type": "Gadget",
      "properties": {"name": "Gadget"},
      "confidence": 0.9,
      "source_context": "this is a Gadget"
    }
  ],
  "metadata": {"processing_notes": "extracted main entity"}
}`

func writeWidgetSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "widgets.json")
	require.NoError(t, os.WriteFile(path, []byte(widgetSchema), 0644))
	return path
}

func newTestPipeline(t *testing.T, completer *mock.Completer, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(schema.NewParser(), completer, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_RequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(nil, mock.NewCompleter())
	assert.ErrorIs(t, err, ErrSchemaParserRequired)

	_, err = NewPipeline(schema.NewParser(), nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)
}

func TestProcessText_EndToEnd(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = widgetResponse
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(),
		"# Widget\nthis is a Gadget\n\nA widget that does X.",
		writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Entities, 2)
	assert.Equal(t, "Widget", result.Entities[0].Type)
	assert.Equal(t, "Widget", result.Entities[0].Name())
	assert.Equal(t, "Gadget", result.Entities[1].Type)
	assert.Equal(t, 1, completer.CallCount(), "a single chunk needs a single oracle call")

	assert.Equal(t, "Widget Catalog", result.Metadata.SchemaName)
	assert.Equal(t, "1.2.0", result.Metadata.SchemaVersion)
	assert.Equal(t, 1, result.Metadata.ChunkCount)
}

func TestProcessText_CacheHitSkipsOracle(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = widgetResponse
	sharedCache := cache.NewMemory(time.Hour)
	schemaPath := writeWidgetSchema(t)
	input := "# Widget\nthis is a Gadget\n\nA widget that does X."

	p := newTestPipeline(t, completer, WithCache(sharedCache))

	first, err := p.ProcessText(context.Background(), input, schemaPath, "inline")
	require.NoError(t, err)
	require.Equal(t, 1, completer.CallCount())

	second, err := p.ProcessText(context.Background(), input, schemaPath, "inline")
	require.NoError(t, err)

	assert.Equal(t, 1, completer.CallCount(), "identical input and schema must be a cache hit")
	assert.Equal(t, first.Entities, second.Entities)
}

func TestProcessText_QualityThresholdInclusive(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = `{
	  "entities": [
	    {"type": "Gadget", "properties": {"name": "AtThreshold"}, "confidence": 0.7},
	    {"type": "Gadget", "properties": {"name": "Below"}, "confidence": 0.69},
	    {"type": "Gadget", "properties": {"name": "Unscored"}}
	  ],
	  "metadata": {}
	}`
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	names := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		names = append(names, entity.Name())
	}
	assert.Equal(t, []string{"AtThreshold", "Unscored"}, names,
		"the threshold is inclusive and missing confidence defaults to 1.0")
}

func TestProcessText_InvalidResponseAccumulates(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = "I could not produce JSON, sorry."
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.True(t, result.Success, "a bad chunk does not fail the run")
	assert.Empty(t, result.Entities)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "invalid oracle response")
}

func TestProcessText_OracleErrorAccumulates(t *testing.T) {
	completer := mock.NewCompleter()
	completer.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("connection refused")
	}
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Entities)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "connection refused")
}

func TestProcessText_InvalidEntitySkipped(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = `{
	  "entities": [
	    {"type": "Gadget", "properties": {"name": "Good"}, "confidence": 0.9},
	    {"type": "Sprocket", "properties": {"name": "Unknown"}, "confidence": 0.9},
	    {"type": "Gadget", "properties": {}, "confidence": 0.9}
	  ],
	  "metadata": {}
	}`
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Good", result.Entities[0].Name())
	assert.NotEmpty(t, result.Errors, "rejected entities leave a trace in the error list")
}

func TestProcessText_DeduplicatesAcrossChunks(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = `{
	  "entities": [{"type": "Gadget", "properties": {"name": "Shared"}, "confidence": 0.9}],
	  "metadata": {}
	}`
	p := newTestPipeline(t, completer, WithChunkSize(40), WithChunkOverlap(5))

	input := strings.Repeat("The shared gadget appears here. ", 10)
	result, err := p.ProcessText(context.Background(), input, writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.Greater(t, result.Metadata.ChunkCount, 1, "input must span several chunks")
	require.Len(t, result.Entities, 1)
	assert.Equal(t, "Shared", result.Entities[0].Name())
}

func TestProcessText_ParallelMatchesSequential(t *testing.T) {
	response := func(ctx context.Context, prompt string) (string, error) {
		return widgetResponse, nil
	}
	input := strings.Repeat("Widgets contain gadgets. ", 20)
	schemaPath := writeWidgetSchema(t)

	sequential := mock.NewCompleter()
	sequential.CompleteFunc = response
	sp := newTestPipeline(t, sequential, WithChunkSize(60), WithChunkOverlap(10))
	seqResult, err := sp.ProcessText(context.Background(), input, schemaPath, "inline")
	require.NoError(t, err)

	parallel := mock.NewCompleter()
	parallel.CompleteFunc = response
	pp := newTestPipeline(t, parallel, WithChunkSize(60), WithChunkOverlap(10), WithWorkers(4))
	parResult, err := pp.ProcessText(context.Background(), input, schemaPath, "inline")
	require.NoError(t, err)

	assert.Equal(t, seqResult.Entities, parResult.Entities,
		"worker pool output must match document-order processing")
	assert.Equal(t, sequential.CallCount(), parallel.CallCount())
}

func TestProcessText_ExpectedTypeRetry(t *testing.T) {
	completer := mock.NewCompleter()
	completer.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "previous attempt missed") {
			return `{"entities": [{"type": "Widget", "properties": {"name": "Main"}, "confidence": 0.9}], "metadata": {}}`, nil
		}
		return `{"entities": [{"type": "Gadget", "properties": {"name": "Side"}, "confidence": 0.9}], "metadata": {}}`, nil
	}
	p := newTestPipeline(t, completer, WithExpectedEntityType("Widget"))

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.Equal(t, 2, completer.CallCount(), "one base call plus one retry")
	types := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		types = append(types, entity.Type)
	}
	assert.Contains(t, types, "Widget")
	assert.Contains(t, types, "Gadget")
}

func TestProcessText_ExpectedTypeRetryExhausted(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = `{"entities": [{"type": "Gadget", "properties": {"name": "Side"}, "confidence": 0.9}], "metadata": {}}`
	p := newTestPipeline(t, completer, WithExpectedEntityType("Widget"))

	result, err := p.ProcessText(context.Background(), "some text", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.Equal(t, 1+expectedTypeRetries, completer.CallCount())
	assert.True(t, result.Success)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "no Widget entity extracted")
}

func TestProcessText_EmptyInput(t *testing.T) {
	completer := mock.NewCompleter()
	p := newTestPipeline(t, completer)

	result, err := p.ProcessText(context.Background(), "   \n\t ", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Entities)
	assert.Zero(t, completer.CallCount())
	assert.Zero(t, result.Metadata.ChunkCount)
}

func TestProcessText_BadSchemaAborts(t *testing.T) {
	completer := mock.NewCompleter()
	p := newTestPipeline(t, completer)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {"bad name!": {}}}`), 0644))

	result, err := p.ProcessText(context.Background(), "some text", path, "inline")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Zero(t, completer.CallCount())
}

func TestProcessFile_UnsupportedFormat(t *testing.T) {
	completer := mock.NewCompleter()
	p := newTestPipeline(t, completer)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))

	result, err := p.ProcessFile(context.Background(), path, writeWidgetSchema(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
	assert.False(t, result.Success)
}

func TestProcessFile_Markdown(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = widgetResponse
	p := newTestPipeline(t, completer)

	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# Widget\nthis is a Gadget\n"), 0644))

	result, err := p.ProcessFile(context.Background(), path, writeWidgetSchema(t))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "file", result.Metadata.SourceType)
	assert.Equal(t, path, result.Metadata.Source)
	assert.Len(t, result.Entities, 2)
}

type recordingRenderer struct {
	entities []core.Entity
	meta     RunMetadata
	indexed  bool
}

func (r *recordingRenderer) ProcessEntities(entities []core.Entity, meta RunMetadata) (*RenderResult, error) {
	r.entities = entities
	r.meta = meta
	return &RenderResult{Generated: []string{"widget.md", "gadget.md"}}, nil
}

func (r *recordingRenderer) CreateIndex(entities []core.Entity, meta RunMetadata) (string, error) {
	r.indexed = true
	return "index.md", nil
}

func TestProcessText_RendererReceivesFilteredEntities(t *testing.T) {
	completer := mock.NewCompleter()
	completer.Response = widgetResponse
	renderer := &recordingRenderer{}
	p := newTestPipeline(t, completer, WithRenderer(renderer), WithIndexNote(true))

	result, err := p.ProcessText(context.Background(), "# Widget\n", writeWidgetSchema(t), "inline")
	require.NoError(t, err)

	assert.Equal(t, result.Entities, renderer.entities)
	assert.True(t, renderer.indexed)
	require.NotNil(t, result.Render)
	assert.Equal(t, []string{"widget.md", "gadget.md"}, result.Render.Generated)
	assert.Equal(t, "index.md", result.Render.IndexFile)
}
