package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractionPrompt(t *testing.T) {
	parser := NewParser()
	def, err := parser.Load(writeSchema(t, validSchema))
	require.NoError(t, err)

	prompt := BuildExtractionPrompt(def)

	assert.Contains(t, prompt, "SCHEMA: Test Schema")
	assert.Contains(t, prompt, "ENTITY TYPES:")
	assert.Contains(t, prompt, "Person:")
	assert.Contains(t, prompt, "- name (string) (REQUIRED): Full name")
	assert.Contains(t, prompt, "- age (integer)")
	assert.Contains(t, prompt, "Allowed values: active, inactive")
	assert.Contains(t, prompt, "- worksFor -> Organization: Employment")
}

func TestBuildExtractionPrompt_Deterministic(t *testing.T) {
	parser := NewParser()
	def, err := parser.Load(writeSchema(t, validSchema))
	require.NoError(t, err)

	// Map iteration order must not leak into the prompt: the cache
	// fingerprints (chunk, schema) pairs and depends on this stability.
	first := BuildExtractionPrompt(def)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, BuildExtractionPrompt(def))
	}
}
