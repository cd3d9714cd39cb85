package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_FencedJSON(t *testing.T) {
	response := "```json\n{\"entities\": [{\"type\": \"Widget\", \"properties\": {\"name\": \"W\"}}], \"metadata\": {}}\n```"

	entities, err := parseResponse(response)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Widget", entities[0].Type)
	assert.Equal(t, "W", entities[0].Name())
}

func TestParseResponse_RepairsMissingKeyQuote(t *testing.T) {
	response := `{"entities": [{ type": "Widget", "properties": {"name": "W"}}], "metadata": {}}`

	entities, err := parseResponse(response)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Widget", entities[0].Type)
}

func TestParseResponse_ScalarRelationshipBecomesList(t *testing.T) {
	response := `{
	  "entities": [{
	    "type": "Widget",
	    "properties": {"name": "W"},
	    "relationships": {"contains": "[[Gadget]]"}
	  }],
	  "metadata": {}
	}`

	entities, err := parseResponse(response)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"[[Gadget]]"}, entities[0].Relationships["contains"])
}

func TestParseResponse_ConfidenceClamped(t *testing.T) {
	response := `{
	  "entities": [
	    {"type": "A", "properties": {"name": "High"}, "confidence": 1.4},
	    {"type": "A", "properties": {"name": "Low"}, "confidence": -0.2},
	    {"type": "A", "properties": {"name": "None"}}
	  ],
	  "metadata": {}
	}`

	entities, err := parseResponse(response)
	require.NoError(t, err)
	require.Len(t, entities, 3)

	require.NotNil(t, entities[0].Confidence)
	assert.Equal(t, 1.0, *entities[0].Confidence)
	require.NotNil(t, entities[1].Confidence)
	assert.Equal(t, 0.0, *entities[1].Confidence)
	assert.Nil(t, entities[2].Confidence)
}

func TestParseResponse_NotJSON(t *testing.T) {
	_, err := parseResponse("Sure! Here are the entities you asked for.")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseResponse_EmptyEntityList(t *testing.T) {
	entities, err := parseResponse(`{"entities": [], "metadata": {}}`)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestParseResponse_NilPropertiesInitialized(t *testing.T) {
	entities, err := parseResponse(`{"entities": [{"type": "Widget"}], "metadata": {}}`)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.NotNil(t, entities[0].Properties)
	assert.Equal(t, "", entities[0].Name())
}
