package etl

import (
	"fmt"
	"strings"

	"github.com/poiesic/hypha/schema"
)

// buildPrompt assembles the full extraction prompt for one chunk. The
// prompt contains no timestamps or run identifiers so that identical
// (chunk, schema) pairs always produce identical prompts; the extraction
// cache depends on this.
func buildPrompt(chunkText string, def *schema.Definition) string {
	var b strings.Builder

	b.WriteString("Extract structured information from the provided text according to the given schema.\n\n")
	b.WriteString(schema.BuildExtractionPrompt(def))

	b.WriteString(`
EXTRACTION RULES:
1. ALWAYS extract the main subject/title as a primary entity if it matches any schema type
2. Look for explicit type indicators like "this is a [type]" or "[title] is a [type]"
3. Extract secondary entities mentioned in the text
4. Use exact entity names when creating WikiLinks: [[Entity Name]]
5. Include confidence scores for uncertain extractions (0.0 to 1.0)
6. Format relationship values as WikiLinks: "[[Entity Name]]"

CRITICAL: If the text starts with a heading (# Title), that title is ALWAYS the primary entity.

INPUT TEXT:
`)
	b.WriteString(chunkText)

	b.WriteString(`

STEP-BY-STEP PROCESS:
1. Identify the main heading/title (if present)
2. Check if text contains type indicators ("this is a [type]")
3. Extract the main entity first, then secondary entities
4. Create relationships between entities

OUTPUT FORMAT:
Return a JSON object with the following structure:
{
  "entities": [
    {
      "type": "EntityType",
      "properties": {
        "name": "Entity Name",
        "description": "Entity description"
      },
      "relationships": {
        "relationshipName": ["[[Related Entity 1]]", "[[Related Entity 2]]"]
      },
      "confidence": 0.95,
      "source_context": "relevant text snippet"
    }
  ],
  "metadata": {
    "schema_version": "` + def.Version + `",
    "processing_notes": "brief notes about the extraction"
  }
}

Ensure the JSON is valid and properly formatted.
`)

	return b.String()
}

// buildRetryPrompt extends the base prompt with a directive naming the
// entity type the caller expected but did not receive. Used when a source
// declares its own type and the oracle failed to surface it.
func buildRetryPrompt(chunkText string, def *schema.Definition, expectedType string) string {
	var b strings.Builder
	b.WriteString(buildPrompt(chunkText, def))
	fmt.Fprintf(&b, "\nIMPORTANT: A previous attempt missed the primary entity. The text describes a %s. You MUST extract at least one entity of type %s.\n", expectedType, expectedType)
	return b.String()
}
