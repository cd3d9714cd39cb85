package etl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/hypha/core"
)

// envelope mirrors the JSON object the oracle is instructed to return.
type envelope struct {
	Entities []entityPayload `json:"entities"`
	Metadata map[string]any  `json:"metadata"`
}

type entityPayload struct {
	Type          string         `json:"type"`
	Properties    map[string]any `json:"properties"`
	Relationships map[string]any `json:"relationships"`
	Confidence    *float64       `json:"confidence"`
	SourceContext string         `json:"source_context"`
}

// parseResponse decodes an oracle completion into entities. Markdown code
// fences are stripped and common key-quoting mistakes repaired before
// decoding. Relationship values arrive as either a scalar or a list; both
// normalize to a list. Confidence values outside [0, 1] are clamped.
func parseResponse(response string) ([]core.Entity, error) {
	// Strip markdown code fences if present
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	text = repairJSON(text)

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	entities := make([]core.Entity, 0, len(env.Entities))
	for _, p := range env.Entities {
		entity := core.Entity{
			Type:          p.Type,
			Properties:    p.Properties,
			SourceContext: p.SourceContext,
			Confidence:    clampConfidence(p.Confidence),
		}
		if entity.Properties == nil {
			entity.Properties = map[string]any{}
		}
		if len(p.Relationships) > 0 {
			entity.Relationships = make(map[string][]string, len(p.Relationships))
			for name, raw := range p.Relationships {
				entity.Relationships[name] = normalizeTargets(raw)
			}
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func clampConfidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

// normalizeTargets coerces a decoded relationship value into a string
// slice. Oracles sometimes return a bare string where a list was asked
// for; non-string elements are rendered with fmt.Sprint rather than
// dropped so validation can report them.
func normalizeTargets(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		targets := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				targets = append(targets, s)
			} else {
				targets = append(targets, fmt.Sprint(item))
			}
		}
		return targets
	case nil:
		return nil
	default:
		return []string{fmt.Sprint(v)}
	}
}
