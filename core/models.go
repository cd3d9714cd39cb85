package core

import "strings"

// Entity is a typed record extracted from text by the oracle. Its shape is
// driven by the schema at runtime, so properties are carried as a loose bag
// and only constrained by the validator.
type Entity struct {
	// Type names an entity type declared in the schema.
	Type string

	// Properties maps property names to values as decoded from the oracle's
	// JSON output (string, float64, bool, []any).
	Properties map[string]any

	// Relationships maps relationship names to raw reference tokens in
	// "[[Entity Name]]" form. A scalar value from the oracle is normalized
	// to a one-element slice during response parsing.
	Relationships map[string][]string

	// Confidence is the oracle's score in [0.0, 1.0]. Nil means the oracle
	// did not score the entity; the quality filter treats that as 1.0.
	Confidence *float64

	// SourceContext is a free-text snippet of the input the entity was
	// extracted from.
	SourceContext string
}

// Name returns the entity's "name" property, or "" when absent or not a string.
func (e *Entity) Name() string {
	if e.Properties == nil {
		return ""
	}
	name, _ := e.Properties["name"].(string)
	return name
}

// ConfidenceOrDefault returns the confidence score, defaulting unscored
// entities to full confidence.
func (e *Entity) ConfidenceOrDefault() float64 {
	if e.Confidence == nil {
		return 1.0
	}
	return *e.Confidence
}

// EntityKey is the identity used for deduplication.
type EntityKey struct {
	Type string
	Name string
}

// Key returns the (type, name) identity of the entity.
func (e *Entity) Key() EntityKey {
	return EntityKey{Type: e.Type, Name: e.Name()}
}

// Reference is a parsed reference token: a named link to another entity,
// not yet resolved to an address. Resolution happens in the rendering and
// conversion stages.
type Reference struct {
	Name string
}

// ParseReference parses a "[[Entity Name]]" token into a Reference.
// The token must be bracketed and name a non-blank entity.
func ParseReference(token string) (Reference, error) {
	if !strings.HasPrefix(token, "[[") || !strings.HasSuffix(token, "]]") || len(token) < 4 {
		return Reference{}, ErrMalformedReference
	}
	name := strings.TrimSpace(token[2 : len(token)-2])
	if name == "" {
		return Reference{}, ErrMalformedReference
	}
	return Reference{Name: name}, nil
}

// String renders the reference back into token form.
func (r Reference) String() string {
	return "[[" + r.Name + "]]"
}
