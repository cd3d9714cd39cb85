// Package schema parses and validates the declarative entity-type schemas
// that drive extraction.
//
// A schema document declares entity types, their properties, and their
// relationships. It is the ground truth the rest of the pipeline is checked
// against: the prompt builder renders it into extraction instructions for
// the oracle, and the entity validator checks the oracle's output against
// the same definitions.
//
// Validation is two-phase. Structural validation checks the document's
// shape (required keys, per-entity property and relationship form) and
// short-circuits on failure. Semantic validation then checks naming
// conventions and cross-references, most importantly that every
// relationship target names an entity type declared in the same schema.
package schema
