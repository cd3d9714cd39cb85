// Package notes renders extracted entities as a vault of linked markdown
// notes: one note per entity with YAML frontmatter, plus an optional index
// note grouping entities by type. Relationships are rendered as [[wikilink]]
// references so the vault forms a navigable graph.
package notes
