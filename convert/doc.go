// Package convert turns a vault of frontmatter-bearing notes into linked
// data: a JSON-LD graph document, or Cypher statements for a property
// graph database. Both converters read the same frontmatter stream and
// resolve [[wikilink]] references against the schema.
//
// The Ontology importer runs the opposite direction: it reads an
// RDF/JSON-LD ontology and derives a schema document from its classes and
// properties.
package convert
