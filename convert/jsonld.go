// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package convert

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/hypha/notes"
	"github.com/poiesic/hypha/schema"
)

// DefaultBaseIRI anchors generated identifiers when none is configured.
const DefaultBaseIRI = "http://hypha.poiesic.com/kg/"

// metadataKeys are frontmatter fields that describe the extraction run
// rather than the entity. They map to fixed terms instead of schema ones.
var metadataKeys = map[string]bool{
	"type":                  true,
	"created":               true,
	"source":                true,
	"extraction_date":       true,
	"extraction_confidence": true,
	"schema_version":        true,
	"tags":                  true,
}

// JSONLD converts note frontmatter into JSON-LD nodes under a schema's
// vocabulary. Not safe for concurrent use: wikilink resolution keeps a
// name-to-IRI table that grows as notes are converted.
type JSONLD struct {
	def          *schema.Definition
	resourceBase string
	ontologyBase string
	iris         map[string]string
	logger       *slog.Logger
}

// NewJSONLD creates a converter for the given schema. baseIRI may be
// empty, in which case DefaultBaseIRI is used.
func NewJSONLD(def *schema.Definition, baseIRI string) *JSONLD {
	if baseIRI == "" {
		baseIRI = DefaultBaseIRI
	}
	if !strings.HasSuffix(baseIRI, "/") {
		baseIRI += "/"
	}
	return &JSONLD{
		def:          def,
		resourceBase: baseIRI + "resource/",
		ontologyBase: baseIRI + "ontology/",
		iris:         make(map[string]string),
		logger:       slog.Default().With("component", "jsonld-converter"),
	}
}

// Context derives a JSON-LD @context from the schema: standard prefixes,
// xsd-typed terms for non-string properties, and @id-typed terms for
// relationships.
func (c *JSONLD) Context() map[string]any {
	context := map[string]any{
		"@vocab":  c.ontologyBase,
		"@base":   c.resourceBase,
		"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
		"owl":     "http://www.w3.org/2002/07/owl#",
		"schema":  "http://schema.org/",
		"dcterms": "http://purl.org/dc/terms/",
		"xsd":     "http://www.w3.org/2001/XMLSchema#",
	}

	for _, entityName := range c.def.EntityNames() {
		entity := c.def.Entities[entityName]

		for _, propName := range entity.PropertyNames() {
			prop := entity.Properties[propName]

			var xsdType string
			switch {
			case prop.Type == "integer":
				xsdType = "xsd:integer"
			case prop.Type == "number":
				xsdType = "xsd:decimal"
			case prop.Type == "boolean":
				xsdType = "xsd:boolean"
			case prop.Format == "date":
				xsdType = "xsd:date"
			case prop.Format == "datetime", prop.Format == "date-time":
				xsdType = "xsd:dateTime"
			default:
				continue
			}
			context[propName] = map[string]any{
				"@id":   c.ontologyBase + propName,
				"@type": xsdType,
			}
		}

		for _, relName := range entity.RelationshipNames() {
			context[relName] = map[string]any{
				"@id":   c.ontologyBase + relName,
				"@type": "@id",
			}
		}
	}
	return context
}

// ConvertNote turns one note's frontmatter into a JSON-LD node. Notes
// without a type, or with a type the schema does not define, are skipped
// with a nil result.
func (c *JSONLD) ConvertNote(frontmatter map[string]any, filename string) map[string]any {
	entityType, _ := frontmatter["type"].(string)
	if entityType == "" {
		c.logger.Warn("note has no entity type", "file", filename)
		return nil
	}
	entityDef := c.def.Entity(entityType)
	if entityDef == nil {
		c.logger.Warn("note has unknown entity type", "file", filename, "type", entityType)
		return nil
	}

	name, _ := frontmatter["name"].(string)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	iri := c.entityIRI(name, entityType)
	c.iris[name] = iri

	node := map[string]any{
		"@id":   iri,
		"@type": c.ontologyBase + entityType,
	}

	for key, value := range frontmatter {
		if metadataKeys[key] {
			continue
		}
		switch {
		case entityDef.Properties[key] != nil:
			node[c.ontologyBase+key] = c.convertProperty(value, entityDef.Properties[key])
		case entityDef.Relationships[key] != nil:
			node[c.ontologyBase+key] = c.convertRelationship(value)
		default:
			c.logger.Debug("unknown frontmatter key", "file", filename, "key", key)
			node[c.ontologyBase+key] = value
		}
	}

	if created, ok := frontmatter["created"]; ok {
		node["http://purl.org/dc/terms/created"] = created
	}
	if date, ok := frontmatter["extraction_date"]; ok {
		node[c.ontologyBase+"extractionDate"] = date
	}
	if conf, ok := frontmatter["extraction_confidence"]; ok {
		node[c.ontologyBase+"extractionConfidence"] = conf
	}
	if source, ok := frontmatter["source"]; ok {
		node[c.ontologyBase+"sourceFile"] = source
	}
	return node
}

// ConvertDirectory walks a vault and converts every markdown note with
// frontmatter. Unconvertible notes are logged and skipped.
func (c *JSONLD) ConvertDirectory(dir string) ([]map[string]any, error) {
	var nodes []map[string]any
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		frontmatter, _, err := notes.ParseFrontmatter(path)
		if err != nil {
			c.logger.Debug("skipping note", "path", path, "err", err)
			return nil
		}
		if node := c.ConvertNote(frontmatter, path); node != nil {
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault %s: %w", dir, err)
	}
	return nodes, nil
}

// Export writes nodes as a @graph document with the schema-derived
// @context.
func (c *JSONLD) Export(nodes []map[string]any, path string) error {
	doc := map[string]any{
		"@context": c.Context(),
		"@graph":   nodes,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *JSONLD) convertProperty(value any, def *schema.PropertyDef) any {
	if list, ok := value.([]any); ok {
		converted := make([]any, len(list))
		for i, item := range list {
			converted[i] = c.convertProperty(item, def)
		}
		return converted
	}

	s, ok := value.(string)
	if !ok {
		return value
	}
	if isWikilink(s) {
		return map[string]any{"@id": c.resolveWikilink(s)}
	}

	// Frontmatter read back from YAML may carry typed values as strings.
	switch def.Type {
	case "integer":
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "boolean":
		switch strings.ToLower(s) {
		case "true", "yes", "1":
			return true
		case "false", "no", "0":
			return false
		}
	}
	return s
}

func (c *JSONLD) convertRelationship(value any) any {
	if list, ok := value.([]any); ok {
		converted := make([]any, len(list))
		for i, item := range list {
			converted[i] = c.convertRelationship(item)
		}
		return converted
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	if isWikilink(s) {
		return map[string]any{"@id": c.resolveWikilink(s)}
	}
	// A bare name is still a reference.
	iri := c.nameIRI(s)
	c.iris[s] = iri
	return map[string]any{"@id": iri}
}

func (c *JSONLD) resolveWikilink(wikilink string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(wikilink, "[["), "]]")
	if iri, ok := c.iris[name]; ok {
		return iri
	}
	iri := c.nameIRI(name)
	c.iris[name] = iri
	return iri
}

func (c *JSONLD) entityIRI(name, entityType string) string {
	return c.resourceBase + entityType + "/" + slugify(name)
}

func (c *JSONLD) nameIRI(name string) string {
	return c.resourceBase + slugify(name)
}

func isWikilink(s string) bool {
	return strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]")
}

// slugify renders an entity name as an IRI path segment: punctuation
// dropped, whitespace runs become a single underscore, the rest
// percent-encoded.
func slugify(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			inSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if inSpace && b.Len() > 0 {
				b.WriteRune('_')
			}
			inSpace = false
			b.WriteRune(r)
		}
	}
	return url.PathEscape(b.String())
}
