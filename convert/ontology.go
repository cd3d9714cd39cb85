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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/hypha/schema"
)

// ErrOntologyLoad indicates the ontology document could not be read or
// parsed as JSON-LD.
var ErrOntologyLoad = errors.New("failed to load ontology")

const (
	rdfNS  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	rdfsNS = "http://www.w3.org/2000/01/rdf-schema#"
	owlNS  = "http://www.w3.org/2002/07/owl#"
	xsdNS  = "http://www.w3.org/2001/XMLSchema#"
)

// wellKnownPrefixes resolves compact terms in documents that do not bind
// their own prefixes.
var wellKnownPrefixes = map[string]string{
	"rdf":     rdfNS,
	"rdfs":    rdfsNS,
	"owl":     owlNS,
	"xsd":     xsdNS,
	"schema":  "http://schema.org/",
	"dc":      "http://purl.org/dc/elements/1.1/",
	"dcterms": "http://purl.org/dc/terms/",
	"foaf":    "http://xmlns.com/foaf/0.1/",
	"skos":    "http://www.w3.org/2004/02/skos/core#",
	"prov":    "http://www.w3.org/ns/prov#",
}

// xsdPropertyTypes maps XSD datatype local names to property type and
// format in the schema document.
var xsdPropertyTypes = map[string]struct{ typ, format string }{
	"string":   {typ: "string"},
	"integer":  {typ: "integer"},
	"decimal":  {typ: "number"},
	"float":    {typ: "number"},
	"double":   {typ: "number"},
	"boolean":  {typ: "boolean"},
	"date":     {typ: "string", format: "date"},
	"dateTime": {typ: "string", format: "datetime"},
	"anyURI":   {typ: "string", format: "uri"},
}

// Ontology imports an RDF/JSON-LD ontology and derives a schema document
// from it: rdfs:Class definitions become entity types, rdf:Property
// definitions become properties or relationships depending on whether
// their range is one of the imported classes. The result is the inverse
// direction of JSONLD: ontology in, schema out.
type Ontology struct {
	nodes    []map[string]any
	prefixes map[string]string
	logger   *slog.Logger
}

// NewOntology creates an empty importer. Call Load before Schema.
func NewOntology() *Ontology {
	prefixes := make(map[string]string, len(wellKnownPrefixes))
	for prefix, ns := range wellKnownPrefixes {
		prefixes[prefix] = ns
	}
	return &Ontology{
		prefixes: prefixes,
		logger:   slog.Default().With("component", "ontology-importer"),
	}
}

// Load reads a JSON-LD ontology document. The node list may sit in a
// top-level @graph, be the document's top-level array, or the document may
// be a single node. Prefixes bound in @context override the well-known
// defaults.
func (c *Ontology) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOntologyLoad, path, err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: invalid JSON in %s: %v", ErrOntologyLoad, path, err)
	}

	switch doc := raw.(type) {
	case []any:
		c.nodes = nodeList(doc)
	case map[string]any:
		if ctx, ok := doc["@context"].(map[string]any); ok {
			for prefix, value := range ctx {
				if ns, ok := value.(string); ok {
					c.prefixes[prefix] = ns
				}
			}
		}
		if graph, ok := doc["@graph"].([]any); ok {
			c.nodes = nodeList(graph)
		} else if _, ok := doc["@id"]; ok {
			c.nodes = []map[string]any{doc}
		}
	}
	if len(c.nodes) == 0 {
		return fmt.Errorf("%w: %s contains no nodes", ErrOntologyLoad, path)
	}

	c.logger.Info("ontology loaded", "path", path, "nodes", len(c.nodes))
	return nil
}

// Schema derives a schema document from the loaded ontology. The result
// is the raw document shape consumed by schema.Parser; callers validate
// it by loading it.
func (c *Ontology) Schema() map[string]any {
	entities := make(map[string]any)
	classIRIs := make(map[string]string)
	nameFromLabel := make(map[string]bool)

	// Classes first: properties can only attach to known entity types, and
	// a relationship is recognized by its range naming one of them.
	for _, node := range c.nodes {
		if !c.hasType(node, rdfsNS+"Class", owlNS+"Class") {
			continue
		}
		iri := c.expand(stringValue(node["@id"]))
		if iri == "" || c.builtinIRI(iri) {
			continue
		}
		name := c.localName(iri)
		if !schema.ValidEntityName(name) {
			c.logger.Warn("skipping class with unusable entity name", "iri", iri, "name", name)
			continue
		}

		properties := make(map[string]any)
		if label := c.literal(node, rdfsNS+"label"); label != "" {
			properties["name"] = map[string]any{
				"type":        "string",
				"required":    true,
				"description": "Name of the " + strings.ToLower(name),
			}
			nameFromLabel[name] = true
		}
		entities[name] = map[string]any{
			"description":   c.literal(node, rdfsNS+"comment"),
			"properties":    properties,
			"relationships": make(map[string]any),
		}
		classIRIs[iri] = name
	}

	for _, node := range c.nodes {
		if !c.hasType(node, rdfNS+"Property", owlNS+"ObjectProperty", owlNS+"DatatypeProperty") {
			continue
		}
		iri := c.expand(stringValue(node["@id"]))
		if iri == "" || c.builtinIRI(iri) {
			continue
		}
		propName := c.localName(iri)
		if !schema.ValidMemberName(propName) {
			c.logger.Warn("skipping property with unusable member name", "iri", iri, "name", propName)
			continue
		}

		comment := c.literal(node, rdfsNS+"comment")
		label := c.literal(node, rdfsNS+"label")
		if label == "" {
			label = propName
		}

		targetEntity := ""
		propType, propFormat := "string", ""
		for _, r := range c.refs(node, "http://schema.org/rangeIncludes", "https://schema.org/rangeIncludes") {
			if name, ok := classIRIs[r]; ok {
				targetEntity = name
				break
			}
			if mapped, ok := xsdPropertyTypes[strings.TrimPrefix(r, xsdNS)]; strings.HasPrefix(r, xsdNS) && ok {
				propType, propFormat = mapped.typ, mapped.format
			}
		}

		for _, d := range c.refs(node, "http://schema.org/domainIncludes", "https://schema.org/domainIncludes") {
			domainName, ok := classIRIs[d]
			if !ok {
				c.logger.Warn("property domain is not an imported class", "property", propName, "domain", d)
				continue
			}
			entity := entities[domainName].(map[string]any)

			if targetEntity != "" {
				description := comment
				if description == "" {
					description = "Related " + strings.ToLower(targetEntity)
				}
				entity["relationships"].(map[string]any)[propName] = map[string]any{
					"target":      targetEntity,
					"description": description,
				}
				continue
			}

			description := comment
			if description == "" {
				description = "The " + strings.ToLower(label)
			}
			prop := map[string]any{
				"type":        propType,
				"description": description,
				"required":    false,
			}
			if propFormat != "" {
				prop["format"] = propFormat
			}
			props := entity["properties"].(map[string]any)
			if propName == "name" && nameFromLabel[domainName] {
				// An explicit name property replaces the one synthesized
				// from rdfs:label, but stays required.
				prop["required"] = true
			}
			props[propName] = prop
		}
	}

	doc := map[string]any{
		"name":        "Converted Schema",
		"description": "Schema converted from an RDF/JSON-LD ontology",
		"version":     "1.0.0",
		"entities":    entities,
	}
	for _, node := range c.nodes {
		if !c.hasType(node, owlNS+"Ontology") {
			continue
		}
		if label := c.literal(node, rdfsNS+"label"); label != "" {
			doc["name"] = label
		}
		if comment := c.literal(node, rdfsNS+"comment"); comment != "" {
			doc["description"] = comment
		}
		break
	}
	return doc
}

// Export writes the derived schema document, then loads it back through
// the parser so a structurally or semantically broken result fails here
// instead of at extraction time.
func (c *Ontology) Export(path string) error {
	data, err := json.MarshalIndent(c.Schema(), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	if _, err := schema.NewParser().Load(path); err != nil {
		return fmt.Errorf("derived schema is not loadable: %w", err)
	}
	return nil
}

// hasType reports whether the node's @type (string or array) names any of
// the given IRIs, compared after prefix expansion.
func (c *Ontology) hasType(node map[string]any, iris ...string) bool {
	var types []string
	switch t := node["@type"].(type) {
	case string:
		types = []string{t}
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
	}
	for _, typ := range types {
		expanded := c.expand(typ)
		for _, iri := range iris {
			if expanded == iri {
				return true
			}
		}
	}
	return false
}

// refs collects @id references for any of the given predicate IRIs. Values
// may be a bare string, a node reference object, or an array of either.
func (c *Ontology) refs(node map[string]any, predicates ...string) []string {
	var out []string
	collect := func(value any) {
		switch v := value.(type) {
		case string:
			out = append(out, c.expand(v))
		case map[string]any:
			if id := stringValue(v["@id"]); id != "" {
				out = append(out, c.expand(id))
			}
		case []any:
			for _, item := range v {
				switch ref := item.(type) {
				case string:
					out = append(out, c.expand(ref))
				case map[string]any:
					if id := stringValue(ref["@id"]); id != "" {
						out = append(out, c.expand(id))
					}
				}
			}
		}
	}
	for key, value := range node {
		expanded := c.expand(key)
		for _, p := range predicates {
			if expanded == p {
				collect(value)
			}
		}
	}
	return out
}

// literal returns the first literal value for the predicate, unwrapping
// @value objects.
func (c *Ontology) literal(node map[string]any, predicate string) string {
	for key, value := range node {
		if c.expand(key) != predicate {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case map[string]any:
			return stringValue(v["@value"])
		case []any:
			for _, item := range v {
				switch lit := item.(type) {
				case string:
					return lit
				case map[string]any:
					if s := stringValue(lit["@value"]); s != "" {
						return s
					}
				}
			}
		}
	}
	return ""
}

// expand resolves a compact prefix:local term to a full IRI. Full IRIs and
// unknown prefixes pass through unchanged.
func (c *Ontology) expand(term string) string {
	if term == "" || strings.Contains(term, "://") {
		return term
	}
	prefix, local, ok := strings.Cut(term, ":")
	if !ok {
		return term
	}
	if ns, ok := c.prefixes[prefix]; ok {
		return ns + local
	}
	return term
}

// localName extracts the trailing segment of an IRI: a bound prefix's
// remainder, the fragment, or the last path element.
func (c *Ontology) localName(iri string) string {
	for _, ns := range c.prefixes {
		if strings.HasPrefix(iri, ns) {
			return strings.TrimPrefix(iri, ns)
		}
	}
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}

// builtinIRI reports whether the IRI belongs to the RDF, RDFS, or OWL
// vocabularies themselves rather than the imported ontology.
func (c *Ontology) builtinIRI(iri string) bool {
	return strings.HasPrefix(iri, rdfNS) || strings.HasPrefix(iri, rdfsNS) || strings.HasPrefix(iri, owlNS)
}

func nodeList(items []any) []map[string]any {
	var nodes []map[string]any
	for _, item := range items {
		if node, ok := item.(map[string]any); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
