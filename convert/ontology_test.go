package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/hypha/schema"
)

const teamOntology = `{
  "@context": {
    "ht": "http://example.org/team#",
    "rdfs": "http://www.w3.org/2000/01/rdf-schema#",
    "schema": "http://schema.org/"
  },
  "@graph": [
    {
      "@id": "ht:",
      "@type": "owl:Ontology",
      "rdfs:label": "Team Ontology",
      "rdfs:comment": "People and the organizations they work for"
    },
    {
      "@id": "ht:Person",
      "@type": "rdfs:Class",
      "rdfs:label": "Person",
      "rdfs:comment": "A human being"
    },
    {
      "@id": "ht:Organization",
      "@type": "rdfs:Class",
      "rdfs:label": "Organization",
      "rdfs:comment": "A company or institution"
    },
    {
      "@id": "ht:role",
      "@type": "rdf:Property",
      "rdfs:comment": "Current role",
      "schema:domainIncludes": {"@id": "ht:Person"},
      "schema:rangeIncludes": {"@id": "xsd:string"}
    },
    {
      "@id": "ht:age",
      "@type": "rdf:Property",
      "rdfs:label": "Age",
      "schema:domainIncludes": {"@id": "ht:Person"},
      "schema:rangeIncludes": {"@id": "xsd:integer"}
    },
    {
      "@id": "ht:founded",
      "@type": "rdf:Property",
      "schema:domainIncludes": {"@id": "ht:Organization"},
      "schema:rangeIncludes": {"@id": "xsd:date"}
    },
    {
      "@id": "ht:worksFor",
      "@type": "rdf:Property",
      "rdfs:comment": "Employment",
      "schema:domainIncludes": {"@id": "ht:Person"},
      "schema:rangeIncludes": [{"@id": "ht:Organization"}]
    }
  ]
}`

func loadOntology(t *testing.T, document string) *Ontology {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ontology.jsonld")
	require.NoError(t, os.WriteFile(path, []byte(document), 0644))

	importer := NewOntology()
	require.NoError(t, importer.Load(path))
	return importer
}

func TestOntology_LoadMissingFile(t *testing.T) {
	err := NewOntology().Load(filepath.Join(t.TempDir(), "absent.jsonld"))
	assert.ErrorIs(t, err, ErrOntologyLoad)
}

func TestOntology_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonld")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	err := NewOntology().Load(path)
	assert.ErrorIs(t, err, ErrOntologyLoad)
}

func TestOntology_LoadEmptyGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonld")
	require.NoError(t, os.WriteFile(path, []byte(`{"@graph": []}`), 0644))

	err := NewOntology().Load(path)
	assert.ErrorIs(t, err, ErrOntologyLoad)
}

func TestOntology_SchemaFromGraph(t *testing.T) {
	doc := loadOntology(t, teamOntology).Schema()

	assert.Equal(t, "Team Ontology", doc["name"])
	assert.Equal(t, "People and the organizations they work for", doc["description"])

	entities := doc["entities"].(map[string]any)
	require.Contains(t, entities, "Person")
	require.Contains(t, entities, "Organization")

	person := entities["Person"].(map[string]any)
	assert.Equal(t, "A human being", person["description"])

	props := person["properties"].(map[string]any)
	name := props["name"].(map[string]any)
	assert.Equal(t, true, name["required"], "rdfs:label synthesizes a required name property")

	role := props["role"].(map[string]any)
	assert.Equal(t, "string", role["type"])
	assert.Equal(t, "Current role", role["description"])

	age := props["age"].(map[string]any)
	assert.Equal(t, "integer", age["type"])
	assert.Equal(t, "The age", age["description"], "label fills in a missing comment")

	rels := person["relationships"].(map[string]any)
	worksFor := rels["worksFor"].(map[string]any)
	assert.Equal(t, "Organization", worksFor["target"], "a class-valued range becomes a relationship")
	assert.NotContains(t, props, "worksFor")

	org := entities["Organization"].(map[string]any)
	founded := org["properties"].(map[string]any)["founded"].(map[string]any)
	assert.Equal(t, "string", founded["type"])
	assert.Equal(t, "date", founded["format"])
}

func TestOntology_SkipsBuiltinsAndUnusableNames(t *testing.T) {
	document := `{
	  "@graph": [
	    {"@id": "rdfs:Class", "@type": "rdfs:Class"},
	    {"@id": "http://example.org/x#lower_case", "@type": "rdfs:Class"},
	    {"@id": "http://example.org/x#Thing", "@type": "rdfs:Class"},
	    {
	      "@id": "http://example.org/x#has-part",
	      "@type": "rdf:Property",
	      "schema:domainIncludes": {"@id": "http://example.org/x#Thing"}
	    }
	  ]
	}`
	doc := loadOntology(t, document).Schema()

	entities := doc["entities"].(map[string]any)
	assert.Contains(t, entities, "Thing")
	assert.NotContains(t, entities, "Class")
	assert.NotContains(t, entities, "lower_case")

	thing := entities["Thing"].(map[string]any)
	assert.Empty(t, thing["properties"], "a hyphenated property name cannot be imported")
}

func TestOntology_ExplicitNamePropertyStaysRequired(t *testing.T) {
	document := `{
	  "@context": {"ht": "http://example.org/team#"},
	  "@graph": [
	    {"@id": "ht:Person", "@type": "rdfs:Class", "rdfs:label": "Person"},
	    {
	      "@id": "ht:name",
	      "@type": "rdf:Property",
	      "rdfs:comment": "Canonical full name",
	      "schema:domainIncludes": {"@id": "ht:Person"},
	      "schema:rangeIncludes": {"@id": "xsd:string"}
	    }
	  ]
	}`
	doc := loadOntology(t, document).Schema()

	person := doc["entities"].(map[string]any)["Person"].(map[string]any)
	name := person["properties"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, true, name["required"])
	assert.Equal(t, "Canonical full name", name["description"])
}

func TestOntology_ExportedSchemaLoads(t *testing.T) {
	importer := loadOntology(t, teamOntology)

	out := filepath.Join(t.TempDir(), "team.json")
	require.NoError(t, importer.Export(out))

	def, err := schema.NewParser().Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Team Ontology", def.Name)
	require.NotNil(t, def.Entity("Person"))
	assert.Equal(t, "Organization", def.Entity("Person").Relationships["worksFor"].Target)
	assert.True(t, def.Entity("Person").IsRequired("name"))
}
