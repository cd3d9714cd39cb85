package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validSchema = `{
  "name": "Test Schema",
  "description": "A schema for tests",
  "version": "2.1.0",
  "entities": {
    "Person": {
      "description": "An individual person",
      "properties": {
        "name": {"type": "string", "required": true, "description": "Full name"},
        "age": {"type": "integer"},
        "status": {"type": "string", "enum": ["active", "inactive"]}
      },
      "relationships": {
        "worksFor": {"target": "Organization", "description": "Employment"}
      }
    },
    "Organization": {
      "description": "A company or group",
      "properties": {
        "name": {"type": "string", "required": true}
      }
    }
  }
}`

func TestLoad_ValidSchema(t *testing.T) {
	parser := NewParser()
	def, err := parser.Load(writeSchema(t, validSchema))
	require.NoError(t, err)

	assert.Equal(t, "Test Schema", def.Name)
	assert.Equal(t, "2.1.0", def.Version)
	assert.Equal(t, []string{"Organization", "Person"}, def.EntityNames())

	person := def.Entity("Person")
	require.NotNil(t, person)
	assert.Equal(t, []string{"name"}, person.Required)
	assert.True(t, person.IsRequired("name"))
	assert.False(t, person.IsRequired("age"))
	assert.Equal(t, "integer", person.Properties["age"].Type)
	assert.Equal(t, []string{"active", "inactive"}, person.Properties["status"].Enum)
	assert.Equal(t, "Organization", person.Relationships["worksFor"].Target)
}

func TestLoad_Defaults(t *testing.T) {
	parser := NewParser()
	path := filepath.Join(t.TempDir(), "minimal.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entities": {}}`), 0644))

	def, err := parser.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", def.Name, "name defaults to the file stem")
	assert.Equal(t, "1.0.0", def.Version)
}

func TestLoad_MissingFile(t *testing.T) {
	parser := NewParser()
	_, err := parser.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaLoad)
}

func TestLoad_InvalidJSON(t *testing.T) {
	parser := NewParser()
	_, err := parser.Load(writeSchema(t, `{"entities": `))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaLoad)
}

func TestLoad_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing entities",
			content: `{"name": "x"}`,
			want:    "missing required top-level key 'entities'",
		},
		{
			name:    "entities not object",
			content: `{"entities": []}`,
			want:    "top-level 'entities' must be an object",
		},
		{
			name:    "entity not object",
			content: `{"entities": {"Person": 3}}`,
			want:    "entity 'Person' must be an object",
		},
		{
			name:    "property missing type",
			content: `{"entities": {"Person": {"properties": {"name": {"required": true}}}}}`,
			want:    "entity 'Person' property 'name' missing required string 'type'",
		},
		{
			name:    "relationship missing target",
			content: `{"entities": {"Person": {"relationships": {"knows": {"description": "x"}}}}}`,
			want:    "entity 'Person' relationship 'knows' missing required string 'target'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			_, err := parser.Load(writeSchema(t, tt.content))
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "schema structure validation failed", verr.Message)
			assert.Contains(t, verr.Errors, tt.want)
		})
	}
}

func TestLoad_DanglingRelationshipTarget(t *testing.T) {
	content := `{
	  "entities": {
	    "Person": {
	      "properties": {"name": {"type": "string", "required": true}},
	      "relationships": {"worksFor": {"target": "Company"}}
	    }
	  }
	}`
	parser := NewParser()
	_, err := parser.Load(writeSchema(t, content))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema semantic validation failed", verr.Message)
	require.Len(t, verr.Errors, 1)
	assert.Contains(t, verr.Errors[0], "worksFor")
	assert.Contains(t, verr.Errors[0], "Company")
}

func TestLoad_NamingConventions(t *testing.T) {
	content := `{
	  "entities": {
	    "person": {
	      "properties": {"Name": {"type": "string"}},
	      "relationships": {"WorksFor": {"target": "person"}}
	    }
	  }
	}`
	parser := NewParser()
	_, err := parser.Load(writeSchema(t, content))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3, "entity, property, and relationship names all violate conventions")
}

func TestLoad_StructuralShortCircuitsSemantic(t *testing.T) {
	// A dangling target and a shape error together: only the shape error
	// is reported, since semantic checks assume a well-shaped document.
	content := `{
	  "entities": {
	    "Person": {
	      "properties": {"name": {"required": true}},
	      "relationships": {"worksFor": {"target": "Company"}}
	    }
	  }
	}`
	parser := NewParser()
	_, err := parser.Load(writeSchema(t, content))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schema structure validation failed", verr.Message)
}

func TestGet_CachesByPath(t *testing.T) {
	parser := NewParser()
	path := writeSchema(t, validSchema)

	first, err := parser.Get(path)
	require.NoError(t, err)

	// Remove the file; the cached definition must still be served.
	require.NoError(t, os.Remove(path))
	second, err := parser.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestWriteExample_LoadsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	require.NoError(t, WriteExample(path))

	parser := NewParser()
	def, err := parser.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Concept", "Organization", "Person"}, def.EntityNames())
}
