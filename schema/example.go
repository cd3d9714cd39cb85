package schema

import (
	"encoding/json"
	"os"
)

// WriteExample writes a reference schema document to path. Useful as a
// starting point for new vaults.
func WriteExample(path string) error {
	example := map[string]any{
		"@context": map[string]any{
			"@vocab": "https://schema.org/",
		},
		"name":        "Personal Knowledge Schema",
		"description": "Example schema for extracting personal and professional knowledge",
		"version":     "1.0.0",
		"entities": map[string]any{
			"Person": map[string]any{
				"description": "An individual person",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"required":    true,
						"description": "Full name of the person",
					},
					"email": map[string]any{
						"type":        "string",
						"format":      "email",
						"description": "Email address",
					},
					"role": map[string]any{
						"type":        "string",
						"description": "Professional role or title",
					},
					"expertise": map[string]any{
						"type":        "array",
						"items":       "string",
						"description": "Areas of expertise or specialization",
					},
				},
				"relationships": map[string]any{
					"knows": map[string]any{
						"target":        "Person",
						"description":   "Personal or professional acquaintance",
						"bidirectional": true,
					},
					"worksFor": map[string]any{
						"target":      "Organization",
						"description": "Current employment relationship",
					},
				},
			},
			"Organization": map[string]any{
				"description": "A company, institution, or group",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"required":    true,
						"description": "Organization name",
					},
					"industry": map[string]any{
						"type":        "string",
						"description": "Primary industry or sector",
					},
					"location": map[string]any{
						"type":        "string",
						"description": "Primary location or headquarters",
					},
				},
				"relationships": map[string]any{
					"employs": map[string]any{
						"target":      "Person",
						"description": "Employment relationship",
					},
					"partnersWith": map[string]any{
						"target":      "Organization",
						"description": "Business partnership",
					},
				},
			},
			"Concept": map[string]any{
				"description": "A key concept or idea",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"required":    true,
						"description": "Concept name",
					},
					"definition": map[string]any{
						"type":        "string",
						"description": "Definition or explanation",
					},
					"domain": map[string]any{
						"type":        "string",
						"description": "Domain or field of study",
					},
				},
				"relationships": map[string]any{
					"relatedTo": map[string]any{
						"target":      "Concept",
						"description": "Related concept",
					},
					"exemplifiedBy": map[string]any{
						"target":      "Person",
						"description": "Person who exemplifies this concept",
					},
				},
			},
		},
	}

	data, err := json.MarshalIndent(example, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
