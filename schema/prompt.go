package schema

import (
	"fmt"
	"strings"
)

// BuildExtractionPrompt renders the schema into instruction text for the
// oracle. Output is deterministic for a given schema: entities, properties,
// and relationships are rendered in sorted order. The extraction cache
// folds the schema into its fingerprint, so any instability here would
// silently poison cache keys.
func BuildExtractionPrompt(def *Definition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SCHEMA: %s\n", def.Name)
	fmt.Fprintf(&b, "Description: %s\n", def.Description)
	b.WriteString("\nENTITY TYPES:\n")

	for _, entityName := range def.EntityNames() {
		entity := def.Entities[entityName]

		fmt.Fprintf(&b, "\n%s:\n", entityName)
		if entity.Description != "" {
			fmt.Fprintf(&b, "  Description: %s\n", entity.Description)
		}

		if len(entity.Properties) > 0 {
			b.WriteString("  Properties:\n")
			for _, propName := range entity.PropertyNames() {
				prop := entity.Properties[propName]
				required := ""
				if entity.IsRequired(propName) {
					required = " (REQUIRED)"
				}
				typ := prop.Type
				if typ == "" {
					typ = "string"
				}
				fmt.Fprintf(&b, "    - %s (%s)%s: %s\n", propName, typ, required, prop.Description)
				if len(prop.Enum) > 0 {
					fmt.Fprintf(&b, "      Allowed values: %s\n", strings.Join(prop.Enum, ", "))
				}
			}
		}

		if len(entity.Relationships) > 0 {
			b.WriteString("  Relationships:\n")
			for _, relName := range entity.RelationshipNames() {
				rel := entity.Relationships[relName]
				fmt.Fprintf(&b, "    - %s -> %s: %s\n", relName, rel.Target, rel.Description)
			}
		}
	}

	return b.String()
}
