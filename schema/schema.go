package schema

import (
	"slices"
	"sort"
)

// Definition is a complete parsed schema: the set of entity types available
// to the extraction pipeline. Immutable after load.
type Definition struct {
	Name        string
	Description string
	Version     string
	Context     map[string]any
	Entities    map[string]*EntityDefinition
}

// EntityDefinition declares one entity type: its properties, relationships,
// and which properties the oracle must always supply.
type EntityDefinition struct {
	Name          string
	Description   string
	Properties    map[string]*PropertyDef
	Relationships map[string]*RelationshipDef
	Required      []string
}

// PropertyDef declares a single property's type and constraints.
type PropertyDef struct {
	Type        string
	Description string
	Required    bool
	Format      string
	Enum        []string
	Items       string
	MinLength   *int
	MaxLength   *int
}

// RelationshipDef declares a typed link from one entity type to another.
// Target must name an entity type declared in the same schema.
type RelationshipDef struct {
	Target        string
	Description   string
	Bidirectional bool
	Inverse       string
}

// EntityNames returns all entity type names in sorted order.
func (d *Definition) EntityNames() []string {
	names := make([]string, 0, len(d.Entities))
	for name := range d.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entity returns the definition for the named entity type, or nil.
func (d *Definition) Entity(name string) *EntityDefinition {
	return d.Entities[name]
}

// validateRelationshipTargets reports every relationship whose target does
// not name an entity type in this schema.
func (d *Definition) validateRelationshipTargets() []string {
	var errs []string
	for _, entityName := range d.EntityNames() {
		entity := d.Entities[entityName]
		for _, relName := range entity.RelationshipNames() {
			target := entity.Relationships[relName].Target
			if _, ok := d.Entities[target]; !ok {
				errs = append(errs, "entity '"+entityName+"' relationship '"+relName+"' references unknown target '"+target+"'")
			}
		}
	}
	return errs
}

// PropertyNames returns all property names in sorted order.
func (e *EntityDefinition) PropertyNames() []string {
	names := make([]string, 0, len(e.Properties))
	for name := range e.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RelationshipNames returns all relationship names in sorted order.
func (e *EntityDefinition) RelationshipNames() []string {
	names := make([]string, 0, len(e.Relationships))
	for name := range e.Relationships {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether the named property is required.
func (e *EntityDefinition) IsRequired(property string) bool {
	return slices.Contains(e.Required, property)
}
