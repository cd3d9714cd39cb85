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


package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	entityNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	memberNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)
)

// ValidEntityName reports whether name is usable as an entity type:
// an uppercase letter followed by letters and digits.
func ValidEntityName(name string) bool {
	return entityNamePattern.MatchString(name)
}

// ValidMemberName reports whether name is usable as a property or
// relationship name: a lowercase letter followed by letters, digits, and
// underscores.
func ValidMemberName(name string) bool {
	return memberNamePattern.MatchString(name)
}

// Parser loads schema documents and caches them by source path for the
// duration of a run.
type Parser struct {
	mu      sync.Mutex
	schemas map[string]*Definition
	logger  *slog.Logger
}

// NewParser creates a schema parser with an empty cache.
func NewParser() *Parser {
	return &Parser{
		schemas: make(map[string]*Definition),
		logger:  slog.Default().With("component", "schema-parser"),
	}
}

// Load parses and validates the schema document at path. Structural
// validation runs first and short-circuits; semantic validation assumes a
// well-shaped document. The parsed definition is cached by path.
func (p *Parser) Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaLoad, path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in %s: %v", ErrSchemaLoad, path, err)
	}

	def, structErrs := parseDocument(raw, path)
	if len(structErrs) > 0 {
		return nil, &ValidationError{Message: "schema structure validation failed", Errors: structErrs}
	}

	if semErrs := validateSemantics(def); len(semErrs) > 0 {
		return nil, &ValidationError{Message: "schema semantic validation failed", Errors: semErrs}
	}

	p.mu.Lock()
	p.schemas[path] = def
	p.mu.Unlock()

	p.logger.Info("schema loaded", "path", path, "name", def.Name, "entities", len(def.Entities))
	return def, nil
}

// Get returns the cached schema for path, loading it on first use.
func (p *Parser) Get(path string) (*Definition, error) {
	p.mu.Lock()
	def, ok := p.schemas[path]
	p.mu.Unlock()
	if ok {
		return def, nil
	}
	return p.Load(path)
}

// parseDocument walks the raw document, collecting shape errors and building
// the typed definition in one pass. The returned definition is only
// meaningful when the error list is empty.
func parseDocument(raw map[string]any, path string) (*Definition, []string) {
	var errs []string

	def := &Definition{
		Name:        stringOr(raw, "name", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))),
		Description: stringOr(raw, "description", ""),
		Version:     stringOr(raw, "version", "1.0.0"),
		Entities:    make(map[string]*EntityDefinition),
	}
	if ctx, ok := raw["@context"].(map[string]any); ok {
		def.Context = ctx
	}

	entitiesRaw, ok := raw["entities"]
	if !ok {
		return def, []string{"missing required top-level key 'entities'"}
	}
	entities, ok := entitiesRaw.(map[string]any)
	if !ok {
		return def, []string{"top-level 'entities' must be an object"}
	}

	for name, body := range entities {
		entityBody, ok := body.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("entity '%s' must be an object", name))
			continue
		}
		entity, entityErrs := parseEntity(name, entityBody)
		errs = append(errs, entityErrs...)
		def.Entities[name] = entity
	}

	sort.Strings(errs)
	return def, errs
}

func parseEntity(name string, body map[string]any) (*EntityDefinition, []string) {
	var errs []string

	entity := &EntityDefinition{
		Name:          name,
		Description:   stringOr(body, "description", ""),
		Properties:    make(map[string]*PropertyDef),
		Relationships: make(map[string]*RelationshipDef),
	}

	if propsRaw, ok := body["properties"]; ok {
		props, ok := propsRaw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("entity '%s' properties must be an object", name))
		} else {
			for propName, propBody := range props {
				prop, propErrs := parseProperty(name, propName, propBody)
				errs = append(errs, propErrs...)
				if prop == nil {
					continue
				}
				entity.Properties[propName] = prop
				if prop.Required {
					entity.Required = append(entity.Required, propName)
				}
			}
			sort.Strings(entity.Required)
		}
	}

	if relsRaw, ok := body["relationships"]; ok {
		rels, ok := relsRaw.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("entity '%s' relationships must be an object", name))
		} else {
			for relName, relBody := range rels {
				rel, relErrs := parseRelationship(name, relName, relBody)
				errs = append(errs, relErrs...)
				if rel != nil {
					entity.Relationships[relName] = rel
				}
			}
		}
	}

	return entity, errs
}

func parseProperty(entityName, propName string, body any) (*PropertyDef, []string) {
	def, ok := body.(map[string]any)
	if !ok {
		return nil, []string{fmt.Sprintf("entity '%s' property '%s' must be an object", entityName, propName)}
	}

	var errs []string
	typ, ok := def["type"].(string)
	if !ok {
		errs = append(errs, fmt.Sprintf("entity '%s' property '%s' missing required string 'type'", entityName, propName))
	}

	prop := &PropertyDef{
		Type:        typ,
		Description: stringOr(def, "description", ""),
		Format:      stringOr(def, "format", ""),
		Items:       stringOr(def, "items", ""),
	}
	if required, ok := def["required"].(bool); ok {
		prop.Required = required
	}
	if enumRaw, ok := def["enum"]; ok {
		enumList, ok := enumRaw.([]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("entity '%s' property '%s' enum must be an array", entityName, propName))
		} else {
			for _, v := range enumList {
				prop.Enum = append(prop.Enum, fmt.Sprint(v))
			}
		}
	}
	if n, ok := intField(def, "minLength"); ok {
		prop.MinLength = n
	}
	if n, ok := intField(def, "maxLength"); ok {
		prop.MaxLength = n
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return prop, nil
}

func parseRelationship(entityName, relName string, body any) (*RelationshipDef, []string) {
	def, ok := body.(map[string]any)
	if !ok {
		return nil, []string{fmt.Sprintf("entity '%s' relationship '%s' must be an object", entityName, relName)}
	}

	target, ok := def["target"].(string)
	if !ok {
		return nil, []string{fmt.Sprintf("entity '%s' relationship '%s' missing required string 'target'", entityName, relName)}
	}

	rel := &RelationshipDef{
		Target:      target,
		Description: stringOr(def, "description", ""),
		Inverse:     stringOr(def, "inverse", ""),
	}
	if bidi, ok := def["bidirectional"].(bool); ok {
		rel.Bidirectional = bidi
	}
	return rel, nil
}

// validateSemantics checks naming conventions and cross-references over a
// structurally sound definition. All errors are collected.
func validateSemantics(def *Definition) []string {
	var errs []string

	errs = append(errs, def.validateRelationshipTargets()...)

	for _, entityName := range def.EntityNames() {
		if !entityNamePattern.MatchString(entityName) {
			errs = append(errs, fmt.Sprintf("entity name '%s' must start with an uppercase letter and contain only letters and digits", entityName))
		}
		entity := def.Entities[entityName]
		for _, propName := range entity.PropertyNames() {
			if !memberNamePattern.MatchString(propName) {
				errs = append(errs, fmt.Sprintf("property name '%s' in entity '%s' must start with a lowercase letter and contain only letters, digits, and underscores", propName, entityName))
			}
		}
		for _, relName := range entity.RelationshipNames() {
			if !memberNamePattern.MatchString(relName) {
				errs = append(errs, fmt.Sprintf("relationship name '%s' in entity '%s' must start with a lowercase letter and contain only letters, digits, and underscores", relName, entityName))
			}
		}
	}

	return errs
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return fallback
}

func intField(m map[string]any, key string) (*int, bool) {
	// JSON numbers decode as float64
	if f, ok := m[key].(float64); ok {
		n := int(f)
		return &n, true
	}
	return nil, false
}
