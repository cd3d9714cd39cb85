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
	"fmt"
	"math"

	"github.com/poiesic/hypha/core"
)

// ValidateEntity checks an extracted entity against the schema. Validation
// failures are data, not errors: the run continues past a bad entity, so
// all defects are collected and returned with an overall verdict.
//
// Only two conditions short-circuit: a missing type field and an unknown
// entity type. No other check is meaningful without a resolved definition.
//
// Type checking is deliberately lenient. The oracle's output is loosely
// typed, so a value the validator does not recognize as a wrong type is
// allowed through. Properties not declared in the schema pass untouched.
func ValidateEntity(entity *core.Entity, def *Definition) (bool, []string) {
	var errs []string

	if entity.Type == "" {
		return false, []string{"entity missing 'type' field"}
	}
	entityDef := def.Entity(entity.Type)
	if entityDef == nil {
		return false, []string{fmt.Sprintf("unknown entity type: %s", entity.Type)}
	}

	for _, required := range entityDef.Required {
		if _, ok := entity.Properties[required]; !ok {
			errs = append(errs, fmt.Sprintf("missing required property: %s", required))
		}
	}

	for _, propName := range entityDef.PropertyNames() {
		value, ok := entity.Properties[propName]
		if !ok {
			continue
		}
		errs = append(errs, validatePropertyValue(propName, value, entityDef.Properties[propName])...)
	}

	for relName, targets := range entity.Relationships {
		if _, ok := entityDef.Relationships[relName]; !ok {
			errs = append(errs, fmt.Sprintf("unknown relationship: %s", relName))
			continue
		}
		// No targets means no relationship asserted, not a malformed one.
		if len(targets) == 0 {
			continue
		}
		for _, target := range targets {
			if _, err := core.ParseReference(target); err != nil {
				errs = append(errs, fmt.Sprintf("relationship '%s' target '%s' is not a [[Entity Name]] reference", relName, target))
			}
		}
	}

	return len(errs) == 0, errs
}

func validatePropertyValue(name string, value any, def *PropertyDef) []string {
	var errs []string

	switch def.Type {
	case "string":
		if _, ok := value.(string); !ok {
			errs = append(errs, fmt.Sprintf("property '%s' should be string, got %T", name, value))
		}
	case "integer":
		if !isInteger(value) {
			errs = append(errs, fmt.Sprintf("property '%s' should be integer, got %T", name, value))
		}
	case "number":
		if !isNumber(value) {
			errs = append(errs, fmt.Sprintf("property '%s' should be number, got %T", name, value))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			errs = append(errs, fmt.Sprintf("property '%s' should be boolean, got %T", name, value))
		}
	case "array":
		if _, ok := value.([]any); !ok {
			errs = append(errs, fmt.Sprintf("property '%s' should be array, got %T", name, value))
		}
	}

	if len(def.Enum) > 0 {
		member := false
		rendered := fmt.Sprint(value)
		for _, allowed := range def.Enum {
			if rendered == allowed {
				member = true
				break
			}
		}
		if !member {
			errs = append(errs, fmt.Sprintf("property '%s' value '%v' not in allowed values", name, value))
		}
	}

	if s, ok := value.(string); ok {
		if def.MinLength != nil && len(s) < *def.MinLength {
			errs = append(errs, fmt.Sprintf("property '%s' too short (min: %d)", name, *def.MinLength))
		}
		if def.MaxLength != nil && len(s) > *def.MaxLength {
			errs = append(errs, fmt.Sprintf("property '%s' too long (max: %d)", name, *def.MaxLength))
		}
	}

	return errs
}

// isInteger accepts native ints and float64 values with no fractional part,
// since JSON numbers always decode as float64.
func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == math.Trunc(v)
	default:
		return false
	}
}

func isNumber(value any) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
