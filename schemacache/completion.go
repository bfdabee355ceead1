package schemacache

import (
	"strings"

	"github.com/Nikunjmattoo/bot-framework-sub000/domain"
	"github.com/Nikunjmattoo/bot-framework-sub000/schemaregistry"
)

// deriveKeyState computes one key's completion status from a raw fetched
// value per spec.md §4.4's per-key completion_logic table.
func deriveKeyState(def schemaregistry.KeyDefinition, value any) KeyState {
	switch def.CompletionLogic {
	case domain.CompletionNonEmpty:
		return deriveNonEmpty(value)
	case domain.CompletionNestedObject:
		return deriveNestedObject(def, value)
	case domain.CompletionArrayNonEmpty:
		return deriveArrayNonEmpty(value)
	case domain.CompletionEnumValue:
		return deriveEnumValue(def, value)
	default:
		return KeyState{Status: domain.KeyNone, Value: value}
	}
}

func deriveNonEmpty(value any) KeyState {
	if isEmptyValue(value) {
		return KeyState{Status: domain.KeyNone, Value: value}
	}
	return KeyState{Status: domain.KeyComplete, Value: value}
}

func deriveNestedObject(def schemaregistry.KeyDefinition, value any) KeyState {
	obj, ok := value.(map[string]any)
	if !ok || obj == nil {
		return KeyState{Status: domain.KeyNone, Value: value}
	}
	for _, sub := range def.RequiredSubkeys {
		if isEmptyValue(obj[sub]) {
			return KeyState{Status: domain.KeyIncomplete, Value: value}
		}
	}
	return KeyState{Status: domain.KeyComplete, Value: value}
}

func deriveArrayNonEmpty(value any) KeyState {
	arr, ok := value.([]any)
	if !ok || arr == nil {
		return KeyState{Status: domain.KeyIncomplete, Value: value}
	}
	if len(arr) == 0 {
		return KeyState{Status: domain.KeyIncomplete, Value: value}
	}
	return KeyState{Status: domain.KeyComplete, Value: value}
}

func deriveEnumValue(def schemaregistry.KeyDefinition, value any) KeyState {
	if isEmptyValue(value) {
		return KeyState{Status: domain.KeyNone, Value: value}
	}
	str, _ := value.(string)
	for _, allowed := range def.AllowedValues {
		if strings.EqualFold(allowed, str) {
			return KeyState{Status: domain.KeyComplete, Value: value}
		}
	}
	return KeyState{Status: domain.KeyIncomplete, Value: value}
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
