package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RequireFields checks that the named struct fields of v are non-zero.
// AI-written report content is accepted only when the sections the report
// renders are present.
func RequireFields(v interface{}, fields ...string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("JSON_SCHEMA_VIOLATION: expected struct, got %s", rv.Kind())
	}

	var missing []string
	for _, name := range fields {
		f := rv.FieldByName(name)
		if !f.IsValid() {
			return fmt.Errorf("JSON_SCHEMA_VIOLATION: unknown field '%s'", name)
		}
		if f.IsZero() {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("JSON_SCHEMA_VIOLATION: required fields missing or empty: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RepairJSON attempts to fix common JSON errors from LLM outputs
// (unquoted keys, single quotes, trailing commas, unclosed brackets, code fences).
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson allows comments, unquoted keys and strings, and optional commas,
// which makes it suitable for hand-edited assumption files and snapshots.
func ParseHJSON(hjsonData string) (string, error) {
	var result interface{}
	err := hjson.Unmarshal([]byte(hjsonData), &result)
	if err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}

	return string(jsonBytes), nil
}

// SmartParse tries multiple parsing strategies to decode input into schema.
// Order of attempts:
// 1. Standard JSON parse
// 2. JSON repair
// 3. Hjson parse (most lenient)
func SmartParse(input string, schema interface{}) (string, error) {
	// Try 1: Standard JSON
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	// Try 2: JSON Repair
	repaired, err := RepairJSON(input)
	if err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	// Try 3: Hjson
	hjsonResult, err := ParseHJSON(input)
	if err == nil {
		if err := json.Unmarshal([]byte(hjsonResult), schema); err == nil {
			return hjsonResult, nil
		}
	}

	return "", fmt.Errorf("SMART_PARSE_FAILED: all parsing strategies failed for input")
}

// DecodeLenient decodes strict JSON or Hjson into v. Unlike SmartParse it
// never repairs input: it is meant for user-supplied files where a silent
// guess would hide a typo.
func DecodeLenient(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err == nil {
		return nil
	}
	converted, err := ParseHJSON(string(data))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(converted), v); err != nil {
		return fmt.Errorf("JSON_DECODE_ERROR: %v", err)
	}
	return nil
}
