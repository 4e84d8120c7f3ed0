package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// inferSchema builds a best-effort schema for auto-register (development
// mode only, spec §4.1). Only JSON payloads can be inferred this way —
// Avro and protobuf payloads require an author-supplied schema, so those
// callers must pre-register rather than rely on auto-register.
func inferSchema(payload interface{}) (domain.SchemaFormat, string, error) {
	if payload == nil {
		return "", "", fmt.Errorf("cannot infer a schema from a nil payload")
	}

	v := reflect.ValueOf(payload)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", "", fmt.Errorf("auto-register only supports struct payloads, got %s", v.Kind())
	}

	schema := jsonSchemaFor(v.Type())
	b, err := json.Marshal(schema)
	if err != nil {
		return "", "", fmt.Errorf("marshal inferred schema: %w", err)
	}
	return domain.FormatJSON, string(b), nil
}

func jsonSchemaFor(t reflect.Type) map[string]interface{} {
	properties := make(map[string]interface{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		properties[name] = map[string]interface{}{"type": jsonTypeFor(f.Type)}
	}
	return map[string]interface{}{
		"type":       "object",
		"title":      t.Name(),
		"properties": properties,
	}
}

func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return f.Name
	}
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return f.Name
			}
			return tag[:i]
		}
	}
	return tag
}

func jsonTypeFor(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return "string"
	}
}
