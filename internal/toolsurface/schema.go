package toolsurface

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/git-iris/gitiris/internal/girerr"
)

// schemaFor reflects over a struct type and produces a JSON-Schema-shaped
// map[string]any describing its fields, reading `json` tags for property
// names and `desc`/`enum` tags for documentation and enum constraints.
// Every property is additionally listed in "required", the OpenAI
// compatibility invariant spec.md calls out explicitly: providers that
// enforce strict function-calling schemas reject tools where `required`
// omits an optional property, so optionality is expressed by each handler
// tolerating a zero value rather than by omitting the field from required.
func schemaFor(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	props := map[string]any{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			name = strings.Split(tag, ",")[0]
		}
		prop := map[string]any{"type": jsonType(f.Type)}
		if desc := f.Tag.Get("desc"); desc != "" {
			prop["description"] = desc
		}
		if enum := f.Tag.Get("enum"); enum != "" {
			values := strings.Split(enum, "|")
			anyValues := make([]any, len(values))
			for i, v := range values {
				anyValues[i] = v
			}
			prop["enum"] = anyValues
		}
		props[name] = prop
		required = append(required, name)
	}
	sort.Strings(required)
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Ptr:
		return jsonType(t.Elem())
	default:
		return "string"
	}
}

// requireAllProperties is the post-processor spec.md's design notes call
// for in isolation: it asserts that a generated schema's "required" array
// names every key in "properties", so the OpenAI compatibility invariant is
// checked once, centrally, instead of by convention in every tool.
func requireAllProperties(schema map[string]any) error {
	props, _ := schema["properties"].(map[string]any)
	required, _ := schema["required"].([]string)
	want := map[string]bool{}
	for name := range props {
		want[name] = true
	}
	have := map[string]bool{}
	for _, r := range required {
		have[r] = true
	}
	if len(want) != len(have) {
		return girerr.New(girerr.KindConfiguration, "toolsurface.requireAllProperties", "schema required must list every property", nil)
	}
	for name := range want {
		if !have[name] {
			return girerr.New(girerr.KindConfiguration, "toolsurface.requireAllProperties", "schema missing required property "+name, nil)
		}
	}
	return nil
}

// compileSchema validates schema against the JSON-Schema meta-schema using
// jsonschema/v6, the same compile-then-validate idiom the teacher's
// registry service uses to validate tool payloads at call time (here
// applied at registration time, to the schema itself).
func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, girerr.New(girerr.KindConfiguration, "toolsurface.compileSchema", "marshal schema for "+name, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, girerr.New(girerr.KindConfiguration, "toolsurface.compileSchema", "unmarshal schema for "+name, err)
	}
	c := jsonschema.NewCompiler()
	resourceName := name + ".schema.json"
	if err := c.AddResource(resourceName, doc); err != nil {
		return nil, girerr.New(girerr.KindConfiguration, "toolsurface.compileSchema", "add schema resource for "+name, err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, girerr.New(girerr.KindConfiguration, "toolsurface.compileSchema", "compile schema for "+name, err)
	}
	return compiled, nil
}

// validateArgs validates raw JSON tool-call arguments against a compiled
// schema, returning a girerr.KindParse error the runtime can turn into a
// tool-error message for the model to self-correct against.
func validateArgs(schema *jsonschema.Schema, name string, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return girerr.New(girerr.KindParse, "toolsurface.validateArgs", "tool "+name+" arguments are not valid JSON", err)
	}
	if err := schema.Validate(doc); err != nil {
		return girerr.New(girerr.KindParse, "toolsurface.validateArgs", "tool "+name+" arguments failed schema validation", err)
	}
	return nil
}
