package validate

import "testing"

const objectSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["skill_id"],
  "properties": {
    "skill_id": {"type": "string"},
    "timeout_ms": {"type": "integer", "minimum": 0}
  }
}`

func TestValidate(t *testing.T) {
	schema, err := Compile([]byte(objectSchema))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := Validate(schema, []byte(`{"skill_id":"weather_lookup","timeout_ms":5000}`)); err != nil {
		t.Fatalf("expected valid document, got: %v", err)
	}
	invalid := []string{
		`{"timeout_ms":5000}`,
		`{"skill_id":42}`,
		`{"skill_id":"x","timeout_ms":-1}`,
		`[]`,
	}
	for _, doc := range invalid {
		if err := Validate(schema, []byte(doc)); err == nil {
			t.Fatalf("expected %s to fail validation", doc)
		}
	}
}

func TestCompileRejectsMalformedSchema(t *testing.T) {
	if _, err := Compile([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected compile error")
	}
}
