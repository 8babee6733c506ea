package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"query_type": {Type: "string", Enum: []string{"count_query", "ranking"}},
			"confidence": {Type: "number", Minimum: Float(0), Maximum: Float(1)},
			"entities": {
				Type: "object",
				Properties: map[string]Property{
					"limit": {Type: "integer", Minimum: Float(1)},
				},
			},
		},
		Required:             []string{"query_type"},
		AdditionalProperties: true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		document   map[string]interface{}
		valid      bool
		errorField string
	}{
		{
			name:     "valid payload",
			document: map[string]interface{}{"query_type": "ranking", "confidence": 0.9, "entities": map[string]interface{}{"limit": 5}},
			valid:    true,
		},
		{
			name:       "missing required",
			document:   map[string]interface{}{"confidence": 0.5},
			errorField: "(root)",
		},
		{
			name:       "enum violation",
			document:   map[string]interface{}{"query_type": "poem"},
			errorField: "query_type",
		},
		{
			name:       "confidence above range",
			document:   map[string]interface{}{"query_type": "ranking", "confidence": 1.5},
			errorField: "confidence",
		},
		{
			name:       "nested limit below minimum",
			document:   map[string]interface{}{"query_type": "ranking", "entities": map[string]interface{}{"limit": 0}},
			errorField: "entities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Validate(testSchema(), tt.document)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.True(t, result.HasErrors(tt.errorField), "errors: %v", result.GetErrorMessages())
			}
		})
	}
}

func TestValidateJSON(t *testing.T) {
	schema := `{"type": "object", "required": ["query"], "properties": {"query": {"type": "string", "minLength": 1}}}`

	result, err := ValidateJSON(schema, []byte(`{"query": "Top 5 performers"}`))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = ValidateJSON(schema, []byte(`{"query": ""}`))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.GetErrorMessages())

	_, err = ValidateJSON(schema, []byte(`{not json`))
	assert.Error(t, err)
}

func TestStripNulls(t *testing.T) {
	doc := map[string]interface{}{
		"a": nil,
		"b": map[string]interface{}{"c": nil, "d": 1.0},
		"e": []interface{}{nil, "x"},
	}

	out := StripNulls(doc).(map[string]interface{})

	assert.NotContains(t, out, "a")
	assert.Equal(t, map[string]interface{}{"d": 1.0}, out["b"])
	assert.Equal(t, []interface{}{"x"}, out["e"])
}
