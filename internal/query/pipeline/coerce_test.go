package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected float64
	}{
		{"nil", nil, 0},
		{"int", 7, 7},
		{"int64", int64(12), 12},
		{"float", 4.5, 4.5},
		{"float32", float32(2.5), 2.5},
		{"json number", json.Number("3.25"), 3.25},
		{"numeric string", "42", 42},
		{"padded string", "  18 ", 18},
		{"percent", "92.5%", 92.5},
		{"thousands separator", "1,250,000", 1250000},
		{"empty string", "", 0},
		{"text", "N/A", 0},
		{"nan", "NaN", 0},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"bytes", []byte("8"), 8},
		{"slice", []string{"x"}, 0},
		{"map", map[string]interface{}{"a": 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.expected, CoerceNumber(tt.input))
			})
		})
	}
}
