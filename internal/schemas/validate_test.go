package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkpointPayload struct {
	Role              string   `json:"role"`
	Level             string   `json:"level"`
	InterviewedBefore bool     `json:"interviewed_before"`
	TargetAreas       []string `json:"target_areas"`
}

func TestValidateCheckpoint(t *testing.T) {
	tests := []struct {
		name      string
		payload   any
		wantError bool
		field     string
	}{
		{
			name:    "valid with areas",
			payload: checkpointPayload{Role: "Engineer", Level: "Senior", InterviewedBefore: true, TargetAreas: []string{"Confidence"}},
		},
		{
			name:    "valid empty areas",
			payload: checkpointPayload{Role: "Engineer", Level: "Intern", TargetAreas: []string{}},
		},
		{
			name:      "empty role",
			payload:   checkpointPayload{Level: "Senior", TargetAreas: []string{}},
			wantError: true,
			field:     "role",
		},
		{
			name:      "unknown level",
			payload:   checkpointPayload{Role: "Engineer", Level: "Principal", TargetAreas: []string{}},
			wantError: true,
			field:     "level",
		},
		{
			name:      "null areas",
			payload:   checkpointPayload{Role: "Engineer", Level: "Lead"},
			wantError: true,
			field:     "target_areas",
		},
		{
			name:      "duplicate areas",
			payload:   checkpointPayload{Role: "Engineer", Level: "Lead", TargetAreas: []string{"Confidence", "Confidence"}},
			wantError: true,
			field:     "target_areas",
		},
		{
			name:      "extra field",
			payload:   map[string]any{"role": "x", "level": "Lead", "interviewed_before": false, "target_areas": []string{}, "email": "a@b.c"},
			wantError: true,
			field:     "(root)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCheckpoint(tt.payload)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "error should be ValidationError type")
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, ValidateConfig([]byte(`{"port": 9090, "session_ttl": "30m", "notify_to": ["team@example.com"]}`)))
	assert.NoError(t, ValidateConfig([]byte(`{}`)))

	err := ValidateConfig([]byte(`{"port": 0}`))
	require.Error(t, err)

	err = ValidateConfig([]byte(`{"reveal_dwell": "soon"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reveal_dwell")

	err = ValidateConfig([]byte(`{"unknown": true}`))
	assert.Error(t, err)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{ not a schema`, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "(string schema)", loadErr.Path)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Errors: []FieldError{{Field: "role", Message: "too short"}}}
	assert.Equal(t, "validation failed:\n  1. role: too short\n", err.Error())
}

func TestEmbeddedSchemas(t *testing.T) {
	assert.Contains(t, CheckpointSchema(), `"interviewed_before"`)
	assert.Contains(t, ConfigSchema(), `"session_ttl"`)
}
