package validation

import (
	"testing"

	"portfolio-api/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name     string `json:"name" validate:"not_blank,max=10"`
	Email    string `json:"email" validate:"required,email"`
	Kind     string `json:"kind,omitempty" validate:"omitempty,oneof=bug idea"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
}

func TestCentralizedValidator_ValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		payload samplePayload
		wantErr string
	}{
		{
			name:    "valid payload",
			payload: samplePayload{Name: "Ada", Email: "ada@example.com", Kind: "idea", Rating: 5},
		},
		{
			name:    "blank name",
			payload: samplePayload{Name: "   ", Email: "ada@example.com", Rating: 3},
			wantErr: "field 'name' is required",
		},
		{
			name:    "bad email uses json name",
			payload: samplePayload{Name: "Ada", Email: "nope", Rating: 3},
			wantErr: "field 'email' must be a valid email address",
		},
		{
			name:    "string length message",
			payload: samplePayload{Name: "Ada Lovelace!", Email: "ada@example.com", Rating: 3},
			wantErr: "field 'name' must be at most 10 characters",
		},
		{
			name:    "numeric bound message",
			payload: samplePayload{Name: "Ada", Email: "ada@example.com", Rating: 9},
			wantErr: "field 'rating' must be at most 5",
		},
		{
			name:    "oneof message",
			payload: samplePayload{Name: "Ada", Email: "ada@example.com", Kind: "rant", Rating: 1},
			wantErr: "field 'kind' must be one of: bug idea",
		},
	}

	v := NewCentralizedValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.payload)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCentralizedValidator_MultipleErrors(t *testing.T) {
	err := ValidateStruct(samplePayload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed:")
	assert.Contains(t, err.Error(), "field 'name' is required")
	assert.Contains(t, err.Error(), "field 'email' is required")
	assert.Contains(t, err.Error(), "field 'rating' must be at least 1")
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar(51.5, "latitude"))
	assert.Error(t, ValidateVar("91", "latitude"))
	assert.NoError(t, ValidateVar("owner@example.com", "email"))
	assert.Error(t, ValidateVar("owner", "email"))
}

func TestParseSchedule(t *testing.T) {
	for _, spec := range []string{"*/10 * * * *", "0 3 * * 1", "@hourly", "@every 5m"} {
		_, err := ParseSchedule(spec)
		assert.NoError(t, err, spec)
	}
	for _, spec := range []string{"", "* * * * * *", "61 * * * *"} {
		_, err := ParseSchedule(spec)
		assert.Error(t, err, spec)
	}
}

func TestFluentValidator(t *testing.T) {
	err := NewFluentValidatorWithPrefix("config").
		RequireString("8080", "PORT").
		RequirePositive(10, "REDIS_POOL_SIZE").
		RequireRange(3, 0, 15, "REDIS_DB").
		RequireURL("https://api.example.com/v1", "NEWS_API_URL").
		RequireOneOf("json", []string{"console", "json"}, "LOG_FORMAT").
		RequireSchedule("*/15 * * * *", "WARM_SCHEDULE").
		Error()
	assert.NoError(t, err)

	fv := NewFluentValidatorWithPrefix("config").
		RequireString(" ", "PORT").
		RequireRange(20, 0, 15, "REDIS_DB").
		RequireURL("ftp://example.com", "NEWS_API_URL").
		RequireSchedule("nope", "WARM_SCHEDULE").
		ValidateIf(false, func() error { return errors.ConfigError("skipped") })

	err = fv.Error()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "config: PORT is required")
	assert.Contains(t, err.Error(), "REDIS_DB must be between 0 and 15")
	assert.Contains(t, err.Error(), "NEWS_API_URL must be a valid http(s) URL")
	assert.Contains(t, err.Error(), "WARM_SCHEDULE must be a valid cron schedule")
	assert.NotContains(t, err.Error(), "skipped")
}
