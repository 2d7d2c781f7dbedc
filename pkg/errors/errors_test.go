package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"parse", NewParseError("message", "abc", "not a number", nil), ErrParse},
		{"validation", NewValidationError("product_level_mm", 90, "below minimum"), ErrValidation},
		{"conversion", NewConversionError(-1, "negative measurement"), ErrConversion},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("apply: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
		})
	}
}

func TestParseErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("unexpected end of JSON input")
	err := NewParseError("GSM", "{", "invalid JSON", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestAppErrorUnwrap(t *testing.T) {
	t.Parallel()

	err := NewAppError("NOT_FOUND", "tank lookup failed", ErrTankNotFound)

	assert.ErrorIs(t, err, ErrTankNotFound)
	assert.Equal(t, "tank lookup failed: tank not found", err.Error())
}
