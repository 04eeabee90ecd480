package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"09171234567", "09171234567", "Local format"},
		{"0917 123 4567", "09171234567", "With spaces"},
		{"0917-123-4567", "09171234567", "With dashes"},
		{"0917.123.4567", "09171234567", "With dots"},
		{"(0917) 123 4567", "09171234567", "With parentheses"},
		{"+63 917 123 4567", "+639171234567", "International"},
		{"  +639171234567 ", "+639171234567", "Surrounding whitespace"},
		{"1234567", "1234567", "Minimum length"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty"},
		{"   ", ErrEmptyPhone, "Whitespace only"},
		{"123456", ErrInvalidLength, "Too short"},
		{"+1234567890123456", ErrInvalidLength, "Too long"},
		{"0917abc4567", ErrInvalidFormat, "Letters"},
		{"0917#1234567", ErrInvalidFormat, "Symbols"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()
	assert.True(t, validator.IsValid("+639171234567"))
	assert.False(t, validator.IsValid("12"))
}
