package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signup struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Profile  struct {
		Year int `json:"year" validate:"omitempty,min=1,max=5"`
	} `json:"profile"`
}

func TestFormatValidationErrors(t *testing.T) {
	v := NewValidator()

	in := signup{Username: "ab", Email: "nope"}
	in.Profile.Year = 9
	fields := FormatValidationErrors(v.ValidateStruct(in))
	assert.Equal(t, map[string]string{
		"username":     "username must be at least 3 characters",
		"email":        "Invalid email format",
		"profile.year": "year must be at most 5",
	}, fields)

	assert.Empty(t, FormatValidationErrors(nil))
}

func TestValidateUsername(t *testing.T) {
	ok, _ := ValidateUsername("student_1")
	assert.True(t, ok)
	ok, msg := ValidateUsername("bad name")
	assert.False(t, ok)
	assert.Contains(t, msg, "letters, numbers")
}
