package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

type signup struct {
	Username string `validate:"required,min=3,max=50,username"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

func Test_ValidateStruct(t *testing.T) {
	tests := []struct {
		name   string
		in     signup
		errors int
	}{
		{"valid", signup{"gopher_1", "gopher@example.com", "Secret123"}, 0},
		{"leading digit", signup{"1gopher", "gopher@example.com", "Secret123"}, 1},
		{"short username", signup{"go", "gopher@example.com", "Secret123"}, 1},
		{"weak password", signup{"gopher", "gopher@example.com", "secret"}, 1},
		{"everything wrong", signup{"", "nope", "short"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			assert.Len(t, multierr.Errors(err), tt.errors)
		})
	}
}

func Test_StrongPassword(t *testing.T) {
	assert := assert.New(t)
	assert.True(StrongPassword("Abcdefg1"))
	assert.False(StrongPassword("Abcdef1"))
	assert.False(StrongPassword("abcdefg1"))
	assert.False(StrongPassword("ABCDEFG1"))
	assert.False(StrongPassword("Abcdefgh"))
}
