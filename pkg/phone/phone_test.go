package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"+55 (11) 99988-7766", "5511999887766"},
		{"5511999887766", "5511999887766"},
		{"55 11 9998 87766", "5511999887766"},
		{"wa:+5511999887766", "5511999887766"},
		{"abc", ""},
		{"", ""},
		{"+", ""},
		{"00 11", "0011"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Normalize(tc.input), "input %q", tc.input)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"+55 (11) 99988-7766", "5511999887766", "  11 2345-6789"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestIsNormalized(t *testing.T) {
	assert.True(t, IsNormalized("5511999887766"))
	assert.False(t, IsNormalized("+5511999887766"))
	assert.False(t, IsNormalized(""))
	assert.False(t, IsNormalized("55 11"))
}

func TestDisplay(t *testing.T) {
	// Valid E.164 digits format internationally.
	assert.Equal(t, "+55 11 99988-7766", Display("5511999887766"))

	// Unparseable keys fall back to the raw key, never an error.
	assert.Equal(t, "123", Display("123"))
	assert.Equal(t, "", Display(""))
}
