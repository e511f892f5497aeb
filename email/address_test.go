package email

import (
	"errors"
	"testing"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		description   string
		input         string
		expected      Address
		shouldBeError bool
	}{
		{
			description: "bare address",
			input:       "me@example.com",
			expected:    Address{Email: "me@example.com"},
		},
		{
			description: "display name",
			input:       "Jane Doe <jane@example.com>",
			expected:    Address{Name: "Jane Doe", Email: "jane@example.com"},
		},
		{
			description: "display name with several words",
			input:       "Mary Jane Doe <mary@example.com>",
			expected:    Address{Name: "Mary Jane Doe", Email: "mary@example.com"},
		},
		{
			description: "quoted display name",
			input:       `"Doe, Jane" <jane@example.com>`,
			expected:    Address{Name: "Doe, Jane", Email: "jane@example.com"},
		},
		{
			description: "quoted display name with an escaped quote",
			input:       `"Jane \"JD\" Doe" <jane@example.com>`,
			expected:    Address{Name: `Jane "JD" Doe`, Email: "jane@example.com"},
		},
		{
			description: "surrounding whitespace",
			input:       "  me@example.com\t",
			expected:    Address{Email: "me@example.com"},
		},
		{description: "empty", input: "", shouldBeError: true},
		{description: "blank", input: "   ", shouldBeError: true},
		{description: "no domain", input: "not an address", shouldBeError: true},
		{description: "unclosed angle bracket", input: "Jane <jane@example.com", shouldBeError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			a, err := ParseAddress(tc.input)
			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status--wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}
			if tc.shouldBeError {
				assert.True(t, errors.Is(err, mailerr.ErrAddress), err)
				return
			}
			assert.Equal(t, tc.expected, a)
		})
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "me@example.com", Address{Email: "me@example.com"}.String())
	assert.Equal(t, `"Jane Doe" <jane@example.com>`, Address{Name: "Jane Doe", Email: "jane@example.com"}.String())
	assert.Equal(t, "example.com", Address{Email: "me@example.com"}.Domain())
	assert.Equal(t, "", Address{Email: "nobody"}.Domain())
}
