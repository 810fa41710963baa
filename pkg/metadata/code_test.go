package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppealCode(t *testing.T) {
	tests := []struct {
		name     string
		number   int64
		expected string
	}{
		{
			name:     "First appeal",
			number:   1,
			expected: "APP000001",
		},
		{
			name:     "Padded number",
			number:   4210,
			expected: "APP004210",
		},
		{
			name:     "Overflowing width",
			number:   12345678,
			expected: "APP12345678",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewAppealCode(tt.number).String())
		})
	}
}

func TestInventoryCodeFormat(t *testing.T) {
	assert.Equal(t, "INV000007", NewInventoryCode(7).String())
	assert.Regexp(t, `^INV\d{6,}$`, NewInventoryCode(99).String())
}

func TestParseCode(t *testing.T) {
	code, err := ParseCode(AppealPrefix, "APP000042")
	require.NoError(t, err)
	assert.Equal(t, int64(42), code.Number())
	assert.Equal(t, "APP000042", code.String())

	for _, invalid := range []string{"INV000042", "APP42", "APPabcdef", "APP000000"} {
		_, err := ParseCode(AppealPrefix, invalid)
		assert.Error(t, err, invalid)
	}
}
