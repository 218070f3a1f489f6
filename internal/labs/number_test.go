package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	v, ok := ParseFloat("3,70")
	require.True(t, ok)
	assert.InDelta(t, 3.70, v, 1e-9)

	v, ok = ParseFloat(" 12.5 mmol")
	require.True(t, ok)
	assert.InDelta(t, 12.5, v, 1e-9)

	v, ok = ParseFloat("-4,2")
	require.True(t, ok)
	assert.InDelta(t, -4.2, v, 1e-9)

	for _, raw := range []string{"<abc>", "", "1,234.5", "..", "-"} {
		_, ok := ParseFloat(raw)
		assert.False(t, ok, "raw %q", raw)
	}
	assert.Nil(t, ParseFloatPtr("n/a"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "", FormatNumber(nil))
	assert.Equal(t, "5", FormatNumber(floatPtr(5)))
	assert.Equal(t, "3.46", FormatNumber(floatPtr(3.456)))
	assert.Equal(t, "3.1", FormatNumber(floatPtr(3.10)))
	assert.Equal(t, "-2.5", FormatNumber(floatPtr(-2.5)))
	assert.Equal(t, "0", FormatNumber(floatPtr(-0.001)))
}
