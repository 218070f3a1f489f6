package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalUnit(t *testing.T) {
	cases := map[string]string{
		"MMOL/L":      "mmol/L",
		"x10^3/ul":    "×10^3/µL",
		"X10E3/UL":    "×10^3/µL",
		"x 10^6 / µl": "×10^6/µL",
		"randomjunk":  "randomjunk",
		"  g/dl. ":    "g/dL",
		"μmol/l":      "µmol/L",
		"umol/L":      "µmol/L",
		"mmol/L M":    "mmol/L",
		"ж g/L":       "g/L",
		"m":           "m",
		"T/L":         "T/L",
		"G/L":         "G/L",
		"":            "",
		" ;, ":        "",
		"g/L (":       "g/L",
		"mmol/L [":    "mmol/L",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalUnit(in), "input %q", in)
	}
}
