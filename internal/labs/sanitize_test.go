package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"dashes", "3,9–6,1 and 4—5 and 1−2", "3,9-6,1 and 4-5 and 1-2"},
		{"percent misread after digit", "Hct 45-96", "Hct 45 %"},
		{"percent misread after word", "Неутрофили-96 60", "Неутрофили % 60"},
		{"real number after dash kept", "Range 10-960", "Range 10-960"},
		{"pipes", "HGB | 120 | g/L", "HGB   120   g/L"},
		{"smart quotes", "“Лаб” ‘x’", `"Лаб" 'x'`},
		{"combining mark composes", "a\u0301", "\u00e1"},
		{"stray combining mark", "x\u0301y", "xy"},
		{"precomposed cyrillic kept", "Калий", "Калий"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"Еритроцити 4.87 T/L 3.70–5.4\r\n",
		"a-96b-96c",
		"MCV-96-96",
		"|| x |\r\r",
		"Лимфоцити 35,2-96 20 – 40",
		"\u0301\u0301leading marks",
		"«quoted» — dash − minus",
		"\u1100\u00AD\u1161 5.1",
		"\u1100\u0301\u1161 5.1",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeComposesAcrossRemovedRunes(t *testing.T) {
	assert.Equal(t, "\uAC00 5.1", Sanitize("\u1100\u00AD\u1161 5.1"))
}
