package indicators

import (
	_ "embed"
	"strings"

	"medj/internal/labs"
)

//go:embed default_indicators.csv
var defaultCSV string

// Defaults is the built-in dictionary used when no database is configured
// and as the seed of a fresh database.
func Defaults() []labs.IndicatorDefinition {
	defs, err := ReadCSV(strings.NewReader(defaultCSV))
	if err != nil {
		// the embedded file is part of the build
		panic("indicators: invalid embedded dictionary: " + err.Error())
	}
	return defs
}
