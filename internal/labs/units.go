package labs

import (
	"regexp"
	"strings"
)

const (
	unitThousandPerMicroliter = "×10^3/µL"
	unitMillionPerMicroliter  = "×10^6/µL"
)

// unitAliases is keyed by the lower-cased token with every micro sign
// folded to U+00B5.
var unitAliases = map[string]string{
	"g/dl":      "g/dL",
	"mg/dl":     "mg/dL",
	"µg/dl":     "µg/dL",
	"ug/dl":     "µg/dL",
	"ng/ml":     "ng/mL",
	"pg/ml":     "pg/mL",
	"ng/dl":     "ng/dL",
	"mg/l":      "mg/L",
	"µg/l":      "µg/L",
	"ug/l":      "µg/L",
	"µg/ml":     "µg/mL",
	"ug/ml":     "µg/mL",
	"iu/l":      "IU/L",
	"iu/ml":     "IU/mL",
	"miu/l":     "mIU/L",
	"miv/l":     "mIU/L",
	"m1u/l":     "mIU/L",
	"mlu/l":     "mIU/L",
	"µiu/ml":    "µIU/mL",
	"uiu/ml":    "µIU/mL",
	"u/l":       "U/L",
	"ku/l":      "kU/L",
	"mmol/l":    "mmol/L",
	"mol/l":     "mol/L",
	"meq/l":     "mEq/L",
	"µmol/l":    "µmol/L",
	"umol/l":    "µmol/L",
	"nmol/l":    "nmol/L",
	"pmol/l":    "pmol/L",
	"mm/h":      "mm/h",
	"mm/hr":     "mm/h",
	"fl":        "fL",
	"µl":        "µL",
	"ul":        "µL",
	"pg":        "pg",
	"%":         "%",
	"‰":         "‰",
	"o/oo":      "‰",
	"x10^3/µl":  unitThousandPerMicroliter,
	"x10^3/ul":  unitThousandPerMicroliter,
	"x10e3/µl":  unitThousandPerMicroliter,
	"x10.e3/µl": unitThousandPerMicroliter,
	"x10^6/µl":  unitMillionPerMicroliter,
	"x10^6/ul":  unitMillionPerMicroliter,
	"10^3/µl":   unitThousandPerMicroliter,
	"10^6/µl":   unitMillionPerMicroliter,
}

var exponentUnits = []struct {
	re    *regexp.Regexp
	canon string
}{
	{regexp.MustCompile(`(?i)^(?:x|×|\*)?\s*10\s*[.eE^*]*\s*3\s*/\s*(?:µ|μ|u)?l$`), unitThousandPerMicroliter},
	{regexp.MustCompile(`(?i)^(?:x|×|\*)?\s*10\s*[.eE^*]*\s*6\s*/\s*(?:µ|μ|u)?l$`), unitMillionPerMicroliter},
}

// sexQualifiers leak into the unit column when OCR merges the
// male/female reference columns.
var sexQualifiers = map[string]bool{
	"m": true, "k": true, "f": true, "w": true,
	"м": true, "ж": true, "к": true,
	"мъже": true, "жени": true, "мъж": true, "жена": true,
	"male": true, "female": true, "men": true, "women": true,
}

var microReplacer = strings.NewReplacer("μ", "µ")

// CanonicalUnit maps a raw unit token to its canonical spelling. Tokens no
// rule recognises come back cleaned but otherwise untouched.
func CanonicalUnit(raw string) string {
	t := cleanUnitToken(raw)
	if t == "" {
		return ""
	}
	t = microReplacer.Replace(t)
	if canon, ok := unitAliases[strings.ToLower(t)]; ok {
		return canon
	}
	compact := strings.Join(strings.Fields(t), "")
	if canon, ok := unitAliases[strings.ToLower(compact)]; ok {
		return canon
	}
	for _, eu := range exponentUnits {
		if eu.re.MatchString(t) {
			return eu.canon
		}
	}
	return t
}

const openBrackets = "([{"

func cleanUnitToken(raw string) string {
	t := strings.TrimSpace(raw)
	t = strings.TrimRight(t, " \t.,;:-"+openBrackets)
	t = strings.TrimLeft(t, " \t,;:")
	fields := strings.Fields(t)
	if len(fields) > 1 {
		kept := fields[:0:0]
		for _, f := range fields {
			if sexQualifiers[strings.ToLower(strings.Trim(f, ".:,;()"))] {
				continue
			}
			kept = append(kept, f)
		}
		if len(kept) > 0 {
			fields = kept
		}
	}
	return strings.Join(fields, " ")
}
