// Package indicators owns the lab indicator dictionary: CSV import,
// persistence and the process-wide lookup snapshot.
package indicators

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"

	"medj/internal/labs"
)

var log = logrus.WithField("component", "indicators")

// ErrNoNameColumn is returned for a CSV without a name_bg or name_en column.
var ErrNoNameColumn = errors.New("indicators: CSV must contain column name_bg or name_en")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate delimiters in preference order
var delimiters = []rune{';', ',', '|', '\t'}

var (
	colNameBG  = []string{"name_bg", "bg", "namebg", "name"}
	colNameEN  = []string{"name_en", "en", "nameen"}
	colUnit    = []string{"unit", "units"}
	colLow     = []string{"reference_low", "ref_low", "low"}
	colHigh    = []string{"reference_high", "ref_high", "high"}
	colAliases = []string{"aliases", "alias", "aka"}
)

// gendered columns are consulted only when the generic one is empty
var (
	colLowGendered  = []string{"ref_low_m", "ref_low_f", "reference_low_male", "reference_low_female", "low_m", "low_f"}
	colHighGendered = []string{"ref_high_m", "ref_high_f", "reference_high_male", "reference_high_female", "high_m", "high_f"}
)

var aliasSeparators = strings.NewReplacer(";", ",", "|", ",", "/", ",")

// ReadCSV parses an indicator dictionary export. The encoding (UTF-8 with or
// without BOM, else Windows-1251) and the delimiter are detected.
func ReadCSV(r io.Reader) ([]labs.IndicatorDefinition, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text, encoding, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoNameColumn
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := newColumns(header)
	if cols.index(colNameBG) < 0 && cols.index(colNameEN) < 0 {
		return nil, ErrNoNameColumn
	}

	var defs []labs.IndicatorDefinition
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if def, ok := cols.definition(rec); ok {
			defs = append(defs, def)
		}
	}

	log.WithFields(logrus.Fields{
		"encoding":    encoding,
		"delimiter":   string(cr.Comma),
		"definitions": len(defs),
	}).Info("📥 indicator CSV parsed")
	return defs, nil
}

func decodeText(raw []byte) (text, encoding string, err error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return string(raw[len(utf8BOM):]), "utf-8-sig", nil
	}
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("decode windows-1251: %w", err)
	}
	return string(decoded), "windows-1251", nil
}

// sniffDelimiter picks the candidate that occurs most often on the header
// line. Ties keep the earlier candidate; no candidate at all means ';'.
func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	best, bestCount := ';', 0
	for _, d := range delimiters {
		if n := strings.Count(first, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// SplitAliases splits an alias cell on , ; | and /.
func SplitAliases(s string) []string {
	var out []string
	for _, part := range strings.Split(aliasSeparators.Replace(s), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// --------------------------------------------------
// Column mapping
// --------------------------------------------------

type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := c[h]; !dup {
			c[h] = i
		}
	}
	return c
}

func (c columns) index(names []string) int {
	for _, n := range names {
		if i, ok := c[n]; ok {
			return i
		}
	}
	return -1
}

func (c columns) cell(rec []string, names []string) string {
	i := c.index(names)
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// bound reads the generic bound column, falling back to the gendered ones.
// With several gendered values the widest one is used.
func (c columns) bound(rec []string, generic, gendered []string, low bool) *float64 {
	if v := labs.ParseFloatPtr(c.cell(rec, generic)); v != nil {
		return v
	}
	var out *float64
	for _, name := range gendered {
		v := labs.ParseFloatPtr(c.cell(rec, []string{name}))
		if v == nil {
			continue
		}
		if out == nil || (low && *v < *out) || (!low && *v > *out) {
			out = v
		}
	}
	return out
}

func (c columns) definition(rec []string) (labs.IndicatorDefinition, bool) {
	bg := c.cell(rec, colNameBG)
	en := c.cell(rec, colNameEN)

	def := labs.IndicatorDefinition{
		Name:    bg,
		Unit:    c.cell(rec, colUnit),
		RefLow:  c.bound(rec, colLow, colLowGendered, true),
		RefHigh: c.bound(rec, colHigh, colHighGendered, false),
		Aliases: SplitAliases(c.cell(rec, colAliases)),
	}
	switch {
	case bg == "" && en == "":
		return labs.IndicatorDefinition{}, false
	case bg == "":
		def.Name = en
	case en != "" && !strings.EqualFold(en, bg):
		def.Names = []string{en}
	}
	return def, true
}
