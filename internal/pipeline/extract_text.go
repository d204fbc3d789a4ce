package pipeline

import (
	"fmt"
	"regexp"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"lectorgastos/internal"
	"lectorgastos/internal/util"
)

const (
	dateWindow       = 150
	dateWindowStep   = 100
	dateFallbackSpan = 2000
	maxLineRunes     = 500
	maxConceptRunes  = 200
	// dateTokenReach bounds how far a window edge moves to finish a token; it
	// covers the longest date form ("17 septiembre 2026").
	dateTokenReach = 20
)

var (
	reNumericLine = regexp.MustCompile(`^\d+[\-/.]?\d*[\-/.]?\d*$`)
	reAmountLine  = regexp.MustCompile(`^\$?\s*[\d,.]+\s*$`)
)

// findDate scans text in overlapping windows so the earliest date wins. Window
// edges move up to dateTokenReach runes to finish a token so a date is never cut in half.
func findDate(text string) (time.Time, bool) {
	r := []rune(text)
	if len(r) == 0 {
		return time.Time{}, false
	}
	for i := 0; i < len(r); i += dateWindowStep {
		start, end := i, min(i+dateWindow, len(r))
		for floor := max(0, i-dateTokenReach); start > floor && !unicode.IsSpace(r[start-1]); {
			start--
		}
		for ceil := min(len(r), i+dateWindow+dateTokenReach); end < ceil && !unicode.IsSpace(r[end]); {
			end++
		}
		if d, ok := util.ParseDate(string(r[start:end])); ok {
			return d, true
		}
	}
	return util.ParseDate(string(r[:min(len(r), dateFallbackSpan)]))
}

func documentDate(text string, now time.Time) time.Time {
	if d, ok := findDate(text); ok {
		return d
	}
	return now
}

// extractLines turns every line carrying a positive amount into an item. All
// items share the first date found in the document.
func extractLines(text string, now time.Time) []internal.ExtractedItem {
	if text == "" {
		return nil
	}
	fecha := documentDate(text, now)

	out := []internal.ExtractedItem{}
	for _, line := range util.SplitLines(text) {
		if utf8.RuneCountInString(line) > maxLineRunes {
			continue
		}
		monto, ok := util.ParseAmount(line)
		if !ok {
			continue
		}
		concepto := util.NormalizeSpaces(util.StripAmounts(line))
		if utf8.RuneCountInString(concepto) < 2 {
			concepto = fmt.Sprintf("Concepto %d", len(out)+1)
		}
		out = append(out, internal.ExtractedItem{
			Fecha:         fecha,
			Monto:         monto,
			Concepto:      util.Truncate(concepto, maxConceptRunes),
			Tipo:          internal.TipoGasto,
			TextoOriginal: line,
			Source:        internal.SourceText,
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// extractSingle reads the whole text as one record: the document date, the
// largest amount and the first descriptive line.
func extractSingle(text string, now time.Time) internal.ExtractedItem {
	monto, ok := util.ParseAmount(text)
	if !ok {
		monto = decimal.Zero
	}
	concepto := conceptCandidate(text)
	if concepto == "" {
		concepto = internal.SinConcepto
	}
	return internal.ExtractedItem{
		Fecha:    documentDate(text, now),
		Monto:    monto,
		Concepto: concepto,
		Tipo:     internal.TipoGasto,
		Source:   internal.SourceSingle,
	}
}

func conceptCandidate(text string) string {
	lines := util.SplitLines(text)
	if len(lines) == 0 {
		return ""
	}
	for _, line := range lines {
		if reNumericLine.MatchString(line) || reAmountLine.MatchString(line) {
			continue
		}
		return util.Truncate(line, maxConceptRunes)
	}
	return util.Truncate(lines[0], maxConceptRunes)
}

func placeholder(now time.Time) internal.ExtractedItem {
	return internal.ExtractedItem{
		Fecha:    now,
		Monto:    decimal.Zero,
		Concepto: internal.SinConcepto,
		Tipo:     internal.TipoGasto,
		Source:   internal.SourceFallback,
	}
}
