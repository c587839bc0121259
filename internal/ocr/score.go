package ocr

import (
	"strings"
	"unicode"
)

// Keywords whose presence strongly indicates usable drawing text. The
// heavy set covers hydraulic cylinder nomenclature, the light set
// generic title-block vocabulary.
var (
	heavyKeywords = []string{"BORE", "ROD", "STROKE"}
	lightKeywords = []string{"CYLINDER", "SCALE", "DRAWING", "PART", "MODEL", "REV", "SHEET", "DIA", "MOUNT"}
)

// scoreText rates recognized text by drawing-vocabulary hits and
// numeric tokens. Garbage output from hatch patterns contains neither.
func scoreText(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	upper := strings.ToUpper(text)
	score := 0
	for _, kw := range heavyKeywords {
		score += 5 * strings.Count(upper, kw)
	}
	for _, kw := range lightKeywords {
		score += 2 * strings.Count(upper, kw)
	}

	for _, tok := range strings.Fields(text) {
		if isNumericToken(tok) {
			score++
		}
	}
	return score
}

// isNumericToken accepts dimension-style tokens: digits with optional
// punctuation such as "4.00", "1-1/2" or "250,5".
func isNumericToken(tok string) bool {
	digits := 0
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == '-' || r == '/' || r == '"' || r == '\'':
		default:
			return false
		}
	}
	return digits > 0
}
