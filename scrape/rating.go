package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

// ratingNumberRe matches the leading decimal number in an accessible label
// like "4.5 stars" or "4,5 Sterne". The canonical path (spec.md §9 Design
// Note).
var ratingNumberRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

// ParseRating extracts the numeric rating from a stars control's accessible
// label. Canonical path: the first decimal number in the label. Fallback
// (when no decimal number is present): strip every trailing non-digit
// character from the label and parse what remains as an integer-scaled
// rating is not attempted — the fallback instead strips trailing non-digit
// runes looking for a bare integer/decimal prefix.
func ParseRating(label string) (float64, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}

	if m := ratingNumberRe.FindString(label); m != "" {
		m = strings.Replace(m, ",", ".", 1)
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return v, true
		}
	}

	// Fallback: strip trailing non-digit characters and re-parse.
	trimmed := strings.TrimRightFunc(label, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.' && r != ','
	})
	trimmed = strings.Replace(trimmed, ",", ".", 1)
	if trimmed == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// reviewCountRe matches the integer review count embedded in a label like
// "123 reviews" or "(1,234)".
var reviewCountRe = regexp.MustCompile(`([\d,]+)\s*(?:reviews?|ratings?|\))?`)

// ParseReviewCount extracts the integer review count from an accessible
// label such as "123 reviews" or "(1,234)".
func ParseReviewCount(label string) (int, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}

	m := reviewCountRe.FindStringSubmatch(label)
	if len(m) < 2 {
		return 0, false
	}

	digits := strings.ReplaceAll(m[1], ",", "")
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return v, true
}
