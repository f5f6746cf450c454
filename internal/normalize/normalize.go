package normalize

import (
	"math"
	"strconv"
	"strings"
)

// NoValue is substituted for empty text fields in the upload document.
const NoValue = "no value"

// Identifier strips the trailing ".0" that spreadsheet exports add to whole
// numbers ("1024.0" -> "1024"). Anything else, including leading zeros and
// genuinely fractional values, is returned trimmed but otherwise unchanged.
func Identifier(s string) string {
	s = strings.TrimSpace(s)
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || !isDigits(strings.TrimPrefix(whole, "-")) || strings.Trim(frac, "0") != "" {
		return s
	}
	return whole
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Minutes parses a duration cell into whole, non-negative minutes.
// Returns false when the value is not numeric.
func Minutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return int(math.Round(f)), true
}

// Flag interprets a consent/indicator cell. Only 1, 1.0, true, yes and y
// (any case) are true; everything else, including blanks, is false.
func Flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "yes", "y":
		return true
	}
	return false
}

// BoolText renders a boolean as the literal "true" or "false".
func BoolText(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// OrDefault returns def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
