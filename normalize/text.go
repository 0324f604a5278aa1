package normalize

import "strings"

// Clip shortens s to at most limit characters.
func Clip(s string, limit int) string {
	if limit < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// UnitOfMeasure maps a source unit name through the alias table and falls
// back to the default unit when the source has none. Alias keys match
// exactly or in lower case.
func UnitOfMeasure(unit string, aliases map[string]string, fallback string) string {
	unit = strings.TrimSpace(unit)
	if alias, ok := aliases[unit]; ok {
		unit = alias
	} else if alias, ok := aliases[strings.ToLower(unit)]; ok {
		unit = alias
	}
	if unit == "" {
		return fallback
	}
	return unit
}
