package normalize

import "strings"

// Country resolves a country code or synonym to the canonical target name.
// Lookup is case-insensitive; unknown values are returned unchanged.
func Country(country string, synonyms map[string]string) string {
	if canonical, ok := synonyms[strings.ToLower(strings.TrimSpace(country))]; ok {
		return canonical
	}
	return country
}
