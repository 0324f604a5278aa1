// Package normalize holds the pure field conversions shared by the migrators.
package normalize

import "strings"

// PhoneNumber converts a free-form phone number into international form.
// All non-digits are dropped; "00" becomes "+", a single leading "0" is
// replaced by "+" and the default country code, anything else gets a "+".
func PhoneNumber(phone string, defaultCountryCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	number := digits.String()
	switch {
	case number == "":
		return ""
	case strings.HasPrefix(number, "00"):
		return "+" + number[2:]
	case strings.HasPrefix(number, "0"):
		return "+" + strings.TrimPrefix(defaultCountryCode, "+") + number[1:]
	default:
		return "+" + number
	}
}
