package utils

import (
	"regexp"
	"strings"
)

var phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	return phoneRegex.MatchString(cleaned)
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeWhatsAppNumber returns the phone as digits prefixed with the country code,
// e.g. "(11) 98888-7777" becomes "5511988887777". Empty input yields "".
func NormalizeWhatsAppNumber(phone, countryCode string) string {
	digits := DigitsOnly(phone)
	if digits == "" {
		return ""
	}
	countryCode = DigitsOnly(countryCode)
	if countryCode == "" || strings.HasPrefix(digits, countryCode) {
		return digits
	}
	return countryCode + digits
}
