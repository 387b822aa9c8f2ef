package dialog

import (
	"strings"

	"github.com/stroyrent/rentbot/internal/domain/fault"
)

// NormalizePhone strips everything but digits and rewrites the result to
// +7XXXXXXXXXX form. Accepted shapes: 11 digits starting with 7 or 8, 10
// digits, or 12 digits starting with 7. Anything else is a validation error.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 11 && (d[0] == '7' || d[0] == '8'):
		return "+7" + d[1:], nil
	case len(d) == 10:
		return "+7" + d, nil
	case len(d) == 12 && d[0] == '7':
		return "+" + d, nil
	}
	return "", &fault.ValidationError{Field: "phone", Reason: "unrecognized phone number format"}
}

// ValidateAddress checks that a delivery address has at least city, street
// and a house number: three comma-separated parts with a digit in the third.
func ValidateAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	parts := strings.Split(addr, ",")
	if len(parts) < 3 {
		return "", &fault.ValidationError{Field: "address", Reason: "expected city, street and house number separated by commas"}
	}
	if !strings.ContainsAny(parts[2], "0123456789") {
		return "", &fault.ValidationError{Field: "address", Reason: "house number is missing"}
	}
	return addr, nil
}
