package order

import (
	"strings"
	"unicode/utf8"
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 12
	maxNameLength  = 150
)

// ValidateContact checks checkout input. It returns nil or a *ValidationError
// naming every offending field.
func ValidateContact(c ContactInfo) error {
	fields := map[string]string{}

	if strings.TrimSpace(c.FirstName) == "" {
		fields["first_name"] = "this field is required"
	} else if utf8.RuneCountInString(c.FirstName) > maxNameLength {
		fields["first_name"] = "too long"
	}
	if strings.TrimSpace(c.LastName) == "" {
		fields["last_name"] = "this field is required"
	} else if utf8.RuneCountInString(c.LastName) > maxNameLength {
		fields["last_name"] = "too long"
	}

	if strings.TrimSpace(c.Phone) == "" {
		fields["phone_number"] = "this field is required"
	} else if _, ok := NormalizePhone(c.Phone); !ok {
		fields["phone_number"] = "phone number must contain 10 to 12 digits"
	}

	if c.RequiresDelivery && strings.TrimSpace(c.DeliveryAddress) == "" {
		fields["delivery_address"] = "delivery address is required for delivery"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// NormalizePhone strips common separators and a leading plus sign and
// reports whether what is left is a plausible phone number.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", false
	}
	return digits, true
}
