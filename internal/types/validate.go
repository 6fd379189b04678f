// internal/types/validate.go
package types

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRegex     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	tableCodeRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)
	hexColorRegex  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// ValidateEmail checks basic email shape.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

// ValidateTableCode checks a table's QR slug: lowercase letters, digits
// and hyphens, 3 to 64 characters, no leading or trailing hyphen.
func ValidateTableCode(code string) error {
	if !tableCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid table code: use 3-64 lowercase letters, digits or hyphens")
	}
	return nil
}

// ValidateRequired checks that a trimmed string field is non-empty.
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// ValidatePriceCents rejects negative prices.
func ValidatePriceCents(cents int) error {
	if cents < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return nil
}

// ValidateQuantity rejects non-positive quantities.
func ValidateQuantity(qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

// ValidateTheme checks that every theme value is a #rrggbb color.
func ValidateTheme(theme map[string]any) error {
	for key, value := range theme {
		s, ok := value.(string)
		if !ok || !hexColorRegex.MatchString(s) {
			return fmt.Errorf("theme value %q must be a hex color like #1a2b3c", key)
		}
	}
	return nil
}
