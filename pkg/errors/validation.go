package errors

import (
	"strings"
	"unicode"
)

// ValidateID validates a graph or hierarchy node identifier.
// It rejects identifiers that would break serialization or be ambiguous
// in composed path reporting.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 256 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "identifier too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "identifier contains control characters")
		}
	}

	return nil
}

// ValidateAttrName validates an attribute name.
// Attribute names share the identifier rules and additionally may not
// start with an underscore, which is reserved for internal bookkeeping
// keys in serialized form.
func ValidateAttrName(name string) error {
	if err := ValidateID(name); err != nil {
		return err
	}

	if strings.HasPrefix(name, "_") {
		return New(ErrCodeInvalidInput, "attribute name %q is reserved (leading underscore)", name)
	}

	return nil
}
