package bookmeta

import "errors"

// ErrMissingIdentifier rejects records that arrive without a usable ISBN-13.
var ErrMissingIdentifier = errors.New("bookmeta: missing or malformed identifier")

// ValidISBN reports whether s is a 13-digit numeric identifier.
func ValidISBN(s string) bool {
	if len(s) != 13 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RequireISBN validates the identifier, returning ErrMissingIdentifier when
// it cannot key a canonical record.
func RequireISBN(s string) error {
	if !ValidISBN(s) {
		return ErrMissingIdentifier
	}
	return nil
}
