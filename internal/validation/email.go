package validation

import (
	"errors"
	"net/mail"
)

// RFC 5321 caps a complete address at 254 octets.
const maxEmailLength = 254

// ValidateEmail checks an address against the RFC 5322 grammar via net/mail.
// Registration, email change and notification mail all go through this, so
// the rules here are the single source of truth for a deliverable address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	if len(email) > maxEmailLength {
		return errors.New("email address is too long (max 254 characters)")
	}

	_, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("invalid email address format")
	}

	return nil
}
