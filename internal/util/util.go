package util

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// GenUUID generates a new random UUID string.
func GenUUID() string {
	return uuid.New().String()
}

// ValidateEmail reports whether the given string is a well-formed address.
func ValidateEmail(email string) bool {
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	// mail.ParseAddress accepts "Name <a@b>" forms; we only take the bare address.
	return !strings.ContainsAny(email, " <>")
}
