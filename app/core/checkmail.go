package core

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

const PasswordMessage = "password needs to be at least 8 characters long and needs at least one lowercase, uppercase and special character as well as one digit"
const PasswordMinLength = 8

var (
	ErrBadFormat = errors.New("invalid email format")

	emailRegexp = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
)

// NormalizeEmail is the whitelist key form of an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateFormat(email string) error {
	if !emailRegexp.MatchString(email) {
		return ErrBadFormat
	}
	return nil
}

func ValidatePassword(password string) error {
	special := false
	upperCase := false
	lowerCase := false
	number := false
	for _, c := range password {
		switch {
		case unicode.IsNumber(c) || unicode.IsDigit(c):
			number = true
		case unicode.IsUpper(c):
			upperCase = true
		case unicode.IsLower(c):
			lowerCase = true
		case unicode.IsSpace(c) || unicode.IsPunct(c) || unicode.IsSymbol(c):
			special = true
		}
	}
	if len(password) < PasswordMinLength || !special || !upperCase || !lowerCase || !number {
		return errors.New(PasswordMessage)
	}
	return nil
}

// MaskEmail hides the local part for public output, "d***@example.org".
func MaskEmail(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i <= 0 {
		return ""
	}
	return email[:1] + "***" + email[i:]
}
