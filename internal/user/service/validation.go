package service

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
)

var (
	validate  = validator.New(validator.WithRequiredStructEnabled())
	emailRule = "required,email,max=" + strconv.Itoa(constants.EmailMaxLength)
)

// NormalizeEmail trims surrounding space and lowercases the domain part. The
// local part is kept as typed since some mail servers treat it case-sensitively.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

func validateEmail(email string) error {
	if err := validate.Var(email, emailRule); err != nil {
		return ErrValidationEmail.WithCause(err)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < constants.PasswordMinLength || len(password) > constants.PasswordMaxLength {
		return ErrValidationPasswordLength
	}

	hasLetter := false
	hasDigit := false
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return nil
		}
	}

	return ErrValidationPasswordLetterDigit
}

func validateUsername(username string) error {
	if utf8.RuneCountInString(username) > constants.UsernameMaxLength {
		return ErrValidationUsernameLength
	}
	return nil
}
