// internal/app/system/authutil/authutil.go
package authutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = apperr.Validation(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	ErrPasswordTooLong  = apperr.Validation(fmt.Sprintf("Password must be at most %d characters.", MaxPasswordLength))
	ErrPasswordCommon   = apperr.Validation("Password is too common. Choose something harder to guess.")
)

var commonPasswords = map[string]struct{}{
	"123456": {}, "1234567": {}, "12345678": {}, "123456789": {}, "password": {},
	"qwerty": {}, "abc123": {}, "iloveyou": {}, "letmein": {}, "football": {},
	"welcome": {}, "monkey": {}, "dragon": {}, "111111": {}, "sunshine": {},
}

// ValidatePassword enforces length bounds and rejects a short list of common passwords.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(pw) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules describes the rules for display next to password inputs.
func PasswordRules() string {
	return fmt.Sprintf("At least %d characters (max %d). Avoid common passwords.", MinPasswordLength, MaxPasswordLength)
}

// HashPassword returns a salted bcrypt hash of pw.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches hash. A malformed hash never matches.
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// dummyHash is compared against when no account matches, so an unknown
// email costs the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() []byte {
	b, err := bcrypt.GenerateFromPassword([]byte("pinhub-no-such-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return b
})

// CheckUserPassword is CheckPassword for a login lookup. When found is
// false the password is compared against a fixed hash and never matches.
func CheckUserPassword(pw, hash string, found bool) bool {
	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(pw))
		return false
	}
	return CheckPassword(pw, hash)
}
