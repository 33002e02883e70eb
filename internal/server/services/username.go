package services

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/go-playground/validator/v10"
)

var usernameValidator = validator.New()

var reservedUsernames = map[string]struct{}{
	"admin": {},
}

// NormalizeUsername trims and lowercases a username. Every lookup, SRP
// identity and cache key uses the normalized form.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsernameFormat checks an already normalized username: 3 to 40
// characters, either letters and digits only or an e-mail address.
func ValidateUsernameFormat(username string) error {
	if err := usernameValidator.Var(username, "required,min=3,max=40"); err != nil {
		return fmt.Errorf("%w: must be between 3 and 40 characters", common.ErrUsernameInvalid)
	}

	tag := "alphanumunicode"
	if strings.Contains(username, "@") {
		tag = "email"
	}
	if err := usernameValidator.Var(username, tag); err != nil {
		return fmt.Errorf("%w: only letters and digits or an e-mail address are allowed", common.ErrUsernameInvalid)
	}

	if _, ok := reservedUsernames[username]; ok {
		return fmt.Errorf("%w: %q is reserved", common.ErrUsernameInvalid, username)
	}
	return nil
}
