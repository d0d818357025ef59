package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"zinka/domain"
	"zinka/errors"
)

var validate = validator.New()

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{4,}$`)

type profileRules struct {
	FirstName string `validate:"required"`
	Username  string `validate:"required"`
}

// CleanUsername strips an optional leading @ and case-normalizes.
// Usernames are stored normalized so that exact-match store queries and
// claim keys agree with what searchers type.
func CleanUsername(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}

// ValidateProfile checks the committable form of a profile. The username
// must already be cleaned by the caller.
func ValidateProfile(p domain.Profile) error {
	rules := profileRules{
		FirstName: strings.TrimSpace(p.FirstName),
		Username:  p.Username,
	}
	if err := validate.Struct(rules); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	if !usernamePattern.MatchString(p.Username) {
		return fmt.Errorf("%w: username needs at least 4 characters of a-z, 0-9, _ or -", errors.ErrValidation)
	}
	return nil
}
