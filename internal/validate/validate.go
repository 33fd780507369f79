// Package validate holds the structural input rules shared by the engine
// and the HTTP layer.
package validate

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	maxUsernameRunes = 256
	forbiddenChars   = `/()"<>\{}`
)

var (
	errBlank     = errors.New("must not be blank")
	errForbidden = errors.New("contains a forbidden character")
)

// UsernameRules returns the rules for a username.
func UsernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, maxUsernameRunes),
		validation.By(notBlank),
		validation.By(noForbiddenChars),
	}
}

// EmailRules returns the rules for an email address.
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 254),
		is.Email,
	}
}

// Username validates a single username.
func Username(v string) error {
	return validation.Validate(v, UsernameRules()...)
}

// Email validates a single email address.
func Email(v string) error {
	return validation.Validate(v, EmailRules()...)
}

// Signup is the structural shape of a signup request. Password strength is
// checked separately by password.Policy.
type Signup struct {
	Username string
	Email    string
	Password string
}

// Validate returns validation.Errors keyed by field.
func (s Signup) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Username, UsernameRules()...),
		validation.Field(&s.Email, EmailRules()...),
		validation.Field(&s.Password, validation.Required),
	)
}

// Login is the structural shape of a login request.
type Login struct {
	Username string
	Password string
}

// Validate returns validation.Errors keyed by field.
func (l Login) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Username, validation.Required),
		validation.Field(&l.Password, validation.Required),
	)
}

// ChangePassword is the structural shape of a password change. Matching and
// strength are checked by the reset flow so their errors stay distinct.
type ChangePassword struct {
	ResetToken    string
	Password      string
	PasswordAgain string
}

// Validate returns validation.Errors keyed by field.
func (c ChangePassword) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ResetToken, validation.Required),
		validation.Field(&c.Password, validation.Required),
		validation.Field(&c.PasswordAgain, validation.Required),
	)
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if s != "" && strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

func noForbiddenChars(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, forbiddenChars) {
		return errForbidden
	}
	return nil
}
