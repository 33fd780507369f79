package password

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrTooShort is returned when a password has fewer than MinLength runes.
	ErrTooShort = errors.New("password: too short")
	// ErrTooLong is returned when a password exceeds MaxBytes.
	ErrTooLong = errors.New("password: too long")
	// ErrTooFewClasses is returned when a password mixes fewer than
	// MinCharClasses of lower, upper, digit and symbol characters.
	ErrTooFewClasses = errors.New("password: too few character classes")
)

// Policy is the strength policy applied to new passwords at signup and reset.
type Policy struct {
	MinLength      int
	MaxBytes       int
	MinCharClasses int
}

// DefaultPolicy accepts "House!909" and rejects "H".
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		MaxBytes:       128,
		MinCharClasses: 3,
	}
}

// Validate reports whether the policy itself is usable.
func (p Policy) Validate() error {
	if p.MinLength < 1 {
		return errors.New("password policy MinLength must be >= 1")
	}
	if p.MaxBytes < p.MinLength {
		return errors.New("password policy MaxBytes must be >= MinLength")
	}
	if p.MinCharClasses < 0 || p.MinCharClasses > 4 {
		return errors.New("password policy MinCharClasses must be in [0,4]")
	}
	return nil
}

// Check returns nil when pw satisfies the policy, or the first violated rule.
func (p Policy) Check(pw string) error {
	if len(pw) > p.MaxBytes {
		return ErrTooLong
	}
	if utf8.RuneCountInString(pw) < p.MinLength {
		return ErrTooShort
	}
	if CharClasses(pw) < p.MinCharClasses {
		return ErrTooFewClasses
	}
	return nil
}

// CharClasses counts how many of lower, upper, digit and symbol appear in pw.
func CharClasses(pw string) int {
	var lower, upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			symbol = true
		}
	}

	n := 0
	for _, ok := range []bool{lower, upper, digit, symbol} {
		if ok {
			n++
		}
	}
	return n
}
