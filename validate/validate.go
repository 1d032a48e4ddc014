// Package validate contains the pure input checks applied before
// credentials or profile data reach the authentication engine.
//
// Every function is side-effect-free and returns a human-readable error
// (or a report struct) instead of panicking; callers surface the message
// directly to the form that produced the input.
package validate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Strength classifies a password for the sign-up form's strength meter.
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 6

// PasswordReport is the full result of [Password]. Valid requires the
// minimum length plus at least one letter and one digit.
type PasswordReport struct {
	Valid     bool
	Strength  Strength
	HasLetter bool
	HasDigit  bool
	MinLength int
}

// Required fails on empty or all-whitespace input.
func Required(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("this field is required")
	}
	return nil
}

// Email checks the local@domain.tld shape: a non-whitespace local part, an
// @, and a domain containing a dot. It deliberately stops short of full
// RFC 5322 — the directory lookup is the real arbiter.
func Email(value string) error {
	at := strings.Index(value, "@")
	if at <= 0 || at != strings.LastIndex(value, "@") {
		return errors.New("please enter a valid email address")
	}
	local, domain := value[:at], value[at+1:]
	if strings.ContainsAny(local, " \t") || strings.ContainsAny(domain, " \t") {
		return errors.New("please enter a valid email address")
	}
	dot := strings.Index(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return errors.New("please enter a valid email address")
	}
	return nil
}

// Password computes validity and strength in one pass. Strength tiers
// mirror the portal's original meter: strong needs length >= 8 with both
// character classes, medium needs the minimum length with at least one
// class, everything else is weak.
func Password(value string) PasswordReport {
	report := PasswordReport{MinLength: PasswordMinLength}
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			report.HasLetter = true
		case unicode.IsDigit(r):
			report.HasDigit = true
		}
	}

	n := len(value)
	report.Valid = n >= PasswordMinLength && report.HasLetter && report.HasDigit

	switch {
	case n >= 8 && report.HasLetter && report.HasDigit:
		report.Strength = StrengthStrong
	case n >= PasswordMinLength && (report.HasLetter || report.HasDigit):
		report.Strength = StrengthMedium
	default:
		report.Strength = StrengthWeak
	}
	return report
}

// PasswordValid adapts [Password] to the error-returning validator shape.
func PasswordValid(value string) error {
	if report := Password(value); !report.Valid {
		return fmt.Errorf("password must be at least %d characters with letters and numbers", PasswordMinLength)
	}
	return nil
}

// MinLength returns a validator requiring at least n characters.
func MinLength(n int) func(string) error {
	return func(value string) error {
		if len(value) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

// MaxLength returns a validator requiring at most n characters.
func MaxLength(n int) func(string) error {
	return func(value string) error {
		if len(value) > n {
			return fmt.Errorf("must be no more than %d characters", n)
		}
		return nil
	}
}

// Numeric fails unless value parses as a number.
func Numeric(value string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

// Positive fails unless value parses as a number greater than zero.
func Positive(value string) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || n <= 0 {
		return errors.New("must be a positive number")
	}
	return nil
}
