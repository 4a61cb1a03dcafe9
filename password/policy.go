package password

import (
	"strings"
	"unicode"
)

// Policy describes the strength rules for new passwords.
type Policy struct {
	MinLength    int
	MaxLength    int
	RequireUpper bool
	RequireLower bool
	RequireDigit bool
}

// DefaultPolicy is 6 to 50 characters with mixed case and a digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:    6,
		MaxLength:    50,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// PolicyError lists every rule a password broke.
type PolicyError struct {
	Violations []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Violations, "; ")
}

// Check returns a *PolicyError when password breaks any rule. Length is
// counted in runes.
func (p Policy) Check(password string) error {
	var violations []string
	var hasUpper, hasLower, hasDigit bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if p.MinLength > 0 && length < p.MinLength {
		violations = append(violations, "password is too short")
	}
	if p.MaxLength > 0 && length > p.MaxLength {
		violations = append(violations, "password is too long")
	}
	if p.RequireUpper && !hasUpper {
		violations = append(violations, "password needs an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, "password needs a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "password needs a digit")
	}

	if len(violations) == 0 {
		return nil
	}
	return &PolicyError{Violations: violations}
}
