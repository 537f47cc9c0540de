// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// # Credential Rules

const (
	// PasswordMinLength is counted in Unicode characters. There is no maximum.
	PasswordMinLength = 8

	UsernameMinLength = 3
	UsernameMaxLength = 30

	// EmailMaxLength is counted in Unicode characters.
	EmailMaxLength = 254
)

// PasswordIssue enumerates the reasons a password can fail the strength rule.
type PasswordIssue string

const (
	PasswordRequired         PasswordIssue = "required"
	PasswordTooShort         PasswordIssue = "too_short"
	PasswordMissingUppercase PasswordIssue = "missing_uppercase"
	PasswordMissingLowercase PasswordIssue = "missing_lowercase"
	PasswordMissingDigit     PasswordIssue = "missing_digit"
)

// Message returns the client-facing text for the issue.
func (issue PasswordIssue) Message() string {
	switch issue {
	case PasswordRequired:
		return "Password is required"
	case PasswordTooShort:
		return "Password must be at least 8 characters long"
	case PasswordMissingUppercase:
		return "Password must contain at least one uppercase letter"
	case PasswordMissingLowercase:
		return "Password must contain at least one lowercase letter"
	case PasswordMissingDigit:
		return "Password must contain at least one digit"
	default:
		return string(issue)
	}
}

// PasswordResult is the outcome of [ValidatePassword].
type PasswordResult struct {
	Valid  bool
	Errors []PasswordIssue
}

// reservedUsernames may never be registered, compared case-insensitively.
var reservedUsernames = map[string]struct{}{
	"admin":         {},
	"administrator": {},
	"root":          {},
	"system":        {},
	"superuser":     {},
	"support":       {},
	"api":           {},
	"null":          {},
	"undefined":     {},
	"anonymous":     {},
	"moderator":     {},
	"keygate":       {},
}

// PasswordRequirements lists the strength rule in human-readable form.
func PasswordRequirements() []string {
	return []string{
		PasswordTooShort.Message(),
		PasswordMissingUppercase.Message(),
		PasswordMissingLowercase.Message(),
		PasswordMissingDigit.Message(),
	}
}

// ValidatePassword checks the strength rule: at least 8 characters with one
// uppercase letter, one lowercase letter and one digit. Any other character,
// including whitespace and symbols, is accepted.
func ValidatePassword(candidate string) PasswordResult {
	if candidate == "" {
		return PasswordResult{Errors: []PasswordIssue{PasswordRequired}}
	}

	var issues []PasswordIssue
	if utf8.RuneCountInString(candidate) < PasswordMinLength {
		issues = append(issues, PasswordTooShort)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		issues = append(issues, PasswordMissingUppercase)
	}
	if !hasLower {
		issues = append(issues, PasswordMissingLowercase)
	}
	if !hasDigit {
		issues = append(issues, PasswordMissingDigit)
	}

	return PasswordResult{Valid: len(issues) == 0, Errors: issues}
}

// ValidateEmail reports whether candidate is a plausible mailbox address.
//
// Internationalized domains are accepted when they survive IDNA lookup
// conversion.
func ValidateEmail(candidate string) bool {
	if candidate == "" || utf8.RuneCountInString(candidate) > EmailMaxLength {
		return false
	}
	if strings.ContainsFunc(candidate, unicode.IsSpace) || strings.Contains(candidate, "..") {
		return false
	}

	local, domain, found := strings.Cut(candidate, "@")
	if !found || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}

	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return false
	}
	if strings.ContainsFunc(local, isForbiddenLocalRune) {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
	}

	tld := labels[len(labels)-1]
	if utf8.RuneCountInString(tld) < 2 || strings.IndexFunc(tld, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return false
	}

	if _, err := idna.Lookup.ToASCII(domain); err != nil {
		return false
	}

	return true
}

// isForbiddenLocalRune rejects control characters and RFC 5322 specials that
// would need quoting.
func isForbiddenLocalRune(r rune) bool {
	return unicode.IsControl(r) || strings.ContainsRune(`()<>[]:;@\,"`, r)
}

// ValidateUsername reports whether candidate satisfies the username rules:
// 3-30 ASCII characters from [A-Za-z0-9_-], starting with a letter, not ending
// with a separator, no two adjacent separators, and not a reserved word.
func ValidateUsername(candidate string) bool {
	length := len(candidate)
	if length < UsernameMinLength || length > UsernameMaxLength {
		return false
	}

	for i := 0; i < length; i++ {
		c := candidate[i]
		if c >= utf8.RuneSelf {
			return false
		}
		if !isASCIILetter(c) && !isASCIIDigit(c) && !isSeparator(c) {
			return false
		}
		if i > 0 && isSeparator(c) && isSeparator(candidate[i-1]) {
			return false
		}
	}

	if !isASCIILetter(candidate[0]) || isSeparator(candidate[length-1]) {
		return false
	}

	_, reserved := reservedUsernames[strings.ToLower(candidate)]
	return !reserved
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isASCIIDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSeparator(c byte) bool { return c == '_' || c == '-' }
