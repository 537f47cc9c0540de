// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize produces the canonical forms used for identity uniqueness.
//
// # Usage
//
// Emails and usernames are compared after normalization, so "A@B.com " and
// "a@b.com" resolve to the same account. Normalization never validates; run the
// validators in internal/platform/validate on the raw input first.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Email trims surrounding whitespace, composes Unicode (NFC) and lower-cases.
//
// # Transformation Pipeline
//
// 1. Trim leading/trailing whitespace.
// 2. Normalize to NFC so that composed and decomposed forms compare equal.
// 3. Lower-case with Unicode-aware rules (internationalized domains).
func Email(email string) string {
	trimmed := strings.TrimSpace(email)
	composed := norm.NFC.String(trimmed)
	// cases.Caser is stateful, so build one per call.
	return cases.Lower(language.Und).String(composed)
}

// Username trims and lower-cases. Valid usernames are ASCII-only, so simple
// byte-wise lower-casing is exact.
func Username(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
