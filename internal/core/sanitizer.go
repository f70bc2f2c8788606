package core

import (
	"regexp"
	"unicode/utf8"
)

// MaxEmailChars is the longest email accepted by the hardened variant.
const MaxEmailChars = 3000

// InjectionPatterns are the advisory prompt-injection patterns, matched
// case-insensitively.
var InjectionPatterns = []string{
	`ignore (all )?previous instructions`,
	`you are now`,
	`reveal your system prompt`,
	`output.*password`,
	`act as`,
	`disregard`,
	`new persona`,
}

// Sanitizer screens untrusted email text before it reaches the model.
type Sanitizer struct {
	maxChars int
	patterns []*regexp.Regexp
}

// NewSanitizer compiles the default pattern set.
func NewSanitizer() *Sanitizer {
	patterns := make([]*regexp.Regexp, len(InjectionPatterns))
	for i, p := range InjectionPatterns {
		patterns[i] = regexp.MustCompile(`(?i)` + p)
	}
	return &Sanitizer{maxChars: MaxEmailChars, patterns: patterns}
}

// Check rejects emails longer than MaxEmailChars characters with an
// *AbuseError. Otherwise it returns the source of every pattern found in the
// email, in pattern order. Matches never cause an error.
func (s *Sanitizer) Check(email string) ([]string, error) {
	if n := utf8.RuneCountInString(email); n > s.maxChars {
		return nil, &AbuseError{Length: n, Limit: s.maxChars}
	}

	var matched []string
	for i, re := range s.patterns {
		if re.MatchString(email) {
			matched = append(matched, InjectionPatterns[i])
		}
	}
	return matched, nil
}
