// Package normalize cleans roster headers and values before reconciliation.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Longer marks come first so UTF-32 LE is not mistaken for UTF-16 LE.
var byteOrderMarks = []string{
	"\x00\x00\xfe\xff",
	"\xff\xfe\x00\x00",
	"\xef\xbb\xbf",
	"\xfe\xff",
	"\xff\xfe",
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	placeholders  = map[string]struct{}{
		"":        {},
		"-":       {},
		"--":      {},
		".":       {},
		"n/a":     {},
		"na":      {},
		"none":    {},
		"null":    {},
		"nil":     {},
		"unknown": {},
		"tbd":     {},
	}
)

// CleanString strips leading byte-order marks and surrounding whitespace.
// It iterates to a fixed point, so CleanString(CleanString(s)) == CleanString(s).
func CleanString(s string) string {
	for {
		next := stripByteOrderMarks(s)
		next = strings.ToValidUTF8(next, "")
		next = strings.TrimFunc(next, isNoise)
		if next == s {
			return next
		}
		s = next
	}
}

func stripByteOrderMarks(s string) string {
	for {
		stripped := false
		for _, mark := range byteOrderMarks {
			if strings.HasPrefix(s, mark) {
				s = s[len(mark):]
				stripped = true
				break
			}
		}
		if !stripped {
			return s
		}
	}
}

func isNoise(r rune) bool {
	switch r {
	case '\uFEFF', '\u200B', '\u200C', '\u200D', '\u2060', 0:
		return true
	}
	return unicode.IsSpace(r)
}

// collapse cleans s and squeezes inner whitespace runs to one space.
func collapse(s string) string {
	return whitespaceRun.ReplaceAllString(CleanString(s), " ")
}

func isPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(s)]
	return ok
}

func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func ptr(s string) *string {
	return &s
}
