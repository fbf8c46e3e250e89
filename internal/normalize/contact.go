package normalize

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-z0-9._%+'\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	phoneShaped    = regexp.MustCompile(`^[0-9\s().+\-x#ext]+$`)
	emailSentinels = map[string]struct{}{
		"no email":     {},
		"noemail":      {},
		"no e-mail":    {},
		"none@none":    {},
		"email":        {},
		"not provided": {},
	}
)

// CleanEmail returns a lower-cased, validated address or nil.
func CleanEmail(s string) *string {
	email := strings.ToLower(CleanString(s))
	email = strings.TrimPrefix(email, "mailto:")
	email = strings.Trim(email, "<>;, ")
	if isPlaceholder(email) {
		return nil
	}
	if _, ok := emailSentinels[email]; ok {
		return nil
	}
	if phoneShaped.MatchString(email) {
		return nil
	}
	if !emailPattern.MatchString(email) || strings.Contains(email, "..") {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil
	}
	return &email
}

// FormatPhoneNumber formats 10-digit and 1-prefixed 11-digit numbers.
// Any other digit count is returned unchanged.
func FormatPhoneNumber(s string) string {
	digits := onlyDigits(s)
	switch {
	case len(digits) == 10:
		return "(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:]
	case len(digits) == 11 && digits[0] == '1':
		return "1 (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:]
	}
	return s
}

// CleanPhone returns the formatted phone number, or nil for empty and placeholder input.
func CleanPhone(s string) *string {
	phone := collapse(s)
	if isPlaceholder(phone) || onlyDigits(phone) == "" {
		return nil
	}
	return ptr(FormatPhoneNumber(phone))
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanName keeps letters, spaces, hyphens, apostrophes and periods. Single-case input is title-cased.
func CleanName(s string) *string {
	name := collapse(s)
	if isPlaceholder(name) {
		return nil
	}

	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || r == ' ' || r == '-' || r == '\'' || r == '.' {
			b.WriteRune(r)
		}
	}
	name = strings.Trim(collapse(b.String()), " -'.")
	if name == "" || isPlaceholder(name) {
		return nil
	}
	if name == strings.ToUpper(name) || name == strings.ToLower(name) {
		name = titleCase(name)
	}
	return &name
}

// CleanText trims and collapses free text, mapping placeholders to nil.
func CleanText(s string) *string {
	text := collapse(s)
	if isPlaceholder(text) {
		return nil
	}
	return &text
}

// CleanZipCode accepts 5-digit and ZIP+4 codes, restoring leading zeros lost by spreadsheets.
func CleanZipCode(s string) *string {
	zip := collapse(s)
	if isPlaceholder(zip) {
		return nil
	}
	digits := onlyDigits(zip)
	switch {
	case len(digits) == 9:
		return ptr(digits[:5] + "-" + digits[5:])
	case len(digits) >= 3 && len(digits) <= 5 && len(digits) == len(zip):
		return ptr(strings.Repeat("0", 5-len(digits)) + digits)
	}
	return &zip
}
