package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxLoggedValue = 100

var (
	emailLike = regexp.MustCompile(`[^\s@,;]+@[^\s@,;]+`)
	phoneLike = regexp.MustCompile(`\+?\d[\d\s().\-]{8,}\d`)
)

// SanitizeForLog masks emails and phone numbers and truncates long values.
func SanitizeForLog(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v string) string {
	v = emailLike.ReplaceAllStringFunc(v, maskEmail)
	v = phoneLike.ReplaceAllStringFunc(v, maskPhone)
	if utf8.RuneCountInString(v) > maxLoggedValue {
		runes := []rune(v)
		v = string(runes[:maxLoggedValue]) + "..."
	}
	return v
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at:]
	if local == "" {
		return "***" + domain
	}
	first, _ := utf8.DecodeRuneInString(local)
	return string(first) + "***" + domain
}

// maskPhone keeps the last four digits.
func maskPhone(phone string) string {
	digits := onlyDigits(phone)
	if len(digits) <= 4 {
		return "***"
	}
	return "***-" + digits[len(digits)-4:]
}
