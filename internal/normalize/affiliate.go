package normalize

import "strings"

// DefaultAcronyms are organizational acronyms kept upper-case in affiliate names.
var DefaultAcronyms = []string{
	"AFL", "AFT", "AFSCME", "CIO", "CWA", "EA", "FEA", "FT", "IBT", "IUE",
	"LEA", "NEA", "PEA", "PFT", "SEA", "SEIU", "TA", "UAW", "UFT", "USW",
	"ESP", "ESPA", "EAA", "CEA", "MEA", "TEA", "UEA", "AAUP",
}

var smallWords = map[string]struct{}{
	"of": {}, "and": {}, "the": {}, "for": {}, "in": {}, "at": {}, "on": {}, "to": {},
}

// FormatAffiliateName title-cases an affiliate name, keeping acronyms upper-case
// and connecting words lower-case after the first word.
func FormatAffiliateName(s string, acronyms []string) *string {
	name := collapse(s)
	if isPlaceholder(name) {
		return nil
	}

	known := make(map[string]struct{}, len(acronyms))
	for _, a := range acronyms {
		known[strings.ToUpper(a)] = struct{}{}
	}

	words := strings.Fields(name)
	for i, w := range words {
		words[i] = formatAffiliateWord(w, i == 0, known)
	}
	return ptr(strings.Join(words, " "))
}

func formatAffiliateWord(w string, first bool, acronyms map[string]struct{}) string {
	core := strings.Trim(w, "()[],.:;\"'")
	if core == "" {
		return w
	}
	if _, ok := acronyms[strings.ToUpper(core)]; ok {
		return strings.Replace(w, core, strings.ToUpper(core), 1)
	}
	if strings.ContainsAny(core, "0123456789") {
		return strings.ToUpper(w)
	}
	if _, ok := smallWords[strings.ToLower(core)]; ok && !first {
		return strings.ToLower(w)
	}
	if strings.Contains(core, "-") {
		parts := strings.Split(w, "-")
		for i, p := range parts {
			parts[i] = formatAffiliateWord(p, true, acronyms)
		}
		return strings.Join(parts, "-")
	}
	return titleCase(strings.ToLower(w))
}
