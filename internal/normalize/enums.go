package normalize

import "strings"

var memberLevels = map[string]string{
	"active":       "Active Member",
	"activemember": "Active Member",
	"full":         "Active Member",
	"fullmember":   "Active Member",
	"regular":      "Active Member",
	"associate":    "Associate Member",
	"assoc":        "Associate Member",
	"retired":      "Retired Member",
	"retiree":      "Retired Member",
	"life":         "Life Member",
	"lifetime":     "Life Member",
	"lifemember":   "Life Member",
	"student":      "Student Member",
	"honorary":     "Honorary Member",
	"agencyfee":    "Agency Fee Payer",
	"feepayer":     "Agency Fee Payer",
}

var memberStatuses = map[string]string{
	"active":    "Active",
	"a":         "Active",
	"current":   "Active",
	"inactive":  "Inactive",
	"i":         "Inactive",
	"lapsed":    "Inactive",
	"expired":   "Inactive",
	"retired":   "Retired",
	"deceased":  "Deceased",
	"dead":      "Deceased",
	"suspended": "Suspended",
	"pending":   "Pending",
}

var employmentStatuses = map[string]string{
	"fulltime":       "Full-Time",
	"ft":             "Full-Time",
	"full":           "Full-Time",
	"parttime":       "Part-Time",
	"pt":             "Part-Time",
	"part":           "Part-Time",
	"substitute":     "Substitute",
	"sub":            "Substitute",
	"retired":        "Retired",
	"leaveofabsence": "Leave of Absence",
	"loa":            "Leave of Absence",
	"onleave":        "Leave of Absence",
	"terminated":     "Terminated",
	"separated":      "Terminated",
}

var stateCodes = map[string]string{
	"alabama":                "AL",
	"alaska":                 "AK",
	"arizona":                "AZ",
	"arkansas":               "AR",
	"california":             "CA",
	"colorado":               "CO",
	"connecticut":            "CT",
	"delaware":               "DE",
	"districtofcolumbia":     "DC",
	"florida":                "FL",
	"georgia":                "GA",
	"hawaii":                 "HI",
	"idaho":                  "ID",
	"illinois":               "IL",
	"indiana":                "IN",
	"iowa":                   "IA",
	"kansas":                 "KS",
	"kentucky":               "KY",
	"louisiana":              "LA",
	"maine":                  "ME",
	"maryland":               "MD",
	"massachusetts":          "MA",
	"michigan":               "MI",
	"minnesota":              "MN",
	"mississippi":            "MS",
	"missouri":               "MO",
	"montana":                "MT",
	"nebraska":               "NE",
	"nevada":                 "NV",
	"newhampshire":           "NH",
	"newjersey":              "NJ",
	"newmexico":              "NM",
	"newyork":                "NY",
	"northcarolina":          "NC",
	"northdakota":            "ND",
	"ohio":                   "OH",
	"oklahoma":               "OK",
	"oregon":                 "OR",
	"pennsylvania":           "PA",
	"puertorico":             "PR",
	"rhodeisland":            "RI",
	"southcarolina":          "SC",
	"southdakota":            "SD",
	"tennessee":              "TN",
	"texas":                  "TX",
	"utah":                   "UT",
	"vermont":                "VT",
	"virginia":               "VA",
	"washington":             "WA",
	"westvirginia":           "WV",
	"wisconsin":              "WI",
	"wyoming":                "WY",
	"usvirginislands":        "VI",
	"virginislands":          "VI",
	"guam":                   "GU",
	"americansamoa":          "AS",
	"northernmarianas":       "MP",
	"northernmarianaislands": "MP",
}

// CleanMemberLevel maps known level synonyms; anything else is kept title-cased.
func CleanMemberLevel(s string) *string {
	level := collapse(s)
	if isPlaceholder(level) {
		return nil
	}
	if canonical, ok := memberLevels[squash(level)]; ok {
		return ptr(canonical)
	}
	return ptr(titleCase(level))
}

// CleanMemberStatus returns nil for statuses outside the known set.
func CleanMemberStatus(s string) *string {
	return lookup(memberStatuses, s)
}

// CleanEmploymentStatus returns nil for statuses outside the known set.
func CleanEmploymentStatus(s string) *string {
	return lookup(employmentStatuses, s)
}

// FormatState returns the two-letter postal code for a state name or code.
func FormatState(s string) *string {
	state := collapse(s)
	if isPlaceholder(state) {
		return nil
	}
	key := squash(state)
	if len(key) == 2 {
		code := strings.ToUpper(key)
		for _, known := range stateCodes {
			if known == code {
				return ptr(code)
			}
		}
		return nil
	}
	if code, ok := stateCodes[key]; ok {
		return ptr(code)
	}
	return nil
}

func lookup(table map[string]string, s string) *string {
	v := collapse(s)
	if isPlaceholder(v) {
		return nil
	}
	if canonical, ok := table[squash(v)]; ok {
		return ptr(canonical)
	}
	return nil
}
