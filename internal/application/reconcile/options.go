package reconcile

import (
	"strings"

	"github.com/mohammadpnp/member-import/internal/config"
)

// Options holds the lookup tables and thresholds used for matching. Tests build
// their own instead of relying on package state.
type Options struct {
	DefaultRole         string
	OfficerRole         string
	ExcludedAccessLevel string

	RoleThreshold     float64
	OrgRoleThreshold  float64
	PositionThreshold float64

	// RoleSynonyms maps a role name to alternative spellings of it.
	RoleSynonyms       map[string][]string
	OfficerKeywords    []string
	NonOfficerKeywords []string
	OrgEmailAllowlist  []string
}

var DefaultRoleSynonyms = map[string][]string{
	"Member":            {"general member", "regular member", "basic", "rank and file"},
	"Affiliate Officer": {"officer", "local officer", "executive board", "e-board"},
	"Building Rep":      {"building representative", "site rep", "worksite rep"},
	"Steward":           {"shop steward", "union steward", "chief steward"},
	"Organizer":         {"organiser", "field organizer"},
	"Staff":             {"employee", "staffer", "union staff"},
}

var DefaultOfficerKeywords = []string{
	"president", "vice president", "vp", "secretary", "treasurer", "chair",
	"chairperson", "director", "officer", "trustee", "delegate", "recorder",
	"sergeant at arms", "parliamentarian",
}

var DefaultNonOfficerKeywords = []string{
	"former", "retired", "past", "assistant to", "candidate", "staff",
}

func DefaultOptions() Options {
	return OptionsFromConfig(config.Default().Matching)
}

// OptionsFromConfig fills any list the configuration leaves empty with the defaults above.
func OptionsFromConfig(cfg config.MatchingConfig) Options {
	opts := Options{
		DefaultRole:         cfg.DefaultRole,
		OfficerRole:         cfg.OfficerRole,
		ExcludedAccessLevel: cfg.ExcludedAccessLevel,
		RoleThreshold:       cfg.RoleThreshold,
		OrgRoleThreshold:    cfg.OrgRoleThreshold,
		PositionThreshold:   cfg.PositionThreshold,
		RoleSynonyms:        cfg.RoleSynonyms,
		OfficerKeywords:     cfg.OfficerKeywords,
		NonOfficerKeywords:  cfg.NonOfficerKeywords,
		OrgEmailAllowlist:   cfg.OrgEmailAllowlist,
	}
	if opts.DefaultRole == "" {
		opts.DefaultRole = "Member"
	}
	if opts.OfficerRole == "" {
		opts.OfficerRole = "Affiliate Officer"
	}
	if opts.ExcludedAccessLevel == "" {
		opts.ExcludedAccessLevel = "affiliate administrator"
	}
	if opts.RoleThreshold <= 0 {
		opts.RoleThreshold = 0.30
	}
	if opts.OrgRoleThreshold <= 0 {
		opts.OrgRoleThreshold = 0.40
	}
	if opts.PositionThreshold <= 0 {
		opts.PositionThreshold = 0.30
	}
	if len(opts.RoleSynonyms) == 0 {
		opts.RoleSynonyms = DefaultRoleSynonyms
	}
	if len(opts.OfficerKeywords) == 0 {
		opts.OfficerKeywords = DefaultOfficerKeywords
	}
	if len(opts.NonOfficerKeywords) == 0 {
		opts.NonOfficerKeywords = DefaultNonOfficerKeywords
	}
	return opts
}

func (o Options) orgEmailAllowed(affiliateName string) bool {
	name := strings.TrimSpace(affiliateName)
	if name == "" {
		return false
	}
	for _, allowed := range o.OrgEmailAllowlist {
		if strings.EqualFold(strings.TrimSpace(allowed), name) {
			return true
		}
	}
	return false
}

// isOfficer reports whether a position title names an officer seat.
func (o Options) isOfficer(position string) bool {
	p := " " + strings.ToLower(strings.Join(strings.Fields(position), " ")) + " "
	for _, kw := range o.NonOfficerKeywords {
		if containsWord(p, kw) {
			return false
		}
	}
	for _, kw := range o.OfficerKeywords {
		if containsWord(p, kw) {
			return true
		}
	}
	return false
}

// containsWord expects padded to be lower-case and wrapped in single spaces.
func containsWord(padded, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false
	}
	return strings.Contains(padded, " "+word+" ")
}
