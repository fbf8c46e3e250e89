package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammadpnp/member-import/internal/domain/member"
)

var ErrRoleCatalog = errors.New("role catalog is incomplete")

// Assignment lists what a row was granted, by catalog name.
type Assignment struct {
	Roles     []string
	OrgRoles  []string
	Positions []string
	Unmatched []string
}

type Assigner struct {
	store member.RoleStore
	opts  Options
	log   zerolog.Logger
	now   func() time.Time
}

func NewAssigner(store member.RoleStore, opts Options, log zerolog.Logger) *Assigner {
	return &Assigner{
		store: store,
		opts:  opts,
		log:   log.With().Str("component", "role_assigner").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Assign grants the baseline role plus whatever the Access Level and Position
// fields resolve to. Unmatched values are reported, never created.
func (a *Assigner) Assign(ctx context.Context, user *member.User, m *member.Member, row member.CleanedRow, affiliateID *string) (Assignment, error) {
	var out Assignment

	if err := a.grantNamedRole(ctx, user.ID, a.opts.DefaultRole, &out); err != nil {
		return out, err
	}

	if level := row.AccessLevel; level != nil && !strings.EqualFold(strings.TrimSpace(*level), a.opts.ExcludedAccessLevel) {
		if err := a.assignAccessLevel(ctx, user, m, *level, &out); err != nil {
			return out, err
		}
	}

	if row.Position != nil {
		if err := a.assignPositions(ctx, user, m, *row.Position, affiliateID, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (a *Assigner) grantNamedRole(ctx context.Context, userID, name string, out *Assignment) error {
	role, err := a.store.FindRoleByName(ctx, name)
	if errors.Is(err, member.ErrNotFound) {
		return fmt.Errorf("%w: role %q is missing", ErrRoleCatalog, name)
	}
	if err != nil {
		return fmt.Errorf("find role %q: %w", name, err)
	}
	if err := a.store.AssignUserRole(ctx, userID, role.ID); err != nil {
		return fmt.Errorf("assign role %q: %w", role.Name, err)
	}
	out.Roles = appendOnce(out.Roles, role.Name)
	return nil
}

func (a *Assigner) assignAccessLevel(ctx context.Context, user *member.User, m *member.Member, level string, out *Assignment) error {
	roles, err := a.store.ListRoles(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	candidates := make([]candidate, 0, len(roles))
	for _, r := range roles {
		candidates = append(candidates, candidate{ID: r.ID, Name: r.Name})
	}
	if match, kind, ok := bestMatch(level, candidates, a.opts.RoleSynonyms, a.opts.RoleThreshold); ok {
		if err := a.store.AssignUserRole(ctx, user.ID, match.ID); err != nil {
			return fmt.Errorf("assign role %q: %w", match.Name, err)
		}
		out.Roles = appendOnce(out.Roles, match.Name)
		a.log.Debug().Str("access_level", level).Str("role", match.Name).Str("match", string(kind)).Msg("access level matched role")
	} else {
		out.Unmatched = append(out.Unmatched, "access level: "+level)
	}

	orgRoles, err := a.store.ListOrgRoles(ctx)
	if err != nil {
		return fmt.Errorf("list org roles: %w", err)
	}
	candidates = candidates[:0]
	for _, r := range orgRoles {
		candidates = append(candidates, candidate{ID: r.ID, Name: r.Name})
	}
	if match, _, ok := bestMatch(level, candidates, nil, a.opts.OrgRoleThreshold); ok {
		if err := a.store.AssignMemberOrgRole(ctx, m.ID, match.ID); err != nil {
			return fmt.Errorf("assign org role %q: %w", match.Name, err)
		}
		out.OrgRoles = appendOnce(out.OrgRoles, match.Name)
	}
	return nil
}

func (a *Assigner) assignPositions(ctx context.Context, user *member.User, m *member.Member, raw string, affiliateID *string, out *Assignment) error {
	tokens := splitPositions(raw)
	if len(tokens) == 0 {
		return nil
	}

	positions, err := a.store.ListOfficerPositions(ctx)
	if err != nil {
		return fmt.Errorf("list officer positions: %w", err)
	}
	candidates := make([]candidate, 0, len(positions))
	for _, p := range positions {
		candidates = append(candidates, candidate{ID: p.ID, Name: p.Name})
	}

	for _, token := range tokens {
		if a.opts.isOfficer(token) {
			if err := a.grantNamedRole(ctx, user.ID, a.opts.OfficerRole, out); err != nil {
				return err
			}
		}

		match, _, ok := bestMatch(token, candidates, nil, a.opts.PositionThreshold)
		if !ok {
			a.log.Info().Str("position", token).Msg("position not in catalog, skipped")
			out.Unmatched = append(out.Unmatched, "position: "+token)
			continue
		}
		if affiliateID == nil {
			a.log.Info().Str("position", match.Name).Msg("officer position needs an affiliate, skipped")
			out.Unmatched = append(out.Unmatched, "position without affiliate: "+token)
			continue
		}

		link := &member.AffiliateOfficer{
			AffiliateID:       *affiliateID,
			OfficerPositionID: match.ID,
			MemberID:          m.ID,
			StartDate:         a.now(),
			IsPrimary:         true,
		}
		if err := a.store.EnsureAffiliateOfficer(ctx, link); err != nil {
			return fmt.Errorf("link officer position %q: %w", match.Name, err)
		}
		out.Positions = appendOnce(out.Positions, match.Name)
	}
	return nil
}

// splitPositions breaks "President + Treasurer, Delegate" apart and drops plain "Member".
func splitPositions(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '+' || r == '&' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Join(strings.Fields(f), " ")
		if f == "" || strings.EqualFold(f, "member") {
			continue
		}
		out = append(out, f)
	}
	return out
}

func appendOnce(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
