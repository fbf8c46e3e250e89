package reconcile_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/member-import/internal/application/reconcile"
	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/member-import/internal/testutil"
)

func seededAssigner(t *testing.T) (*reconcile.Assigner, *repository.MemberStore, *member.User, *member.Member, string) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemberStore(testutil.NewTestDB(t))
	require.NoError(t, store.SeedCatalog(ctx,
		[]string{"Member", "Affiliate Officer", "Building Rep", "Organizer"},
		[]string{"Steward", "Bargaining Team"},
		[]string{"President", "Treasurer", "Recording Secretary"},
	))

	u := &member.User{Name: "Ann", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))
	m := &member.Member{UserID: u.ID, MemberID: "A1"}
	require.NoError(t, store.CreateMember(ctx, m))
	aff, err := store.FindOrCreateAffiliate(ctx, "Local 1")
	require.NoError(t, err)

	return reconcile.NewAssigner(store, reconcile.DefaultOptions(), zerolog.Nop()), store, u, m, aff.ID
}

func TestAssignAlwaysGrantsDefaultRole(t *testing.T) {
	t.Parallel()

	a, _, u, m, _ := seededAssigner(t)
	out, err := a.Assign(context.Background(), u, m, member.CleanedRow{}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Member"}, out.Roles)

	out, err = a.Assign(context.Background(), u, m, member.CleanedRow{}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Member"}, out.Roles)
}

func TestAssignAccessLevelMatchesRoleAndOrgRole(t *testing.T) {
	t.Parallel()

	a, _, u, m, _ := seededAssigner(t)

	out, err := a.Assign(context.Background(), u, m, member.CleanedRow{AccessLevel: strPtr("site rep")}, nil)
	require.NoError(t, err)
	require.Contains(t, out.Roles, "Building Rep")

	out, err = a.Assign(context.Background(), u, m, member.CleanedRow{AccessLevel: strPtr("Organiser")}, nil)
	require.NoError(t, err)
	require.Contains(t, out.Roles, "Organizer")

	out, err = a.Assign(context.Background(), u, m, member.CleanedRow{AccessLevel: strPtr("Stewart")}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Steward"}, out.OrgRoles)

	out, err = a.Assign(context.Background(), u, m, member.CleanedRow{AccessLevel: strPtr("Affiliate Administrator")}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Member"}, out.Roles)
	require.Empty(t, out.Unmatched)
}

func TestAssignPositionsLinksCatalogOfficers(t *testing.T) {
	t.Parallel()

	a, _, u, m, affiliateID := seededAssigner(t)

	out, err := a.Assign(context.Background(), u, m, member.CleanedRow{
		Position: strPtr("President + Tresurer & Member, Bus Driver"),
	}, &affiliateID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"President", "Treasurer"}, out.Positions)
	require.Contains(t, out.Roles, "Affiliate Officer")
	require.Equal(t, []string{"position: Bus Driver"}, out.Unmatched)

	again, err := a.Assign(context.Background(), u, m, member.CleanedRow{Position: strPtr("President")}, &affiliateID)
	require.NoError(t, err)
	require.Equal(t, []string{"President"}, again.Positions)
}

func TestAssignPositionWithoutAffiliateIsSkipped(t *testing.T) {
	t.Parallel()

	a, _, u, m, _ := seededAssigner(t)
	out, err := a.Assign(context.Background(), u, m, member.CleanedRow{Position: strPtr("Former President")}, nil)
	require.NoError(t, err)
	require.Empty(t, out.Positions)
	require.NotContains(t, out.Roles, "Affiliate Officer")
}

func strPtr(s string) *string { return &s }
