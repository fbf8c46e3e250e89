package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/repository"
	"github.com/mohammadpnp/member-import/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestMemberStoreUserLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemberStore(testutil.NewTestDB(t))

	u := &member.User{Name: "Jane Doe", Email: strPtr("jane@union.org"), PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := store.FindUserByEmail(ctx, "JANE@Union.org")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = store.FindUserByEmail(ctx, "nobody@union.org")
	require.ErrorIs(t, err, member.ErrNotFound)

	err = store.CreateUser(ctx, &member.User{Name: "Copy", Email: strPtr("jane@union.org"), PasswordHash: "x"})
	require.ErrorIs(t, err, member.ErrDuplicateKey)

	require.NoError(t, store.SetUserExternalAuthID(ctx, u.ID, "ext-1"))
	got, err = store.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "ext-1", *got.ExternalAuthID)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = store.FindUserByID(ctx, u.ID)
	require.ErrorIs(t, err, member.ErrNotFound)
	require.NoError(t, store.CreateUser(ctx, &member.User{Name: "Jane Again", Email: strPtr("jane@union.org"), PasswordHash: "x"}))
}

func TestMemberStoreMemberLookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemberStore(testutil.NewTestDB(t))

	u := &member.User{Name: "Ann Lee", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))

	m := &member.Member{
		UserID:    u.ID,
		MemberID:  "A100",
		FirstName: strPtr("Ann"),
		WorkEmail: strPtr("ann@work.com"),
		HomeEmail: strPtr("ann@home.com"),
		CreatedBy: strPtr("owner-1"),
	}
	require.NoError(t, store.CreateMember(ctx, m))

	for name, find := range map[string]func() (*member.Member, error){
		"member id":  func() (*member.Member, error) { return store.FindMemberByMemberID(ctx, "A100") },
		"work email": func() (*member.Member, error) { return store.FindMemberByWorkEmail(ctx, "ANN@work.com") },
		"home email": func() (*member.Member, error) { return store.FindMemberByHomeEmail(ctx, "ann@HOME.com") },
		"user":       func() (*member.Member, error) { return store.FindMemberByUserID(ctx, u.ID) },
	} {
		got, err := find()
		require.NoError(t, err, name)
		require.Equal(t, m.ID, got.ID, name)
	}

	m.City = strPtr("Austin")
	m.CreatedBy = strPtr("someone-else")
	require.NoError(t, store.UpdateMember(ctx, m))
	got, err := store.FindMemberByMemberID(ctx, "A100")
	require.NoError(t, err)
	require.Equal(t, "Austin", *got.City)
	require.Equal(t, "owner-1", *got.CreatedBy)

	err = store.CreateMember(ctx, &member.Member{UserID: u.ID, MemberID: "A100"})
	require.ErrorIs(t, err, member.ErrDuplicateKey)
}

func TestMemberStoreFindOrCreateAffiliate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemberStore(testutil.NewTestDB(t))

	first, err := store.FindOrCreateAffiliate(ctx, "Austin AFT Local 2")
	require.NoError(t, err)
	second, err := store.FindOrCreateAffiliate(ctx, "austin aft local 2")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	got, err := store.FindAffiliateByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "Austin AFT Local 2", got.Name)

	_, err = store.FindAffiliateByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, member.ErrNotFound)
}

func TestMemberStoreAssignmentsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := repository.NewMemberStore(testutil.NewTestDB(t))
	require.NoError(t, store.SeedCatalog(ctx,
		[]string{"Member", "Affiliate Officer"},
		[]string{"Steward"},
		[]string{"President", "Treasurer"},
	))
	require.NoError(t, store.SeedCatalog(ctx, []string{"Member"}, nil, nil))

	roles, err := store.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	role, err := store.FindRoleByName(ctx, "member")
	require.NoError(t, err)
	require.NoError(t, store.AssignUserRole(ctx, "user-1", role.ID))
	require.NoError(t, store.AssignUserRole(ctx, "user-1", role.ID))

	orgRoles, err := store.ListOrgRoles(ctx)
	require.NoError(t, err)
	require.Len(t, orgRoles, 1)
	require.NoError(t, store.AssignMemberOrgRole(ctx, "member-1", orgRoles[0].ID))
	require.NoError(t, store.AssignMemberOrgRole(ctx, "member-1", orgRoles[0].ID))

	positions, err := store.ListOfficerPositions(ctx)
	require.NoError(t, err)
	require.Equal(t, "President", positions[0].Name)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	link := &member.AffiliateOfficer{AffiliateID: "aff-1", OfficerPositionID: positions[0].ID, MemberID: "member-1", StartDate: start, IsPrimary: true}
	require.NoError(t, store.EnsureAffiliateOfficer(ctx, link))

	again := &member.AffiliateOfficer{AffiliateID: "aff-1", OfficerPositionID: positions[0].ID, MemberID: "member-1", StartDate: start.AddDate(1, 0, 0)}
	require.NoError(t, store.EnsureAffiliateOfficer(ctx, again))
	require.Equal(t, link.ID, again.ID)
	require.True(t, again.StartDate.Equal(start))
	require.True(t, again.IsPrimary)
}
