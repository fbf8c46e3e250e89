package member

import "context"

// Store is the datastore surface used by reconciliation. Finders return ErrNotFound when nothing matches.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	SetUserExternalAuthID(ctx context.Context, userID, externalID string) error

	FindMemberByMemberID(ctx context.Context, memberID string) (*Member, error)
	FindMemberByWorkEmail(ctx context.Context, email string) (*Member, error)
	FindMemberByHomeEmail(ctx context.Context, email string) (*Member, error)
	FindMemberByUserID(ctx context.Context, userID string) (*Member, error)
	CreateMember(ctx context.Context, m *Member) error
	UpdateMember(ctx context.Context, m *Member) error

	FindAffiliateByID(ctx context.Context, id string) (*Affiliate, error)
	FindOrCreateAffiliate(ctx context.Context, name string) (*Affiliate, error)
}

// RoleStore is the datastore surface used by role and position assignment.
type RoleStore interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	AssignUserRole(ctx context.Context, userID, roleID string) error

	ListOrgRoles(ctx context.Context) ([]OrgRole, error)
	AssignMemberOrgRole(ctx context.Context, memberID, orgRoleID string) error

	ListOfficerPositions(ctx context.Context) ([]OfficerPosition, error)
	EnsureAffiliateOfficer(ctx context.Context, officer *AffiliateOfficer) error
}
