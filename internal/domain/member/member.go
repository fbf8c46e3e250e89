package member

import "time"

type User struct {
	ID             string
	Name           string
	Email          *string
	PasswordHash   string
	ExternalAuthID *string
	CreatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Member struct {
	ID                 string
	UserID             string
	AffiliateID        *string
	MemberID           string
	FirstName          *string
	LastName           *string
	WorkEmail          *string
	HomeEmail          *string
	MobilePhone        *string
	HomePhone          *string
	WorkPhone          *string
	AddressLine1       *string
	AddressLine2       *string
	City               *string
	State              *string
	ZipCode            *string
	JobTitle           *string
	MemberLevel        *string
	MemberStatus       *string
	EmploymentStatus   *string
	SelfIdentification *string
	CreatedBy          *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Affiliate struct {
	ID   string
	Name string
}

// Role is a system-wide, user-level role.
type Role struct {
	ID   string
	Name string
}

// OrgRole is a member-level organization role.
type OrgRole struct {
	ID   string
	Name string
}

type OfficerPosition struct {
	ID   string
	Name string
}

type AffiliateOfficer struct {
	ID                string
	AffiliateID       string
	OfficerPositionID string
	MemberID          string
	StartDate         time.Time
	IsPrimary         bool
}
