package models

import "time"

type Role struct {
	ID   string `gorm:"type:varchar(36);primaryKey"`
	Name string `gorm:"size:120;not null;uniqueIndex"`
}

func (Role) TableName() string {
	return "roles"
}

type UserRole struct {
	UserID    string `gorm:"type:varchar(36);primaryKey"`
	RoleID    string `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time
}

func (UserRole) TableName() string {
	return "user_roles"
}

type OrgRole struct {
	ID   string `gorm:"type:varchar(36);primaryKey"`
	Name string `gorm:"size:120;not null;uniqueIndex"`
}

func (OrgRole) TableName() string {
	return "org_roles"
}

type MemberOrgRole struct {
	MemberID  string `gorm:"type:varchar(36);primaryKey"`
	OrgRoleID string `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time
}

func (MemberOrgRole) TableName() string {
	return "member_org_roles"
}

type OfficerPosition struct {
	ID   string `gorm:"type:varchar(36);primaryKey"`
	Name string `gorm:"size:120;not null;uniqueIndex"`
}

func (OfficerPosition) TableName() string {
	return "officer_positions"
}

type AffiliateOfficer struct {
	ID                string    `gorm:"type:varchar(36);primaryKey"`
	AffiliateID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_affiliate_officers_link,priority:1"`
	OfficerPositionID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_affiliate_officers_link,priority:2"`
	MemberID          string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_affiliate_officers_link,priority:3"`
	StartDate         time.Time `gorm:"not null"`
	IsPrimary         bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (AffiliateOfficer) TableName() string {
	return "affiliate_officers"
}
