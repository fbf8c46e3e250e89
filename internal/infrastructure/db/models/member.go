package models

import "time"

type User struct {
	ID             string  `gorm:"type:varchar(36);primaryKey"`
	Name           string  `gorm:"size:255;not null"`
	Email          *string `gorm:"size:320;uniqueIndex"`
	PasswordHash   string  `gorm:"size:255;not null"`
	ExternalAuthID *string `gorm:"size:255;index"`
	CreatedBy      *string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (User) TableName() string {
	return "users"
}

type Member struct {
	ID                 string  `gorm:"type:varchar(36);primaryKey"`
	UserID             string  `gorm:"type:varchar(36);not null;index"`
	AffiliateID        *string `gorm:"type:varchar(36);index"`
	MemberID           string  `gorm:"size:64;not null;uniqueIndex"`
	FirstName          *string `gorm:"size:120"`
	LastName           *string `gorm:"size:120"`
	WorkEmail          *string `gorm:"size:320;index"`
	HomeEmail          *string `gorm:"size:320;index"`
	MobilePhone        *string `gorm:"size:32"`
	HomePhone          *string `gorm:"size:32"`
	WorkPhone          *string `gorm:"size:32"`
	AddressLine1       *string `gorm:"size:255"`
	AddressLine2       *string `gorm:"size:255"`
	City               *string `gorm:"size:120"`
	State              *string `gorm:"size:8"`
	ZipCode            *string `gorm:"size:16"`
	JobTitle           *string `gorm:"size:255"`
	MemberLevel        *string `gorm:"size:64"`
	MemberStatus       *string `gorm:"size:32"`
	EmploymentStatus   *string `gorm:"size:32"`
	SelfIdentification *string `gorm:"size:255"`
	CreatedBy          *string `gorm:"size:64"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Member) TableName() string {
	return "members"
}

type Affiliate struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"size:255;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Affiliate) TableName() string {
	return "affiliates"
}
