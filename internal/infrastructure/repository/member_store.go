package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

// MemberStore backs reconciliation and role assignment with gorm.
type MemberStore struct {
	db *gorm.DB
}

func NewMemberStore(db *gorm.DB) *MemberStore {
	return &MemberStore{db: db}
}

func (s *MemberStore) FindUserByID(ctx context.Context, id string) (*member.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *MemberStore) FindUserByEmail(ctx context.Context, email string) (*member.User, error) {
	return s.findUser(ctx, "LOWER(email) = LOWER(?)", email)
}

func (s *MemberStore) findUser(ctx context.Context, query string, arg any) (*member.User, error) {
	var row models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		return nil, translate("find user", err)
	}
	u := userDomain(row)
	return &u, nil
}

func (s *MemberStore) CreateUser(ctx context.Context, u *member.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := userModel(u)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create user", err)
	}
	u.CreatedAt, u.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *MemberStore) UpdateUser(ctx context.Context, u *member.User) error {
	row := userModel(u)
	row.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", u.ID).
		Select("name", "email", "external_auth_id", "updated_at").
		Updates(&row).Error
	return translate("update user", err)
}

// DeleteUser removes a user that never got a member, so a failed row leaves nothing behind.
func (s *MemberStore) DeleteUser(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{}).Error
	return translate("delete user", err)
}

func (s *MemberStore) SetUserExternalAuthID(ctx context.Context, userID, externalID string) error {
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"external_auth_id": externalID, "updated_at": time.Now().UTC()}).Error
	return translate("set external auth id", err)
}

func (s *MemberStore) FindMemberByMemberID(ctx context.Context, memberID string) (*member.Member, error) {
	return s.findMember(ctx, "member_id = ?", memberID)
}

func (s *MemberStore) FindMemberByWorkEmail(ctx context.Context, email string) (*member.Member, error) {
	return s.findMember(ctx, "LOWER(work_email) = LOWER(?)", email)
}

func (s *MemberStore) FindMemberByHomeEmail(ctx context.Context, email string) (*member.Member, error) {
	return s.findMember(ctx, "LOWER(home_email) = LOWER(?)", email)
}

func (s *MemberStore) FindMemberByUserID(ctx context.Context, userID string) (*member.Member, error) {
	return s.findMember(ctx, "user_id = ?", userID)
}

func (s *MemberStore) findMember(ctx context.Context, query string, arg any) (*member.Member, error) {
	var row models.Member
	if err := s.db.WithContext(ctx).Where(query, arg).Order("created_at ASC").First(&row).Error; err != nil {
		return nil, translate("find member", err)
	}
	m := memberDomain(row)
	return &m, nil
}

func (s *MemberStore) CreateMember(ctx context.Context, m *member.Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := memberModel(m)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate("create member", err)
	}
	m.CreatedAt, m.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *MemberStore) UpdateMember(ctx context.Context, m *member.Member) error {
	row := memberModel(m)
	row.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(&row).Error
	return translate("update member", err)
}

func (s *MemberStore) FindAffiliateByID(ctx context.Context, id string) (*member.Affiliate, error) {
	var row models.Affiliate
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate("find affiliate", err)
	}
	return &member.Affiliate{ID: row.ID, Name: row.Name}, nil
}

// FindOrCreateAffiliate matches names case-insensitively. A concurrent insert of
// the same name is resolved by reading the winner back.
func (s *MemberStore) FindOrCreateAffiliate(ctx context.Context, name string) (*member.Affiliate, error) {
	find := func() (*member.Affiliate, error) {
		var row models.Affiliate
		err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error
		if err != nil {
			return nil, translate("find affiliate", err)
		}
		return &member.Affiliate{ID: row.ID, Name: row.Name}, nil
	}

	a, err := find()
	if err == nil || !errors.Is(err, member.ErrNotFound) {
		return a, err
	}

	row := models.Affiliate{ID: uuid.NewString(), Name: name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return find()
		}
		return nil, translate("create affiliate", err)
	}
	return &member.Affiliate{ID: row.ID, Name: row.Name}, nil
}

func (s *MemberStore) ListRoles(ctx context.Context) ([]member.Role, error) {
	var rows []models.Role
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate("list roles", err)
	}
	out := make([]member.Role, 0, len(rows))
	for _, row := range rows {
		out = append(out, member.Role{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *MemberStore) FindRoleByName(ctx context.Context, name string) (*member.Role, error) {
	var row models.Role
	if err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&row).Error; err != nil {
		return nil, translate("find role", err)
	}
	return &member.Role{ID: row.ID, Name: row.Name}, nil
}

func (s *MemberStore) AssignUserRole(ctx context.Context, userID, roleID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
	return translate("assign user role", err)
}

func (s *MemberStore) ListOrgRoles(ctx context.Context) ([]member.OrgRole, error) {
	var rows []models.OrgRole
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate("list org roles", err)
	}
	out := make([]member.OrgRole, 0, len(rows))
	for _, row := range rows {
		out = append(out, member.OrgRole{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

func (s *MemberStore) AssignMemberOrgRole(ctx context.Context, memberID, orgRoleID string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.MemberOrgRole{MemberID: memberID, OrgRoleID: orgRoleID}).Error
	return translate("assign member org role", err)
}

func (s *MemberStore) ListOfficerPositions(ctx context.Context) ([]member.OfficerPosition, error) {
	var rows []models.OfficerPosition
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, translate("list officer positions", err)
	}
	out := make([]member.OfficerPosition, 0, len(rows))
	for _, row := range rows {
		out = append(out, member.OfficerPosition{ID: row.ID, Name: row.Name})
	}
	return out, nil
}

// EnsureAffiliateOfficer find-or-creates the (affiliate, position, member) link.
// An existing link keeps its start date.
func (s *MemberStore) EnsureAffiliateOfficer(ctx context.Context, officer *member.AffiliateOfficer) error {
	var row models.AffiliateOfficer
	where := "affiliate_id = ? AND officer_position_id = ? AND member_id = ?"
	err := s.db.WithContext(ctx).Where(where, officer.AffiliateID, officer.OfficerPositionID, officer.MemberID).First(&row).Error
	if err == nil {
		officer.ID, officer.StartDate, officer.IsPrimary = row.ID, row.StartDate, row.IsPrimary
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translate("find affiliate officer", err)
	}

	row = models.AffiliateOfficer{
		ID:                uuid.NewString(),
		AffiliateID:       officer.AffiliateID,
		OfficerPositionID: officer.OfficerPositionID,
		MemberID:          officer.MemberID,
		StartDate:         officer.StartDate,
		IsPrimary:         officer.IsPrimary,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return translate("create affiliate officer", err)
	}
	officer.ID = row.ID
	return nil
}

// SeedCatalog inserts any missing roles, org roles and officer positions by name.
func (s *MemberStore) SeedCatalog(ctx context.Context, roles, orgRoles, positions []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}
		for _, name := range roles {
			if err := tx.Clauses(insert).Create(&models.Role{ID: uuid.NewString(), Name: name}).Error; err != nil {
				return translate("seed role", err)
			}
		}
		for _, name := range orgRoles {
			if err := tx.Clauses(insert).Create(&models.OrgRole{ID: uuid.NewString(), Name: name}).Error; err != nil {
				return translate("seed org role", err)
			}
		}
		for _, name := range positions {
			if err := tx.Clauses(insert).Create(&models.OfficerPosition{ID: uuid.NewString(), Name: name}).Error; err != nil {
				return translate("seed officer position", err)
			}
		}
		return nil
	})
}

func userModel(u *member.User) models.User {
	return models.User{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		ExternalAuthID: u.ExternalAuthID,
		CreatedBy:      u.CreatedBy,
	}
}

func userDomain(row models.User) member.User {
	return member.User{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		PasswordHash:   row.PasswordHash,
		ExternalAuthID: row.ExternalAuthID,
		CreatedBy:      row.CreatedBy,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func memberModel(m *member.Member) models.Member {
	return models.Member{
		ID:                 m.ID,
		UserID:             m.UserID,
		AffiliateID:        m.AffiliateID,
		MemberID:           m.MemberID,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		WorkEmail:          m.WorkEmail,
		HomeEmail:          m.HomeEmail,
		MobilePhone:        m.MobilePhone,
		HomePhone:          m.HomePhone,
		WorkPhone:          m.WorkPhone,
		AddressLine1:       m.AddressLine1,
		AddressLine2:       m.AddressLine2,
		City:               m.City,
		State:              m.State,
		ZipCode:            m.ZipCode,
		JobTitle:           m.JobTitle,
		MemberLevel:        m.MemberLevel,
		MemberStatus:       m.MemberStatus,
		EmploymentStatus:   m.EmploymentStatus,
		SelfIdentification: m.SelfIdentification,
		CreatedBy:          m.CreatedBy,
	}
}

func memberDomain(row models.Member) member.Member {
	return member.Member{
		ID:                 row.ID,
		UserID:             row.UserID,
		AffiliateID:        row.AffiliateID,
		MemberID:           row.MemberID,
		FirstName:          row.FirstName,
		LastName:           row.LastName,
		WorkEmail:          row.WorkEmail,
		HomeEmail:          row.HomeEmail,
		MobilePhone:        row.MobilePhone,
		HomePhone:          row.HomePhone,
		WorkPhone:          row.WorkPhone,
		AddressLine1:       row.AddressLine1,
		AddressLine2:       row.AddressLine2,
		City:               row.City,
		State:              row.State,
		ZipCode:            row.ZipCode,
		JobTitle:           row.JobTitle,
		MemberLevel:        row.MemberLevel,
		MemberStatus:       row.MemberStatus,
		EmploymentStatus:   row.EmploymentStatus,
		SelfIdentification: row.SelfIdentification,
		CreatedBy:          row.CreatedBy,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
