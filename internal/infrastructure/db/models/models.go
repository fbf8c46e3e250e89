package models

// All lists every table owned by the import pipeline, in migration order.
func All() []any {
	return []any{
		&Import{},
		&ImportChunk{},
		&User{},
		&Member{},
		&Affiliate{},
		&Role{},
		&UserRole{},
		&OrgRole{},
		&MemberOrgRole{},
		&OfficerPosition{},
		&AffiliateOfficer{},
	}
}
