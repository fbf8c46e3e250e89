package normalize

import (
	"github.com/mohammadpnp/member-import/internal/domain/member"
)

// NormalizeKeys maps every header of row onto its canonical name, preserving order.
func NormalizeKeys(row member.RawRow) member.RawRow {
	out := make(member.RawRow, 0, len(row))
	for _, f := range row {
		key := MapFieldName(f.Key)
		if key == "" {
			continue
		}
		out = append(out, member.Field{Key: key, Value: CleanString(f.Value)})
	}
	return out
}

// Cleaner converts canonical-keyed rows into typed rows.
type Cleaner struct {
	acronyms []string
}

func NewCleaner(acronyms []string) *Cleaner {
	if len(acronyms) == 0 {
		acronyms = DefaultAcronyms
	}
	return &Cleaner{acronyms: acronyms}
}

var canonicalFields = map[string]struct{}{
	FieldMemberID:           {},
	FieldFirstName:          {},
	FieldLastName:           {},
	FieldEmail:              {},
	FieldWorkEmail:          {},
	FieldHomeEmail:          {},
	FieldMobilePhone:        {},
	FieldHomePhone:          {},
	FieldWorkPhone:          {},
	FieldAddressLine1:       {},
	FieldAddressLine2:       {},
	FieldCity:               {},
	FieldState:              {},
	FieldZipCode:            {},
	FieldJobTitle:           {},
	FieldMemberLevel:        {},
	FieldMemberStatus:       {},
	FieldEmploymentStatus:   {},
	FieldSelfIdentification: {},
	FieldAffiliate:          {},
	FieldAccessLevel:        {},
	FieldPosition:           {},
}

// Clean expects keys already passed through NormalizeKeys.
func (c *Cleaner) Clean(row member.RawRow) member.CleanedRow {
	cleaned := member.CleanedRow{
		MemberID:           CleanText(row.Get(FieldMemberID)),
		FirstName:          CleanName(row.Get(FieldFirstName)),
		LastName:           CleanName(row.Get(FieldLastName)),
		Email:              CleanEmail(row.Get(FieldEmail)),
		WorkEmail:          CleanEmail(row.Get(FieldWorkEmail)),
		HomeEmail:          CleanEmail(row.Get(FieldHomeEmail)),
		MobilePhone:        CleanPhone(row.Get(FieldMobilePhone)),
		HomePhone:          CleanPhone(row.Get(FieldHomePhone)),
		WorkPhone:          CleanPhone(row.Get(FieldWorkPhone)),
		AddressLine1:       CleanText(row.Get(FieldAddressLine1)),
		AddressLine2:       CleanText(row.Get(FieldAddressLine2)),
		City:               CleanText(row.Get(FieldCity)),
		State:              FormatState(row.Get(FieldState)),
		ZipCode:            CleanZipCode(row.Get(FieldZipCode)),
		JobTitle:           CleanText(row.Get(FieldJobTitle)),
		MemberLevel:        CleanMemberLevel(row.Get(FieldMemberLevel)),
		MemberStatus:       CleanMemberStatus(row.Get(FieldMemberStatus)),
		EmploymentStatus:   CleanEmploymentStatus(row.Get(FieldEmploymentStatus)),
		SelfIdentification: CleanText(row.Get(FieldSelfIdentification)),
		AffiliateName:      FormatAffiliateName(row.Get(FieldAffiliate), c.acronyms),
		AccessLevel:        CleanText(row.Get(FieldAccessLevel)),
		Position:           CleanText(row.Get(FieldPosition)),
	}
	if cleaned.WorkEmail == nil && cleaned.Email != nil {
		cleaned.WorkEmail = cleaned.Email
	}
	if cleaned.City != nil {
		cleaned.City = CleanName(*cleaned.City)
	}

	for _, f := range row {
		if _, ok := canonicalFields[f.Key]; ok {
			continue
		}
		if v := CleanText(f.Value); v != nil {
			if cleaned.Extra == nil {
				cleaned.Extra = make(map[string]string)
			}
			if _, exists := cleaned.Extra[f.Key]; !exists {
				cleaned.Extra[f.Key] = *v
			}
		}
	}
	return cleaned
}
