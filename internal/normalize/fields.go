package normalize

import (
	"strings"
	"unicode"
)

const (
	FieldMemberID           = "Member ID"
	FieldFirstName          = "First Name"
	FieldLastName           = "Last Name"
	FieldEmail              = "Email"
	FieldWorkEmail          = "Work Email"
	FieldHomeEmail          = "Home Email"
	FieldMobilePhone        = "Mobile Phone"
	FieldHomePhone          = "Home Phone"
	FieldWorkPhone          = "Work Phone"
	FieldAddressLine1       = "Address Line 1"
	FieldAddressLine2       = "Address Line 2"
	FieldCity               = "City"
	FieldState              = "State"
	FieldZipCode            = "Zip Code"
	FieldJobTitle           = "Job Title"
	FieldMemberLevel        = "Member Level"
	FieldMemberStatus       = "Member Status"
	FieldEmploymentStatus   = "Employment Status"
	FieldSelfIdentification = "Self Identification"
	FieldAffiliate          = "Affiliate"
	FieldAccessLevel        = "Access Level"
	FieldPosition           = "Position"
)

// fieldSynonyms is keyed by the squashed header (lower-case letters and digits only).
var fieldSynonyms = map[string]string{
	"memberid":           FieldMemberID,
	"membershipid":       FieldMemberID,
	"membernumber":       FieldMemberID,
	"membershipno":       FieldMemberID,
	"memberno":           FieldMemberID,
	"id":                 FieldMemberID,
	"firstname":          FieldFirstName,
	"first":              FieldFirstName,
	"fname":              FieldFirstName,
	"givenname":          FieldFirstName,
	"forename":           FieldFirstName,
	"lastname":           FieldLastName,
	"last":               FieldLastName,
	"lname":              FieldLastName,
	"surname":            FieldLastName,
	"familyname":         FieldLastName,
	"email":              FieldEmail,
	"emailaddress":       FieldEmail,
	"mail":               FieldEmail,
	"workemail":          FieldWorkEmail,
	"businessemail":      FieldWorkEmail,
	"officeemail":        FieldWorkEmail,
	"homeemail":          FieldHomeEmail,
	"personalemail":      FieldHomeEmail,
	"privateemail":       FieldHomeEmail,
	"mobilephone":        FieldMobilePhone,
	"mobile":             FieldMobilePhone,
	"cellphone":          FieldMobilePhone,
	"cell":               FieldMobilePhone,
	"phone":              FieldMobilePhone,
	"phonenumber":        FieldMobilePhone,
	"homephone":          FieldHomePhone,
	"workphone":          FieldWorkPhone,
	"officephone":        FieldWorkPhone,
	"businessphone":      FieldWorkPhone,
	"address":            FieldAddressLine1,
	"address1":           FieldAddressLine1,
	"addressline1":       FieldAddressLine1,
	"streetaddress":      FieldAddressLine1,
	"street":             FieldAddressLine1,
	"address2":           FieldAddressLine2,
	"addressline2":       FieldAddressLine2,
	"city":               FieldCity,
	"town":               FieldCity,
	"state":              FieldState,
	"province":           FieldState,
	"st":                 FieldState,
	"zip":                FieldZipCode,
	"zipcode":            FieldZipCode,
	"postalcode":         FieldZipCode,
	"postcode":           FieldZipCode,
	"jobtitle":           FieldJobTitle,
	"title":              FieldJobTitle,
	"memberlevel":        FieldMemberLevel,
	"level":              FieldMemberLevel,
	"membershiplevel":    FieldMemberLevel,
	"membertype":         FieldMemberLevel,
	"memberstatus":       FieldMemberStatus,
	"status":             FieldMemberStatus,
	"membershipstatus":   FieldMemberStatus,
	"employmentstatus":   FieldEmploymentStatus,
	"employment":         FieldEmploymentStatus,
	"employmenttype":     FieldEmploymentStatus,
	"selfidentification": FieldSelfIdentification,
	"selfid":             FieldSelfIdentification,
	"selfidentify":       FieldSelfIdentification,
	"affiliate":          FieldAffiliate,
	"affiliatename":      FieldAffiliate,
	"local":              FieldAffiliate,
	"localname":          FieldAffiliate,
	"chapter":            FieldAffiliate,
	"accesslevel":        FieldAccessLevel,
	"access":             FieldAccessLevel,
	"role":               FieldAccessLevel,
	"position":           FieldPosition,
	"positions":          FieldPosition,
	"officerposition":    FieldPosition,
	"officertitle":       FieldPosition,
}

// MapFieldName maps a raw CSV header onto its canonical field name.
// Unknown headers are returned title-cased.
func MapFieldName(raw string) string {
	cleaned := collapse(raw)
	if canonical, ok := fieldSynonyms[squash(cleaned)]; ok {
		return canonical
	}
	if cleaned == "" {
		return ""
	}
	return titleCase(strings.NewReplacer("_", " ", "-", " ").Replace(cleaned))
}

func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
