package member

import "strings"

// Field is one header/value pair of a CSV row.
type Field struct {
	Key   string
	Value string
}

// RawRow keeps fields in input order. Keys may repeat.
type RawRow []Field

// Get returns the first non-empty value stored under key.
func (r RawRow) Get(key string) string {
	for _, f := range r {
		if f.Key == key && strings.TrimSpace(f.Value) != "" {
			return f.Value
		}
	}
	return ""
}

func (r RawRow) Has(key string) bool {
	for _, f := range r {
		if f.Key == key {
			return true
		}
	}
	return false
}

// Empty reports whether every value is blank.
func (r RawRow) Empty() bool {
	for _, f := range r {
		if strings.TrimSpace(f.Value) != "" {
			return false
		}
	}
	return true
}

func (r RawRow) Map() map[string]string {
	out := make(map[string]string, len(r))
	for _, f := range r {
		if _, exists := out[f.Key]; exists && strings.TrimSpace(f.Value) == "" {
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}

// CleanedRow is the typed form of a roster row after normalization. Nil means absent.
type CleanedRow struct {
	MemberID           *string
	FirstName          *string
	LastName           *string
	Email              *string
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
	AffiliateName      *string
	AccessLevel        *string
	Position           *string
	Extra              map[string]string
}

// PrimaryEmail is the address used for the login identity.
func (c CleanedRow) PrimaryEmail() *string {
	if c.WorkEmail != nil {
		return c.WorkEmail
	}
	return c.HomeEmail
}

func (c CleanedRow) FullName() string {
	parts := make([]string, 0, 2)
	if c.FirstName != nil {
		parts = append(parts, *c.FirstName)
	}
	if c.LastName != nil {
		parts = append(parts, *c.LastName)
	}
	return strings.Join(parts, " ")
}
