package enums

import "fmt"

// ContactType tracks where a contact sits in the funnel.
type ContactType string

const (
	ContactTypeLead     ContactType = "lead"
	ContactTypeProspect ContactType = "prospect"
	ContactTypeCustomer ContactType = "customer"
)

var validContactTypes = []ContactType{
	ContactTypeLead,
	ContactTypeProspect,
	ContactTypeCustomer,
}

// IsValid reports whether the value is a known ContactType.
func (c ContactType) IsValid() bool {
	for _, candidate := range validContactTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContactType converts the raw string to ContactType.
func ParseContactType(value string) (ContactType, error) {
	for _, candidate := range validContactTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contact type %q", value)
}
