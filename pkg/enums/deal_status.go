package enums

import "fmt"

// DealStatus is the lifecycle state of a deal, independent of its stage.
type DealStatus string

const (
	DealStatusActive   DealStatus = "active"
	DealStatusWon      DealStatus = "won"
	DealStatusLost     DealStatus = "lost"
	DealStatusArchived DealStatus = "archived"
)

var validDealStatuses = []DealStatus{
	DealStatusActive,
	DealStatusWon,
	DealStatusLost,
	DealStatusArchived,
}

// String implements fmt.Stringer.
func (d DealStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DealStatus.
func (d DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDealStatus converts the raw string to DealStatus.
func ParseDealStatus(value string) (DealStatus, error) {
	for _, candidate := range validDealStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal status %q", value)
}
