package enums

import "fmt"

// ShowStatus describes the operational state of a show.
type ShowStatus string

const (
	ShowStatusActive   ShowStatus = "active"
	ShowStatusInactive ShowStatus = "inactive"
	ShowStatusArchived ShowStatus = "archived"
)

var validShowStatuses = []ShowStatus{
	ShowStatusActive,
	ShowStatusInactive,
	ShowStatusArchived,
}

// String implements fmt.Stringer.
func (s ShowStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShowStatus.
func (s ShowStatus) IsValid() bool {
	for _, candidate := range validShowStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShowStatus converts raw input into a ShowStatus.
func ParseShowStatus(value string) (ShowStatus, error) {
	for _, candidate := range validShowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid show status %q", value)
}
