package enums

import "fmt"

// ShowRequestStatus tracks where a show sits in the approval workflow.
type ShowRequestStatus string

const (
	ShowRequestStatusPending  ShowRequestStatus = "pending"
	ShowRequestStatusApproved ShowRequestStatus = "approved"
	ShowRequestStatusRejected ShowRequestStatus = "rejected"
)

var validShowRequestStatuses = []ShowRequestStatus{
	ShowRequestStatusPending,
	ShowRequestStatusApproved,
	ShowRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s ShowRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShowRequestStatus.
func (s ShowRequestStatus) IsValid() bool {
	for _, candidate := range validShowRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShowRequestStatus converts raw input into a ShowRequestStatus.
func ParseShowRequestStatus(value string) (ShowRequestStatus, error) {
	for _, candidate := range validShowRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid show request status %q", value)
}
