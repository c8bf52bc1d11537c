package enums

import "fmt"

// MixcloudStatus tracks the outbound publish state of an episode's audio.
type MixcloudStatus string

const (
	MixcloudStatusPending   MixcloudStatus = "pending"
	MixcloudStatusUploading MixcloudStatus = "uploading"
	MixcloudStatusUploaded  MixcloudStatus = "uploaded"
	MixcloudStatusFailed    MixcloudStatus = "failed"
)

var validMixcloudStatuses = []MixcloudStatus{
	MixcloudStatusPending,
	MixcloudStatusUploading,
	MixcloudStatusUploaded,
	MixcloudStatusFailed,
}

// String implements fmt.Stringer.
func (m MixcloudStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MixcloudStatus.
func (m MixcloudStatus) IsValid() bool {
	for _, candidate := range validMixcloudStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMixcloudStatus converts raw input into a MixcloudStatus.
func ParseMixcloudStatus(value string) (MixcloudStatus, error) {
	for _, candidate := range validMixcloudStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid mixcloud status %q", value)
}
