package enums

import "fmt"

// EpisodeStatus describes the publication state of an episode.
type EpisodeStatus string

const (
	EpisodeStatusDraft     EpisodeStatus = "draft"
	EpisodeStatusPublished EpisodeStatus = "published"
	EpisodeStatusArchived  EpisodeStatus = "archived"
)

var validEpisodeStatuses = []EpisodeStatus{
	EpisodeStatusDraft,
	EpisodeStatusPublished,
	EpisodeStatusArchived,
}

// String implements fmt.Stringer.
func (e EpisodeStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EpisodeStatus.
func (e EpisodeStatus) IsValid() bool {
	for _, candidate := range validEpisodeStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEpisodeStatus converts raw input into an EpisodeStatus.
func ParseEpisodeStatus(value string) (EpisodeStatus, error) {
	for _, candidate := range validEpisodeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid episode status %q", value)
}
