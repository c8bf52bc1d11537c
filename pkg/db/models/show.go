package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
)

// Show is a radio show owned by an artist and curated by admins.
type Show struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`

	ArtistName       string  `gorm:"column:artist_name;not null"`
	ArtistBio        *string `gorm:"column:artist_bio"`
	ArtistEmail      *string `gorm:"column:artist_email"`
	ArtistPhotoURL   *string `gorm:"column:artist_photo_url"`
	ArtistInstagram  *string `gorm:"column:artist_instagram"`
	ArtistSoundcloud *string `gorm:"column:artist_soundcloud"`
	ArtistWebsiteURL *string `gorm:"column:artist_website_url"`

	ImageURL *string `gorm:"column:image_url"`
	ImageAlt *string `gorm:"column:image_alt"`

	PromoAudio *dbtypes.Asset `gorm:"column:promo_audio;type:jsonb"`

	Genres dbtypes.StringArray `gorm:"type:text[];column:genres;not null;default:ARRAY[]::text[]"`
	Tags   dbtypes.StringArray `gorm:"type:text[];column:tags;not null;default:ARRAY[]::text[]"`

	ScheduleDayOfWeek *string `gorm:"column:schedule_day_of_week"`
	ScheduleTimeSlot  *string `gorm:"column:schedule_time_slot"`
	ScheduleFrequency *string `gorm:"column:schedule_frequency"`

	RequestStatus enums.ShowRequestStatus `gorm:"column:request_status;type:text;not null;default:'pending'"`
	AdminNotes    *string                 `gorm:"column:admin_notes"`
	Status        enums.ShowStatus        `gorm:"column:status;type:text;not null;default:'inactive'"`
	Featured      bool                    `gorm:"column:featured;not null;default:false"`

	EpisodeCount int `gorm:"column:episode_count;not null;default:0"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// AcceptsEpisodesFrom reports whether the given artist may attach episodes.
// Admins bypass this check at the service layer.
func (s *Show) AcceptsEpisodesFrom(userID uuid.UUID) (bool, string) {
	if s.CreatedBy != userID {
		return false, "show does not belong to you"
	}
	if s.RequestStatus != enums.ShowRequestStatusApproved {
		return false, "show must be approved before adding episodes"
	}
	if s.Status != enums.ShowStatusActive {
		return false, "show is not active"
	}
	return true, ""
}
