package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
)

// Episode is a single broadcast belonging to a show.
type Episode struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShowID      uuid.UUID `gorm:"column:show_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;not null;default:''"`

	AirDate         *time.Time          `gorm:"column:air_date"`
	DurationMinutes int                 `gorm:"column:duration_minutes;not null;default:0"`
	Status          enums.EpisodeStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	Featured        bool                `gorm:"column:featured;not null;default:false"`

	Audio *dbtypes.Asset `gorm:"column:audio;type:jsonb"`
	Image *dbtypes.Asset `gorm:"column:image;type:jsonb"`

	MixcloudURL *string `gorm:"column:mixcloud_url"`
	YoutubeURL  *string `gorm:"column:youtube_url"`
	SpotifyURL  *string `gorm:"column:spotify_url"`

	MixcloudStatus     enums.MixcloudStatus `gorm:"column:mixcloud_status;type:text;not null;default:'pending'"`
	MixcloudKey        *string              `gorm:"column:mixcloud_key"`
	MixcloudUploadedAt *time.Time           `gorm:"column:mixcloud_uploaded_at"`
	MixcloudError      *string              `gorm:"column:mixcloud_error"`

	Plays int64 `gorm:"column:plays;not null;default:0"`

	CreatedBy uuid.UUID  `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
