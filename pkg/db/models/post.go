package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
)

// Post is an editorial entry managed by admins.
type Post struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title   string    `gorm:"column:title;not null"`
	Slug    string    `gorm:"column:slug;not null;uniqueIndex"`
	Content string    `gorm:"column:content;not null;default:''"`

	Image *dbtypes.Asset `gorm:"column:image;type:jsonb"`

	Status          enums.PostStatus   `gorm:"column:status;type:text;not null;default:'draft'"`
	Featured        bool               `gorm:"column:featured;not null;default:false"`
	Category        enums.PostCategory `gorm:"column:category;type:text;not null;default:'news'"`
	Excerpt         *string            `gorm:"column:excerpt"`
	MetaDescription *string            `gorm:"column:meta_description"`

	AuthorID    uuid.UUID  `gorm:"column:author_id;type:uuid;not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
