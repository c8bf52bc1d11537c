package episodes

import (
	"context"

	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows episode listings. Nil fields are ignored.
type ListFilter struct {
	ShowID  *uuid.UUID
	Status  *enums.EpisodeStatus
	OwnerID *uuid.UUID
}

// Repository exposes episode persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an episode repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new episode.
func (r *Repository) Create(ctx context.Context, episode *models.Episode) (*models.Episode, error) {
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		return nil, err
	}
	return episode, nil
}

// FindByID retrieves an episode by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	var e models.Episode
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// List retrieves episodes matching the filter, newest air date first.
// OwnerID scopes through the owning show.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Episode, error) {
	query := r.db.WithContext(ctx).Model(&models.Episode{})

	if filter.ShowID != nil {
		query = query.Where("episodes.show_id = ?", *filter.ShowID)
	}
	if filter.Status != nil {
		query = query.Where("episodes.status = ?", filter.Status.String())
	}
	if filter.OwnerID != nil {
		query = query.Joins("JOIN shows ON shows.id = episodes.show_id").
			Where("shows.created_by = ?", *filter.OwnerID)
	}

	var rows []models.Episode
	if err := query.Order("episodes.air_date DESC NULLS LAST, episodes.created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListPublishedByShowSlug retrieves published episodes of the show with the
// given slug, newest air date first.
func (r *Repository) ListPublishedByShowSlug(ctx context.Context, slug string) ([]models.Episode, error) {
	var rows []models.Episode
	err := r.db.WithContext(ctx).Model(&models.Episode{}).
		Joins("JOIN shows ON shows.id = episodes.show_id").
		Where("shows.slug = ?", slug).
		Where("episodes.status = ?", enums.EpisodeStatusPublished.String()).
		Order("episodes.air_date DESC NULLS LAST, episodes.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Save writes the full episode record back.
func (r *Repository) Save(ctx context.Context, episode *models.Episode) error {
	return r.db.WithContext(ctx).Save(episode).Error
}

// Delete removes an episode.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Episode{}).Error
}

// IncrementPlays bumps the play counter without racing concurrent streams.
func (r *Repository) IncrementPlays(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Episode{}).
		Where("id = ?", id).
		UpdateColumn("plays", gorm.Expr("plays + 1")).
		Error
}
