package shows

import (
	"context"

	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows show listings. Nil fields are ignored.
type ListFilter struct {
	CreatedBy     *uuid.UUID
	Status        *enums.ShowStatus
	RequestStatus *enums.ShowRequestStatus
	Featured      *bool
	Genre         *string
}

// Repository exposes show persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a show repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new show.
func (r *Repository) Create(ctx context.Context, show *models.Show) (*models.Show, error) {
	if err := r.db.WithContext(ctx).Create(show).Error; err != nil {
		return nil, err
	}
	return show, nil
}

// FindByID retrieves a show by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	var s models.Show
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindBySlug retrieves a show by slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Show, error) {
	var s models.Show
	if err := r.db.WithContext(ctx).First(&s, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// List retrieves shows matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Show, error) {
	query := r.db.WithContext(ctx).Model(&models.Show{})

	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.RequestStatus != nil {
		query = query.Where("request_status = ?", filter.RequestStatus.String())
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if filter.Genre != nil {
		query = query.Where("? = ANY(genres)", *filter.Genre)
	}

	var rows []models.Show
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Save writes the full show record back.
func (r *Repository) Save(ctx context.Context, show *models.Show) error {
	return r.db.WithContext(ctx).Save(show).Error
}

// Delete removes a show. Episodes cascade at the database level.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Show{}).Error
}

// AdjustEpisodeCount shifts the denormalized episode counter, clamped at zero.
func (r *Repository) AdjustEpisodeCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&models.Show{}).
		Where("id = ?", id).
		UpdateColumn("episode_count", gorm.Expr("GREATEST(episode_count + ?, 0)", delta)).
		Error
}
