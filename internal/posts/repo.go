package posts

import (
	"context"

	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilter narrows post listings. Nil fields are ignored.
type ListFilter struct {
	Status   *enums.PostStatus
	Category *enums.PostCategory
	Featured *bool
}

// Repository exposes post persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a post repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new post.
func (r *Repository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// FindByID retrieves a post by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// FindBySlug retrieves a post by its URL slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).First(&p, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List retrieves posts matching the filter, newest first. Published posts
// order by publication date so scheduled backdating works.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Category != nil {
		query = query.Where("category = ?", filter.Category.String())
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}

	var rows []models.Post
	if err := query.Order("published_at DESC NULLS LAST, created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Save writes the full post record back.
func (r *Repository) Save(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{}).Error
}
