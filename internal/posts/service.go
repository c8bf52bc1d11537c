package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/internal/shows"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type postsRepository interface {
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context, filter ListFilter) ([]models.Post, error)
	Save(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
}

// Service exposes editorial post operations. Mutation is admin only.
type Service interface {
	ListPublished(ctx context.Context, filter ListFilter) ([]models.Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)

	List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Post, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Post, error)
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.Post, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*models.Post, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
}

type service struct {
	repo    postsRepository
	store   objectStore
	metrics *metrics.MediaMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the posts service backed by the provided collaborators.
func NewService(repo postsRepository, store objectStore, mediaMetrics *metrics.MediaMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("posts repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		store:   store,
		metrics: mediaMetrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// CreateInput models the post creation payload.
type CreateInput struct {
	Title           string
	Content         string
	Status          *enums.PostStatus
	Featured        *bool
	Category        *enums.PostCategory
	Excerpt         *string
	MetaDescription *string
}

// UpdateInput models the post update payload. Nil pointers leave existing
// values untouched.
type UpdateInput struct {
	Title           *string
	Content         *string
	Status          *enums.PostStatus
	Featured        *bool
	Category        *enums.PostCategory
	Excerpt         *string
	MetaDescription *string
}

func (s *service) ListPublished(ctx context.Context, filter ListFilter) ([]models.Post, error) {
	published := enums.PostStatusPublished
	filter.Status = &published

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list published posts")
	}
	return rows, nil
}

func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up post")
	}
	// Drafts stay invisible on the public surface.
	if post.Status != enums.PostStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	return post, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list posts")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}

	slug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    title,
		Slug:     slug,
		Content:  input.Content,
		Status:   enums.PostStatusDraft,
		Category: enums.PostCategoryNews,
		AuthorID: actor.ID,
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid post status")
		}
		post.Status = *input.Status
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid post category")
		}
		post.Category = *input.Category
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}
	post.Excerpt = input.Excerpt
	post.MetaDescription = input.MetaDescription

	if post.Status == enums.PostStatusPublished {
		now := s.now()
		post.PublishedAt = &now
	}

	if _, err := s.repo.Create(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist post")
	}
	return post, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*models.Post, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		post.Title = title
	}
	if input.Content != nil {
		post.Content = *input.Content
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid post status")
		}
		// The publication timestamp sticks to the first transition.
		if *input.Status == enums.PostStatusPublished && post.PublishedAt == nil {
			now := s.now()
			post.PublishedAt = &now
		}
		post.Status = *input.Status
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid post category")
		}
		post.Category = *input.Category
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}
	if input.Excerpt != nil {
		post.Excerpt = input.Excerpt
	}
	if input.MetaDescription != nil {
		post.MetaDescription = input.MetaDescription
	}

	if err := s.repo.Save(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist post update")
	}
	return post, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete post")
	}

	if post.Image.Present() {
		if err := s.store.Delete(ctx, post.Image.Key); err != nil {
			s.metrics.IncOrphanCleanupFailure("post")
			s.logg.Error(ctx, fmt.Sprintf("deleting orphaned post image %s", post.Image.Key), err)
		}
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post id is required")
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up post")
	}
	return post, nil
}

// uniqueSlug derives a URL slug from the title, suffixing a counter when taken.
func (s *service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := shows.Slugify(title)
	if base == "" {
		base = "post"
	}

	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts; attempt++ {
		_, err := s.repo.FindBySlug(ctx, candidate)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check slug availability")
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not derive a unique slug")
}

func requireAdmin(actor authz.Actor) error {
	if !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
