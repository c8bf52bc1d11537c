package shows

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/email"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxSlugAttempts = 50

type showsRepository interface {
	Create(ctx context.Context, show *models.Show) (*models.Show, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error)
	FindBySlug(ctx context.Context, slug string) (*models.Show, error)
	List(ctx context.Context, filter ListFilter) ([]models.Show, error)
	Save(ctx context.Context, show *models.Show) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type objectStore interface {
	Delete(ctx context.Context, key string) error
}

type mailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// Service exposes show catalog and approval workflow semantics.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*models.Show, error)
	GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Show, error)
	List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Show, error)

	Request(ctx context.Context, artistID uuid.UUID, input Input) (*models.Show, error)
	ListMine(ctx context.Context, artistID uuid.UUID) ([]models.Show, error)
	ListApprovedMine(ctx context.Context, artistID uuid.UUID) ([]models.Show, error)

	Create(ctx context.Context, adminID uuid.UUID, input Input) (*models.Show, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input Input) (*models.Show, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	ListPending(ctx context.Context) ([]models.Show, error)
	Approve(ctx context.Context, id uuid.UUID, adminNotes *string) (*models.Show, error)
	Reject(ctx context.Context, id uuid.UUID, adminNotes string) (*models.Show, error)
}

type service struct {
	repo    showsRepository
	users   usersRepository
	store   objectStore
	sender  mailSender
	metrics *metrics.MediaMetrics
	logg    *logger.Logger

	frontendURL string
}

// NewService constructs the shows service backed by the provided collaborators.
func NewService(repo showsRepository, users usersRepository, store objectStore, sender mailSender, frontendURL string, mediaMetrics *metrics.MediaMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shows repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		users:       users,
		store:       store,
		sender:      sender,
		metrics:     mediaMetrics,
		logg:        logg,
		frontendURL: frontendURL,
	}, nil
}

// Input models create/update payloads. Nil pointers leave existing values
// untouched on update.
type Input struct {
	Title       *string
	Description *string

	ArtistName       *string
	ArtistBio        *string
	ArtistEmail      *string
	ArtistPhotoURL   *string
	ArtistInstagram  *string
	ArtistSoundcloud *string
	ArtistWebsiteURL *string

	ImageURL *string
	ImageAlt *string

	Genres *[]string
	Tags   *[]string

	ScheduleDayOfWeek *string
	ScheduleTimeSlot  *string
	ScheduleFrequency *string

	Status   *enums.ShowStatus
	Featured *bool
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.Show, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	show, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}
	return show, nil
}

func (s *service) GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Show, error) {
	show, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "show does not belong to you")
	}
	return show, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Show, error) {
	// Artists only ever see their own shows in the authed listing.
	if !actor.IsAdmin() {
		id := actor.ID
		filter.CreatedBy = &id
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shows")
	}
	return rows, nil
}

func (s *service) Request(ctx context.Context, artistID uuid.UUID, input Input) (*models.Show, error) {
	if artistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	show, err := s.buildShow(ctx, artistID, input)
	if err != nil {
		return nil, err
	}

	// Artist submissions always enter the queue unpublished.
	show.RequestStatus = enums.ShowRequestStatusPending
	show.Status = enums.ShowStatusInactive
	show.Featured = false

	if _, err := s.repo.Create(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist show request")
	}
	return show, nil
}

func (s *service) ListMine(ctx context.Context, artistID uuid.UUID) ([]models.Show, error) {
	if artistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.List(ctx, ListFilter{CreatedBy: &artistID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list own shows")
	}
	return rows, nil
}

func (s *service) ListApprovedMine(ctx context.Context, artistID uuid.UUID) ([]models.Show, error) {
	if artistID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	approved := enums.ShowRequestStatusApproved
	active := enums.ShowStatusActive
	rows, err := s.repo.List(ctx, ListFilter{
		CreatedBy:     &artistID,
		RequestStatus: &approved,
		Status:        &active,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list approved shows")
	}
	return rows, nil
}

func (s *service) Create(ctx context.Context, adminID uuid.UUID, input Input) (*models.Show, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	show, err := s.buildShow(ctx, adminID, input)
	if err != nil {
		return nil, err
	}

	// Admin-created shows skip the approval queue.
	show.RequestStatus = enums.ShowRequestStatusApproved
	if input.Status == nil {
		show.Status = enums.ShowStatusActive
	}

	if _, err := s.repo.Create(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist show")
	}
	return show, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input Input) (*models.Show, error) {
	show, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "show does not belong to you")
	}

	applyInput(show, input)

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid show status")
	}

	if err := s.repo.Save(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist show update")
	}
	return show, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	show, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "show does not belong to you")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete show")
	}

	s.cleanupAsset(ctx, "show", show.PromoAudio)
	return nil
}

func (s *service) ListPending(ctx context.Context) ([]models.Show, error) {
	pending := enums.ShowRequestStatusPending
	rows, err := s.repo.List(ctx, ListFilter{RequestStatus: &pending})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending shows")
	}
	return rows, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID, adminNotes *string) (*models.Show, error) {
	show, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if show.RequestStatus != enums.ShowRequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("show request is already %s", show.RequestStatus))
	}

	show.RequestStatus = enums.ShowRequestStatusApproved
	show.Status = enums.ShowStatusActive
	if adminNotes != nil && strings.TrimSpace(*adminNotes) != "" {
		show.AdminNotes = adminNotes
	}

	if err := s.repo.Save(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist approval")
	}

	s.notifyOwner(ctx, show, true)
	return show, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, adminNotes string) (*models.Show, error) {
	if strings.TrimSpace(adminNotes) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin_notes is required when rejecting a show")
	}

	show, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if show.RequestStatus != enums.ShowRequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("show request is already %s", show.RequestStatus))
	}

	show.RequestStatus = enums.ShowRequestStatusRejected
	show.AdminNotes = &adminNotes

	if err := s.repo.Save(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist rejection")
	}

	s.notifyOwner(ctx, show, false)
	return show, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id is required")
	}
	show, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}
	return show, nil
}

func (s *service) buildShow(ctx context.Context, ownerID uuid.UUID, input Input) (*models.Show, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.ArtistName == nil || strings.TrimSpace(*input.ArtistName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "artist_name is required")
	}

	title := strings.TrimSpace(*input.Title)
	slug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	show := &models.Show{
		Title:      title,
		Slug:       slug,
		ArtistName: strings.TrimSpace(*input.ArtistName),
		CreatedBy:  ownerID,
	}
	applyInput(show, input)
	return show, nil
}

func applyInput(show *models.Show, input Input) {
	if input.Description != nil {
		show.Description = *input.Description
	}
	if input.ArtistName != nil && strings.TrimSpace(*input.ArtistName) != "" {
		show.ArtistName = strings.TrimSpace(*input.ArtistName)
	}
	if input.ArtistBio != nil {
		show.ArtistBio = input.ArtistBio
	}
	if input.ArtistEmail != nil {
		show.ArtistEmail = input.ArtistEmail
	}
	if input.ArtistPhotoURL != nil {
		show.ArtistPhotoURL = input.ArtistPhotoURL
	}
	if input.ArtistInstagram != nil {
		show.ArtistInstagram = input.ArtistInstagram
	}
	if input.ArtistSoundcloud != nil {
		show.ArtistSoundcloud = input.ArtistSoundcloud
	}
	if input.ArtistWebsiteURL != nil {
		show.ArtistWebsiteURL = input.ArtistWebsiteURL
	}
	if input.ImageURL != nil {
		show.ImageURL = input.ImageURL
	}
	if input.ImageAlt != nil {
		show.ImageAlt = input.ImageAlt
	}
	if input.Genres != nil {
		show.Genres = dbtypes.StringArray(*input.Genres)
	}
	if input.Tags != nil {
		show.Tags = dbtypes.StringArray(*input.Tags)
	}
	if input.ScheduleDayOfWeek != nil {
		show.ScheduleDayOfWeek = input.ScheduleDayOfWeek
	}
	if input.ScheduleTimeSlot != nil {
		show.ScheduleTimeSlot = input.ScheduleTimeSlot
	}
	if input.ScheduleFrequency != nil {
		show.ScheduleFrequency = input.ScheduleFrequency
	}
	if input.Status != nil {
		show.Status = *input.Status
	}
	if input.Featured != nil {
		show.Featured = *input.Featured
	}
}

// uniqueSlug derives a URL slug from the title, suffixing a counter when taken.
func (s *service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "show"
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

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases and collapses a title into a URL slug.
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = slugStripRe.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// notifyOwner emails the artist about an approval decision without failing
// the transition.
func (s *service) notifyOwner(ctx context.Context, show *models.Show, approved bool) {
	owner, err := s.users.FindByID(ctx, show.CreatedBy)
	if err != nil {
		s.logg.Error(ctx, "loading show owner for notification", err)
		return
	}

	notes := ""
	if show.AdminNotes != nil {
		notes = *show.AdminNotes
	}

	var msg email.Message
	if approved {
		msg = email.ShowApprovedMessage(owner.Email, owner.Name, show.Title, notes)
	} else {
		msg = email.ShowRejectedMessage(owner.Email, owner.Name, show.Title, notes)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncEmailFailure(msg.Template)
		s.logg.Error(ctx, fmt.Sprintf("sending %s email", msg.Template), err)
		return
	}
	s.metrics.IncEmailSent(msg.Template)
}

// cleanupAsset removes an orphaned storage object after its document is gone.
func (s *service) cleanupAsset(ctx context.Context, resource string, asset *dbtypes.Asset) {
	if !asset.Present() {
		return
	}
	if err := s.store.Delete(ctx, asset.Key); err != nil {
		s.metrics.IncOrphanCleanupFailure(resource)
		s.logg.Error(ctx, fmt.Sprintf("deleting orphaned %s object %s", resource, asset.Key), err)
	}
}
