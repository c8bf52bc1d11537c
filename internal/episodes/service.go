package episodes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/internal/mixcloud"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const audioFolder = "episodes"

var allowedAudioMimes = []string{
	"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav",
	"audio/aac", "audio/mp4", "audio/ogg", "audio/flac",
}

var allowedImageMimes = []string{"image/jpeg", "image/png", "image/webp"}

type episodesRepository interface {
	Create(ctx context.Context, episode *models.Episode) (*models.Episode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	List(ctx context.Context, filter ListFilter) ([]models.Episode, error)
	ListPublishedByShowSlug(ctx context.Context, slug string) ([]models.Episode, error)
	Save(ctx context.Context, episode *models.Episode) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementPlays(ctx context.Context, id uuid.UUID) error
}

type showsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error)
	AdjustEpisodeCount(ctx context.Context, id uuid.UUID, delta int) error
}

type objectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type mixcloudPublisher interface {
	Publish(ctx context.Context, input mixcloud.PublishInput) (*mixcloud.PublishResult, error)
}

// Service exposes episode catalog, media slot, and publishing semantics.
type Service interface {
	ListPublicByShowSlug(ctx context.Context, showSlug string) ([]models.Episode, error)
	StreamPublic(ctx context.Context, id uuid.UUID) (string, error)
	Stream(ctx context.Context, actor authz.Actor, id uuid.UUID) (string, error)

	List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Episode, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error)
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.Episode, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*models.Episode, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error

	UploadAudio(ctx context.Context, actor authz.Actor, id uuid.UUID, upload FileUpload) (*models.Episode, error)
	UploadImage(ctx context.Context, actor authz.Actor, id uuid.UUID, upload FileUpload) (*models.Episode, error)
	DeleteAudio(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error)
	DeleteImage(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error)

	PublishMixcloud(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error)
	MixcloudState(ctx context.Context, actor authz.Actor, id uuid.UUID) (*MixcloudState, error)
}

type service struct {
	repo     episodesRepository
	shows    showsRepository
	store    objectStore
	mixcloud mixcloudPublisher
	metrics  *metrics.MediaMetrics
	logg     *logger.Logger

	maxAudioBytes int64
	maxImageBytes int64
	now           func() time.Time
}

// NewService constructs the episodes service backed by the provided collaborators.
func NewService(repo episodesRepository, shows showsRepository, store objectStore, publisher mixcloudPublisher, mediaCfg config.MediaConfig, mediaMetrics *metrics.MediaMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("episodes repository required")
	}
	if shows == nil {
		return nil, fmt.Errorf("shows repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("mixcloud publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:          repo,
		shows:         shows,
		store:         store,
		mixcloud:      publisher,
		metrics:       mediaMetrics,
		logg:          logg,
		maxAudioBytes: int64(mediaCfg.MaxAudioUploadMB) * 1024 * 1024,
		maxImageBytes: int64(mediaCfg.MaxImageUploadMB) * 1024 * 1024,
		now:           time.Now,
	}, nil
}

// CreateInput models the episode creation payload.
type CreateInput struct {
	ShowID          uuid.UUID
	Title           string
	Description     string
	AirDate         *time.Time
	DurationMinutes int
	Status          *enums.EpisodeStatus
	Featured        *bool
	MixcloudURL     *string
	YoutubeURL      *string
	SpotifyURL      *string
}

// UpdateInput models the episode update payload. Nil pointers leave existing
// values untouched.
type UpdateInput struct {
	Title           *string
	Description     *string
	AirDate         *time.Time
	DurationMinutes *int
	Status          *enums.EpisodeStatus
	Featured        *bool
	MixcloudURL     *string
	YoutubeURL      *string
	SpotifyURL      *string
}

// FileUpload carries one server-proxied multipart file.
type FileUpload struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
}

// MixcloudState reports the publish progress of one episode.
type MixcloudState struct {
	Status     enums.MixcloudStatus `json:"status"`
	Key        *string              `json:"key,omitempty"`
	URL        *string              `json:"url,omitempty"`
	UploadedAt *time.Time           `json:"uploaded_at,omitempty"`
	Error      *string              `json:"error,omitempty"`
}

func (s *service) ListPublicByShowSlug(ctx context.Context, showSlug string) ([]models.Episode, error) {
	showSlug = strings.TrimSpace(showSlug)
	if showSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show slug is required")
	}
	rows, err := s.repo.ListPublishedByShowSlug(ctx, showSlug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list published episodes")
	}
	return rows, nil
}

func (s *service) StreamPublic(ctx context.Context, id uuid.UUID) (string, error) {
	episode, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if episode.Status != enums.EpisodeStatusPublished {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "episode not found")
	}
	if !episode.Audio.Present() {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "episode has no audio")
	}

	if err := s.repo.IncrementPlays(ctx, id); err != nil {
		// Losing one play count never blocks the stream.
		s.logg.Error(ctx, "incrementing play counter", err)
	}
	s.metrics.IncStreamPlay("public")

	return episode.Audio.URL, nil
}

func (s *service) Stream(ctx context.Context, actor authz.Actor, id uuid.UUID) (string, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return "", err
	}
	if !episode.Audio.Present() {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "episode has no audio")
	}
	s.metrics.IncStreamPlay("authed")
	return episode.Audio.URL, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, filter ListFilter) ([]models.Episode, error) {
	if !actor.IsAdmin() {
		id := actor.ID
		filter.OwnerID = &id
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list episodes")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return episode, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*models.Episode, error) {
	if input.ShowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show_id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.DurationMinutes < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_minutes cannot be negative")
	}

	show, err := s.shows.FindByID(ctx, input.ShowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}

	// The gate is evaluated against the freshly loaded show on every attempt.
	if !actor.IsAdmin() {
		if ok, reason := show.AcceptsEpisodesFrom(actor.ID); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, reason)
		}
	}

	if err := validateExternalLinks(input.MixcloudURL, input.YoutubeURL, input.SpotifyURL); err != nil {
		return nil, err
	}

	episode := &models.Episode{
		ShowID:          input.ShowID,
		Title:           title,
		Description:     input.Description,
		AirDate:         input.AirDate,
		DurationMinutes: input.DurationMinutes,
		Status:          enums.EpisodeStatusDraft,
		MixcloudURL:     input.MixcloudURL,
		YoutubeURL:      input.YoutubeURL,
		SpotifyURL:      input.SpotifyURL,
		CreatedBy:       actor.ID,
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid episode status")
		}
		episode.Status = *input.Status
	}
	if input.Featured != nil {
		episode.Featured = *input.Featured
	}

	if _, err := s.repo.Create(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist episode")
	}

	if err := s.shows.AdjustEpisodeCount(ctx, show.ID, 1); err != nil {
		s.logg.Error(ctx, "incrementing show episode count", err)
	}
	return episode, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateInput) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		episode.Title = title
	}
	if input.Description != nil {
		episode.Description = *input.Description
	}
	if input.AirDate != nil {
		episode.AirDate = input.AirDate
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_minutes cannot be negative")
		}
		episode.DurationMinutes = *input.DurationMinutes
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid episode status")
		}
		episode.Status = *input.Status
	}
	if input.Featured != nil {
		episode.Featured = *input.Featured
	}

	if err := validateExternalLinks(input.MixcloudURL, input.YoutubeURL, input.SpotifyURL); err != nil {
		return nil, err
	}
	if input.MixcloudURL != nil {
		episode.MixcloudURL = input.MixcloudURL
	}
	if input.YoutubeURL != nil {
		episode.YoutubeURL = input.YoutubeURL
	}
	if input.SpotifyURL != nil {
		episode.SpotifyURL = input.SpotifyURL
	}

	actorID := actor.ID
	episode.UpdatedBy = &actorID

	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist episode update")
	}
	return episode, nil
}

func (s *service) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	episode, show, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete episode")
	}

	s.cleanupAsset(ctx, episode.Audio)
	s.cleanupAsset(ctx, episode.Image)

	if err := s.shows.AdjustEpisodeCount(ctx, show.ID, -1); err != nil {
		s.logg.Error(ctx, "decrementing show episode count", err)
	}
	return nil
}

func (s *service) UploadAudio(ctx context.Context, actor authz.Actor, id uuid.UUID, upload FileUpload) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateUpload(upload, allowedAudioMimes, s.maxAudioBytes); err != nil {
		return nil, err
	}

	asset, err := s.storeObject(ctx, episode.ID.String(), upload)
	if err != nil {
		return nil, err
	}

	old := episode.Audio
	episode.Audio = asset
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist audio slot")
	}

	s.cleanupAsset(ctx, old)
	return episode, nil
}

func (s *service) UploadImage(ctx context.Context, actor authz.Actor, id uuid.UUID, upload FileUpload) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validateUpload(upload, allowedImageMimes, s.maxImageBytes); err != nil {
		return nil, err
	}

	asset, err := s.storeObject(ctx, episode.ID.String(), upload)
	if err != nil {
		return nil, err
	}

	old := episode.Image
	episode.Image = asset
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist image slot")
	}

	s.cleanupAsset(ctx, old)
	return episode, nil
}

func (s *service) DeleteAudio(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := episode.Audio
	episode.Audio = nil
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear audio slot")
	}

	s.cleanupAsset(ctx, old)
	return episode, nil
}

func (s *service) DeleteImage(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := episode.Image
	episode.Image = nil
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear image slot")
	}

	s.cleanupAsset(ctx, old)
	return episode, nil
}

func (s *service) PublishMixcloud(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if episode.Status != enums.EpisodeStatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only archived episodes can be published to mixcloud")
	}
	if !episode.Audio.Present() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "episode has no audio to publish")
	}
	if episode.MixcloudStatus == enums.MixcloudStatusUploaded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "episode is already on mixcloud")
	}

	// Persist the in-flight state first so a crash surfaces as stuck-uploading
	// instead of silently pending.
	episode.MixcloudStatus = enums.MixcloudStatusUploading
	episode.MixcloudError = nil
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist uploading state")
	}

	input := mixcloud.PublishInput{
		Name:        episode.Title,
		Description: episode.Description,
		AudioURL:    episode.Audio.URL,
	}
	if episode.Image.Present() {
		input.ImageURL = episode.Image.URL
	}

	result, err := s.mixcloud.Publish(ctx, input)
	if err != nil {
		msg := err.Error()
		episode.MixcloudStatus = enums.MixcloudStatusFailed
		episode.MixcloudError = &msg
		if saveErr := s.repo.Save(ctx, episode); saveErr != nil {
			s.logg.Error(ctx, "persisting mixcloud failure", saveErr)
		}
		s.metrics.IncMixcloudPublish("failure")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish to mixcloud")
	}

	now := s.now()
	episode.MixcloudStatus = enums.MixcloudStatusUploaded
	episode.MixcloudKey = &result.Key
	episode.MixcloudUploadedAt = &now
	episode.MixcloudURL = &result.URL
	episode.MixcloudError = nil
	if err := s.repo.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist mixcloud result")
	}

	s.metrics.IncMixcloudPublish("success")
	return episode, nil
}

func (s *service) MixcloudState(ctx context.Context, actor authz.Actor, id uuid.UUID) (*MixcloudState, error) {
	episode, _, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &MixcloudState{
		Status:     episode.MixcloudStatus,
		Key:        episode.MixcloudKey,
		URL:        episode.MixcloudURL,
		UploadedAt: episode.MixcloudUploadedAt,
		Error:      episode.MixcloudError,
	}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "episode id is required")
	}
	episode, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "episode not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up episode")
	}
	return episode, nil
}

// loadManaged loads the episode and its show, then enforces the ownership
// predicate through the show.
func (s *service) loadManaged(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, *models.Show, error) {
	episode, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	show, err := s.shows.FindByID(ctx, episode.ShowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}

	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "episode does not belong to you")
	}
	return episode, show, nil
}

func (s *service) storeObject(ctx context.Context, docID string, upload FileUpload) (*dbtypes.Asset, error) {
	now := s.now()
	key := storage.ObjectKey(audioFolder, docID, upload.FileName, now)

	if err := s.store.Upload(ctx, key, upload.ContentType, upload.Body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload object")
	}

	return &dbtypes.Asset{
		Key:        key,
		URL:        s.store.PublicURL(key),
		FileName:   storage.SanitizeFileName(upload.FileName),
		MimeType:   upload.ContentType,
		SizeBytes:  upload.SizeBytes,
		UploadedAt: &now,
	}, nil
}

func (s *service) cleanupAsset(ctx context.Context, asset *dbtypes.Asset) {
	if !asset.Present() {
		return
	}
	if err := s.store.Delete(ctx, asset.Key); err != nil {
		s.metrics.IncOrphanCleanupFailure("episode")
		s.logg.Error(ctx, fmt.Sprintf("deleting orphaned episode object %s", asset.Key), err)
	}
}

func validateUpload(upload FileUpload, allowed []string, maxBytes int64) error {
	if strings.TrimSpace(upload.FileName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if upload.Body == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}
	if upload.SizeBytes <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	if maxBytes > 0 && upload.SizeBytes > maxBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds the %d MB limit", maxBytes/(1024*1024)))
	}

	mime := strings.ToLower(strings.TrimSpace(upload.ContentType))
	for _, candidate := range allowed {
		if mime == candidate {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("content type %q is not allowed", upload.ContentType))
}

func validateExternalLinks(mixcloudURL, youtubeURL, spotifyURL *string) error {
	checks := []struct {
		value *string
		hosts []string
		field string
	}{
		{mixcloudURL, []string{"mixcloud.com"}, "mixcloud_url"},
		{youtubeURL, []string{"youtube.com", "youtu.be"}, "youtube_url"},
		{spotifyURL, []string{"spotify.com"}, "spotify_url"},
	}

	for _, check := range checks {
		if check.value == nil || *check.value == "" {
			continue
		}
		value := *check.value
		if !strings.HasPrefix(value, "https://") {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be an https link", check.field))
		}
		matched := false
		for _, host := range check.hosts {
			if strings.Contains(value, host) {
				matched = true
				break
			}
		}
		if !matched {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must point at %s", check.field, strings.Join(check.hosts, " or ")))
		}
	}
	return nil
}
