// Package uploads implements the direct-to-storage upload handshake: the
// client asks for a presigned PUT URL, uploads the object itself, then
// confirms so the owning document records the new slot.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource names the two attachment targets the handshake supports.
const (
	ResourceEpisode = "episode"
	ResourceShow    = "show"
)

const (
	episodeFolder = "episodes"
	showFolder    = "shows"
)

type episodesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	Save(ctx context.Context, episode *models.Episode) error
}

type showsRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error)
	Save(ctx context.Context, show *models.Show) error
}

type objectStore interface {
	SignUploadURL(ctx context.Context, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// PresignInput is the client's announcement of the file it will upload.
type PresignInput struct {
	FileName    string
	ContentType string
}

// PresignResult carries everything the client needs to PUT the object.
type PresignResult struct {
	PresignedURL string `json:"presigned_url"`
	Key          string `json:"key"`
	FileURL      string `json:"file_url"`
}

// ConfirmInput reports a completed direct upload.
type ConfirmInput struct {
	Key             string
	FileURL         string
	FileName        string
	SizeBytes       int64
	DurationSeconds *int
	BitrateKbps     *int
}

// Service runs the presign/confirm handshake for episode audio and show
// promo audio.
type Service interface {
	Presign(ctx context.Context, actor authz.Actor, resource string, id uuid.UUID, input PresignInput) (*PresignResult, error)
	Confirm(ctx context.Context, actor authz.Actor, resource string, id uuid.UUID, input ConfirmInput) (any, error)
}

type service struct {
	episodes episodesRepository
	shows    showsRepository
	store    objectStore
	metrics  *metrics.MediaMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService constructs the uploads service backed by the provided collaborators.
func NewService(episodes episodesRepository, shows showsRepository, store objectStore, mediaMetrics *metrics.MediaMetrics, logg *logger.Logger) (Service, error) {
	if episodes == nil {
		return nil, fmt.Errorf("episodes repository required")
	}
	if shows == nil {
		return nil, fmt.Errorf("shows repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		episodes: episodes,
		shows:    shows,
		store:    store,
		metrics:  mediaMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Presign(ctx context.Context, actor authz.Actor, resource string, id uuid.UUID, input PresignInput) (*PresignResult, error) {
	if strings.TrimSpace(input.FileName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}

	folder, err := s.authorize(ctx, actor, resource, id)
	if err != nil {
		return nil, err
	}

	key := storage.ObjectKey(folder, id.String(), input.FileName, s.now())
	signed, err := s.store.SignUploadURL(ctx, key, input.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrPresignUnsupported) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "storage backend does not support direct uploads")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignResult{
		PresignedURL: signed,
		Key:          key,
		FileURL:      s.store.PublicURL(key),
	}, nil
}

func (s *service) Confirm(ctx context.Context, actor authz.Actor, resource string, id uuid.UUID, input ConfirmInput) (any, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "key is required")
	}
	if strings.TrimSpace(input.FileURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_url is required")
	}

	asset := &dbtypes.Asset{
		Key:             input.Key,
		URL:             input.FileURL,
		FileName:        storage.SanitizeFileName(input.FileName),
		SizeBytes:       input.SizeBytes,
		DurationSeconds: input.DurationSeconds,
		BitrateKbps:     input.BitrateKbps,
	}
	now := s.now()
	asset.UploadedAt = &now

	// Existence and ownership are re-checked here; the presign response is
	// not proof of anything by confirm time.
	switch resource {
	case ResourceEpisode:
		return s.confirmEpisode(ctx, actor, id, asset, input)
	case ResourceShow:
		return s.confirmShow(ctx, actor, id, asset)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown upload resource %q", resource))
	}
}

func (s *service) confirmEpisode(ctx context.Context, actor authz.Actor, id uuid.UUID, asset *dbtypes.Asset, input ConfirmInput) (*models.Episode, error) {
	episode, err := s.loadEpisode(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := episode.Audio
	episode.Audio = asset
	if input.DurationSeconds != nil && episode.DurationMinutes == 0 {
		episode.DurationMinutes = int(math.Round(float64(*input.DurationSeconds) / 60))
	}

	if err := s.episodes.Save(ctx, episode); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist audio slot")
	}

	s.cleanupReplaced(ctx, old, asset.Key, "episode")
	return episode, nil
}

func (s *service) confirmShow(ctx context.Context, actor authz.Actor, id uuid.UUID, asset *dbtypes.Asset) (*models.Show, error) {
	show, err := s.loadShow(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	old := show.PromoAudio
	show.PromoAudio = asset

	if err := s.shows.Save(ctx, show); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist promo audio slot")
	}

	s.cleanupReplaced(ctx, old, asset.Key, "show")
	return show, nil
}

// authorize loads the target document, checks ownership, and returns the
// storage folder for the resource. Approval state is deliberately not part
// of this check so artists can attach audio while a show is still pending.
func (s *service) authorize(ctx context.Context, actor authz.Actor, resource string, id uuid.UUID) (string, error) {
	switch resource {
	case ResourceEpisode:
		if _, err := s.loadEpisode(ctx, actor, id); err != nil {
			return "", err
		}
		return episodeFolder, nil
	case ResourceShow:
		if _, err := s.loadShow(ctx, actor, id); err != nil {
			return "", err
		}
		return showFolder, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown upload resource %q", resource))
	}
}

func (s *service) loadEpisode(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Episode, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "episode id is required")
	}
	episode, err := s.episodes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "episode not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up episode")
	}

	show, err := s.shows.FindByID(ctx, episode.ShowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}
	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "episode does not belong to you")
	}
	return episode, nil
}

func (s *service) loadShow(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Show, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id is required")
	}
	show, err := s.shows.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up show")
	}
	if !authz.ActorCanManage(actor, show.CreatedBy) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "show does not belong to you")
	}
	return show, nil
}

// cleanupReplaced deletes the object a confirm displaced. A confirm that
// reuses the same key must not delete what it just wrote.
func (s *service) cleanupReplaced(ctx context.Context, old *dbtypes.Asset, newKey, resource string) {
	if !old.Present() || old.Key == newKey {
		return
	}
	if err := s.store.Delete(ctx, old.Key); err != nil {
		s.metrics.IncOrphanCleanupFailure(resource)
		s.logg.Error(ctx, fmt.Sprintf("deleting replaced %s object %s", resource, old.Key), err)
	}
}
