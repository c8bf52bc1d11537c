package uploads

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubEpisodesRepo struct {
	byID  map[uuid.UUID]*models.Episode
	saved []*models.Episode
}

func (s *stubEpisodesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	if e, ok := s.byID[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEpisodesRepo) Save(ctx context.Context, episode *models.Episode) error {
	s.saved = append(s.saved, episode)
	return nil
}

type stubShowsRepo struct {
	byID  map[uuid.UUID]*models.Show
	saved []*models.Show
}

func (s *stubShowsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	if sh, ok := s.byID[id]; ok {
		return sh, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubShowsRepo) Save(ctx context.Context, show *models.Show) error {
	s.saved = append(s.saved, show)
	return nil
}

type stubStore struct {
	signed    []string
	deleted   []string
	signErr   error
	deleteErr error
}

func (s *stubStore) SignUploadURL(ctx context.Context, key, contentType string) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	s.signed = append(s.signed, key)
	return "https://bucket.example.com/" + key + "?sig=abc", nil
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type fixture struct {
	episodes *stubEpisodesRepo
	shows    *stubShowsRepo
	store    *stubStore
	svc      Service
	owner    uuid.UUID
	show     *models.Show
	episode  *models.Episode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	owner := uuid.New()
	show := &models.Show{ID: uuid.New(), CreatedBy: owner}
	episode := &models.Episode{ID: uuid.New(), ShowID: show.ID}

	episodes := &stubEpisodesRepo{byID: map[uuid.UUID]*models.Episode{episode.ID: episode}}
	shows := &stubShowsRepo{byID: map[uuid.UUID]*models.Show{show.ID: show}}
	store := &stubStore{}

	svc, err := NewService(episodes, shows, store, nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{episodes: episodes, shows: shows, store: store, svc: svc, owner: owner, show: show, episode: episode}
}

func (f *fixture) ownerActor() authz.Actor {
	return authz.Actor{ID: f.owner, Role: enums.UserRoleArtist}
}

func TestPresignEpisodeBuildsSlotKey(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	res, err := f.svc.Presign(context.Background(), f.ownerActor(), ResourceEpisode, f.episode.ID, PresignInput{
		FileName:    "late night set.MP3",
		ContentType: "audio/mpeg",
	})
	if err != nil {
		t.Fatalf("Presign: %v", err)
	}

	if !strings.HasPrefix(res.Key, "episodes/"+f.episode.ID.String()+"_") || !strings.HasSuffix(res.Key, ".mp3") {
		t.Errorf("key = %s", res.Key)
	}
	if !strings.Contains(res.PresignedURL, res.Key) {
		t.Errorf("presigned url = %s", res.PresignedURL)
	}
	if res.FileURL != "https://cdn.example.com/"+res.Key {
		t.Errorf("file url = %s", res.FileURL)
	}
}

func TestPresignRejectsNonOwner(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	stranger := authz.Actor{ID: uuid.New(), Role: enums.UserRoleArtist}

	_, err := f.svc.Presign(context.Background(), stranger, ResourceEpisode, f.episode.ID, PresignInput{FileName: "a.mp3"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = f.svc.Presign(context.Background(), stranger, ResourceShow, f.show.ID, PresignInput{FileName: "a.mp3"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestPresignWorksForPendingShow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.show.RequestStatus = enums.ShowRequestStatusPending
	f.show.Status = enums.ShowStatusInactive

	_, err := f.svc.Presign(context.Background(), f.ownerActor(), ResourceShow, f.show.ID, PresignInput{FileName: "promo.mp3"})
	if err != nil {
		t.Fatalf("Presign on pending show: %v", err)
	}
}

func TestPresignMissingDocumentIs404(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Presign(context.Background(), f.ownerActor(), ResourceEpisode, uuid.New(), PresignInput{FileName: "a.mp3"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPresignUnknownResourceRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Presign(context.Background(), f.ownerActor(), "playlist", uuid.New(), PresignInput{FileName: "a.mp3"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmReplacesSlotAndDeletesOldObject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.episode.Audio = &dbtypes.Asset{Key: "episodes/old_1.mp3", URL: "https://cdn.example.com/episodes/old_1.mp3"}

	duration := 3600
	doc, err := f.svc.Confirm(context.Background(), f.ownerActor(), ResourceEpisode, f.episode.ID, ConfirmInput{
		Key:             "episodes/new_2.mp3",
		FileURL:         "https://cdn.example.com/episodes/new_2.mp3",
		FileName:        "set.mp3",
		SizeBytes:       1024,
		DurationSeconds: &duration,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	episode, ok := doc.(*models.Episode)
	if !ok {
		t.Fatalf("doc type = %T", doc)
	}
	if episode.Audio.Key != "episodes/new_2.mp3" {
		t.Errorf("audio key = %s", episode.Audio.Key)
	}
	if episode.Audio.DurationSeconds == nil || *episode.Audio.DurationSeconds != 3600 {
		t.Errorf("asset duration = %v", episode.Audio.DurationSeconds)
	}
	if episode.DurationMinutes != 60 {
		t.Errorf("duration minutes = %d", episode.DurationMinutes)
	}
	if len(f.store.deleted) != 1 || f.store.deleted[0] != "episodes/old_1.mp3" {
		t.Errorf("deletions = %v", f.store.deleted)
	}
	if len(f.episodes.saved) != 1 {
		t.Errorf("saves = %d", len(f.episodes.saved))
	}
}

func TestConfirmKeepsExplicitDuration(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.episode.DurationMinutes = 90

	duration := 600
	doc, err := f.svc.Confirm(context.Background(), f.ownerActor(), ResourceEpisode, f.episode.ID, ConfirmInput{
		Key:             "episodes/k.mp3",
		FileURL:         "https://cdn.example.com/episodes/k.mp3",
		DurationSeconds: &duration,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if doc.(*models.Episode).DurationMinutes != 90 {
		t.Errorf("duration minutes = %d", doc.(*models.Episode).DurationMinutes)
	}
}

func TestConfirmShowSetsPromoAudio(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.show.PromoAudio = &dbtypes.Asset{Key: "shows/old.mp3"}

	doc, err := f.svc.Confirm(context.Background(), f.ownerActor(), ResourceShow, f.show.ID, ConfirmInput{
		Key:     "shows/new.mp3",
		FileURL: "https://cdn.example.com/shows/new.mp3",
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	show, ok := doc.(*models.Show)
	if !ok {
		t.Fatalf("doc type = %T", doc)
	}
	if show.PromoAudio.Key != "shows/new.mp3" {
		t.Errorf("promo key = %s", show.PromoAudio.Key)
	}
	if show.PromoAudio.UploadedAt == nil || time.Since(*show.PromoAudio.UploadedAt) > time.Minute {
		t.Errorf("uploaded at = %v", show.PromoAudio.UploadedAt)
	}
	if len(f.store.deleted) != 1 || f.store.deleted[0] != "shows/old.mp3" {
		t.Errorf("deletions = %v", f.store.deleted)
	}
}

func TestConfirmCleanupFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.episode.Audio = &dbtypes.Asset{Key: "episodes/stuck.mp3"}
	f.store.deleteErr = fmt.Errorf("bucket unavailable")

	_, err := f.svc.Confirm(context.Background(), f.ownerActor(), ResourceEpisode, f.episode.ID, ConfirmInput{
		Key:     "episodes/new.mp3",
		FileURL: "https://cdn.example.com/episodes/new.mp3",
	})
	if err != nil {
		t.Fatalf("Confirm should not fail on cleanup error: %v", err)
	}
}

func TestConfirmSameKeyDoesNotDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.episode.Audio = &dbtypes.Asset{Key: "episodes/same.mp3"}

	_, err := f.svc.Confirm(context.Background(), f.ownerActor(), ResourceEpisode, f.episode.ID, ConfirmInput{
		Key:     "episodes/same.mp3",
		FileURL: "https://cdn.example.com/episodes/same.mp3",
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(f.store.deleted) != 0 {
		t.Errorf("deletions = %v", f.store.deleted)
	}
}
