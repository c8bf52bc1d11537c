package episodes

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/internal/mixcloud"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubEpisodesRepo struct {
	byID       map[uuid.UUID]*models.Episode
	created    *models.Episode
	saved      []*models.Episode
	deleted    uuid.UUID
	playsBumps []uuid.UUID
}

func newStubEpisodesRepo() *stubEpisodesRepo {
	return &stubEpisodesRepo{byID: map[uuid.UUID]*models.Episode{}}
}

func (s *stubEpisodesRepo) Create(ctx context.Context, episode *models.Episode) (*models.Episode, error) {
	if episode.ID == uuid.Nil {
		episode.ID = uuid.New()
	}
	s.created = episode
	s.byID[episode.ID] = episode
	return episode, nil
}

func (s *stubEpisodesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	if e, ok := s.byID[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubEpisodesRepo) List(ctx context.Context, filter ListFilter) ([]models.Episode, error) {
	return nil, nil
}

func (s *stubEpisodesRepo) ListPublishedByShowSlug(ctx context.Context, slug string) ([]models.Episode, error) {
	return nil, nil
}

func (s *stubEpisodesRepo) Save(ctx context.Context, episode *models.Episode) error {
	s.saved = append(s.saved, episode)
	return nil
}

func (s *stubEpisodesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	delete(s.byID, id)
	return nil
}

func (s *stubEpisodesRepo) IncrementPlays(ctx context.Context, id uuid.UUID) error {
	s.playsBumps = append(s.playsBumps, id)
	return nil
}

type stubShowsRepo struct {
	byID        map[uuid.UUID]*models.Show
	countDeltas []int
}

func newStubShowsRepo() *stubShowsRepo {
	return &stubShowsRepo{byID: map[uuid.UUID]*models.Show{}}
}

func (s *stubShowsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	if sh, ok := s.byID[id]; ok {
		return sh, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubShowsRepo) AdjustEpisodeCount(ctx context.Context, id uuid.UUID, delta int) error {
	s.countDeltas = append(s.countDeltas, delta)
	return nil
}

type stubStore struct {
	uploads   map[string]string
	deleted   []string
	uploadErr error
	deleteErr error
}

func newStubStore() *stubStore {
	return &stubStore{uploads: map[string]string{}}
}

func (s *stubStore) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, _ := io.ReadAll(body)
	s.uploads[key] = string(data)
	return nil
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

type stubPublisher struct {
	result     *mixcloud.PublishResult
	err        error
	calledWith *mixcloud.PublishInput
}

func (s *stubPublisher) Publish(ctx context.Context, input mixcloud.PublishInput) (*mixcloud.PublishResult, error) {
	s.calledWith = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestService(t *testing.T, repo *stubEpisodesRepo, shows *stubShowsRepo, store *stubStore, publisher *stubPublisher) Service {
	t.Helper()
	if publisher == nil {
		publisher = &stubPublisher{result: &mixcloud.PublishResult{Key: "/rb/ep/", URL: "https://www.mixcloud.com/rb/ep/"}}
	}
	svc, err := NewService(repo, shows, store, publisher,
		config.MediaConfig{MaxAudioUploadMB: 500, MaxImageUploadMB: 10},
		nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func approvedShow(ownerID uuid.UUID) *models.Show {
	return &models.Show{
		ID:            uuid.New(),
		CreatedBy:     ownerID,
		RequestStatus: enums.ShowRequestStatusApproved,
		Status:        enums.ShowStatusActive,
	}
}

func TestCreateGateMatrix(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	stranger := uuid.New()

	cases := []struct {
		name       string
		actor      authz.Actor
		reqStatus  enums.ShowRequestStatus
		showStatus enums.ShowStatus
		wantCode   pkgerrors.Code
		wantReason string
	}{
		{"owner of approved active show", authz.Actor{ID: owner, Role: enums.UserRoleArtist}, enums.ShowRequestStatusApproved, enums.ShowStatusActive, "", ""},
		{"admin bypasses gate", authz.Actor{ID: stranger, Role: enums.UserRoleAdmin}, enums.ShowRequestStatusPending, enums.ShowStatusInactive, "", ""},
		{"stranger forbidden", authz.Actor{ID: stranger, Role: enums.UserRoleArtist}, enums.ShowRequestStatusApproved, enums.ShowStatusActive, pkgerrors.CodeForbidden, "show does not belong to you"},
		{"pending show forbidden", authz.Actor{ID: owner, Role: enums.UserRoleArtist}, enums.ShowRequestStatusPending, enums.ShowStatusActive, pkgerrors.CodeForbidden, "show must be approved before adding episodes"},
		{"inactive show forbidden", authz.Actor{ID: owner, Role: enums.UserRoleArtist}, enums.ShowRequestStatusApproved, enums.ShowStatusInactive, pkgerrors.CodeForbidden, "show is not active"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubEpisodesRepo()
			shows := newStubShowsRepo()
			show := &models.Show{
				ID:            uuid.New(),
				CreatedBy:     owner,
				RequestStatus: tc.reqStatus,
				Status:        tc.showStatus,
			}
			shows.byID[show.ID] = show

			svc := newTestService(t, repo, shows, newStubStore(), nil)

			_, err := svc.Create(context.Background(), tc.actor, CreateInput{
				ShowID: show.ID,
				Title:  "Episode 1",
			})

			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				if len(shows.countDeltas) != 1 || shows.countDeltas[0] != 1 {
					t.Fatalf("episode count deltas = %v", shows.countDeltas)
				}
				return
			}

			if pkgerrors.As(err).Code() != tc.wantCode {
				t.Fatalf("code = %v, want %v", err, tc.wantCode)
			}
			if pkgerrors.As(err).Message() != tc.wantReason {
				t.Fatalf("reason = %q, want %q", pkgerrors.As(err).Message(), tc.wantReason)
			}
		})
	}
}

func TestApproveThenCreateScenario(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := &models.Show{
		ID:            uuid.New(),
		CreatedBy:     owner,
		RequestStatus: enums.ShowRequestStatusPending,
		Status:        enums.ShowStatusInactive,
	}
	shows.byID[show.ID] = show

	svc := newTestService(t, repo, shows, newStubStore(), nil)
	actor := authz.Actor{ID: owner, Role: enums.UserRoleArtist}

	_, err := svc.Create(context.Background(), actor, CreateInput{ShowID: show.ID, Title: "Too early"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden before approval, got %v", err)
	}

	// The admin approves; the gate re-reads the show on the next attempt.
	show.RequestStatus = enums.ShowRequestStatusApproved
	show.Status = enums.ShowStatusActive

	episode, err := svc.Create(context.Background(), actor, CreateInput{ShowID: show.ID, Title: "Right on time"})
	if err != nil {
		t.Fatalf("Create after approval: %v", err)
	}
	if episode.Status != enums.EpisodeStatusDraft {
		t.Fatalf("status = %s", episode.Status)
	}
}

func TestUploadAudioReplacesSlotAndDeletesOldObject(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: show.ID,
		Audio:  &dbtypes.Asset{Key: "episodes/old_1.mp3", URL: "https://cdn.example.com/episodes/old_1.mp3"},
	}
	repo.byID[episode.ID] = episode

	store := newStubStore()
	svc := newTestService(t, repo, shows, store, nil)

	updated, err := svc.UploadAudio(context.Background(), authz.Actor{ID: owner, Role: enums.UserRoleArtist}, episode.ID, FileUpload{
		FileName:    "new mix.mp3",
		ContentType: "audio/mpeg",
		SizeBytes:   2048,
		Body:        strings.NewReader("new-bytes"),
	})
	if err != nil {
		t.Fatalf("UploadAudio: %v", err)
	}

	if !updated.Audio.Present() || updated.Audio.Key == "episodes/old_1.mp3" {
		t.Fatalf("audio slot not replaced: %+v", updated.Audio)
	}
	if !strings.HasPrefix(updated.Audio.Key, "episodes/"+episode.ID.String()+"_") {
		t.Fatalf("key = %s", updated.Audio.Key)
	}
	if !strings.HasSuffix(updated.Audio.Key, ".mp3") {
		t.Fatalf("key = %s", updated.Audio.Key)
	}
	if store.uploads[updated.Audio.Key] != "new-bytes" {
		t.Fatal("object not uploaded")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "episodes/old_1.mp3" {
		t.Fatalf("old object deletions = %v", store.deleted)
	}
}

func TestUploadAudioRejectsBadMimeAndSize(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{ID: uuid.New(), ShowID: show.ID}
	repo.byID[episode.ID] = episode

	svc := newTestService(t, repo, shows, newStubStore(), nil)
	actor := authz.Actor{ID: owner, Role: enums.UserRoleArtist}

	_, err := svc.UploadAudio(context.Background(), actor, episode.ID, FileUpload{
		FileName:    "virus.exe",
		ContentType: "application/octet-stream",
		SizeBytes:   10,
		Body:        strings.NewReader("x"),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for mime, got %v", err)
	}

	_, err = svc.UploadAudio(context.Background(), actor, episode.ID, FileUpload{
		FileName:    "huge.mp3",
		ContentType: "audio/mpeg",
		SizeBytes:   501 * 1024 * 1024,
		Body:        strings.NewReader("x"),
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for size, got %v", err)
	}
}

func TestStreamPublicIncrementsPlays(t *testing.T) {
	t.Parallel()

	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: uuid.New(),
		Status: enums.EpisodeStatusPublished,
		Audio:  &dbtypes.Asset{Key: "episodes/e_1.mp3", URL: "https://cdn.example.com/episodes/e_1.mp3"},
	}
	repo.byID[episode.ID] = episode

	svc := newTestService(t, repo, shows, newStubStore(), nil)

	url, err := svc.StreamPublic(context.Background(), episode.ID)
	if err != nil {
		t.Fatalf("StreamPublic: %v", err)
	}
	if url != episode.Audio.URL {
		t.Fatalf("url = %s", url)
	}
	if len(repo.playsBumps) != 1 || repo.playsBumps[0] != episode.ID {
		t.Fatalf("plays bumps = %v", repo.playsBumps)
	}
}

func TestStreamPublicHidesDrafts(t *testing.T) {
	t.Parallel()

	repo := newStubEpisodesRepo()
	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: uuid.New(),
		Status: enums.EpisodeStatusDraft,
		Audio:  &dbtypes.Asset{Key: "k", URL: "u"},
	}
	repo.byID[episode.ID] = episode

	svc := newTestService(t, repo, newStubShowsRepo(), newStubStore(), nil)

	_, err := svc.StreamPublic(context.Background(), episode.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for draft, got %v", err)
	}
}

func TestDeleteRemovesObjectsAndDecrementsCount(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: show.ID,
		Audio:  &dbtypes.Asset{Key: "episodes/a.mp3"},
		Image:  &dbtypes.Asset{Key: "episodes/i.jpg"},
	}
	repo.byID[episode.ID] = episode

	store := newStubStore()
	svc := newTestService(t, repo, shows, store, nil)

	if err := svc.Delete(context.Background(), authz.Actor{ID: owner, Role: enums.UserRoleArtist}, episode.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if repo.deleted != episode.ID {
		t.Fatal("episode not deleted")
	}
	if len(store.deleted) != 2 {
		t.Fatalf("object deletions = %v", store.deleted)
	}
	if len(shows.countDeltas) != 1 || shows.countDeltas[0] != -1 {
		t.Fatalf("count deltas = %v", shows.countDeltas)
	}
}

func TestPublishMixcloudHappyPath(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: show.ID,
		Title:  "Archive Hour",
		Status: enums.EpisodeStatusArchived,
		Audio:  &dbtypes.Asset{Key: "episodes/a.mp3", URL: "https://cdn.example.com/episodes/a.mp3"},
	}
	repo.byID[episode.ID] = episode

	publisher := &stubPublisher{result: &mixcloud.PublishResult{Key: "/rb/archive-hour/", URL: "https://www.mixcloud.com/rb/archive-hour/"}}
	svc := newTestService(t, repo, shows, newStubStore(), publisher)

	updated, err := svc.PublishMixcloud(context.Background(), authz.Actor{ID: owner, Role: enums.UserRoleAdmin}, episode.ID)
	if err != nil {
		t.Fatalf("PublishMixcloud: %v", err)
	}

	if updated.MixcloudStatus != enums.MixcloudStatusUploaded {
		t.Fatalf("status = %s", updated.MixcloudStatus)
	}
	if updated.MixcloudKey == nil || *updated.MixcloudKey != "/rb/archive-hour/" {
		t.Fatalf("key = %v", updated.MixcloudKey)
	}
	if updated.MixcloudURL == nil || *updated.MixcloudURL != "https://www.mixcloud.com/rb/archive-hour/" {
		t.Fatalf("url = %v", updated.MixcloudURL)
	}
	if publisher.calledWith == nil || publisher.calledWith.AudioURL != episode.Audio.URL {
		t.Fatalf("publish input = %+v", publisher.calledWith)
	}

	// The uploading state must be persisted before the outbound call.
	if len(repo.saved) < 2 {
		t.Fatalf("saves = %d, want uploading then uploaded", len(repo.saved))
	}
}

func TestPublishMixcloudFailureIsRecorded(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{
		ID:     uuid.New(),
		ShowID: show.ID,
		Title:  "Archive Hour",
		Status: enums.EpisodeStatusArchived,
		Audio:  &dbtypes.Asset{Key: "episodes/a.mp3", URL: "https://cdn.example.com/episodes/a.mp3"},
	}
	repo.byID[episode.ID] = episode

	publisher := &stubPublisher{err: fmt.Errorf("mixcloud 503")}
	svc := newTestService(t, repo, shows, newStubStore(), publisher)

	_, err := svc.PublishMixcloud(context.Background(), authz.Actor{ID: owner, Role: enums.UserRoleAdmin}, episode.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if episode.MixcloudStatus != enums.MixcloudStatusFailed {
		t.Fatalf("status = %s", episode.MixcloudStatus)
	}
	if episode.MixcloudError == nil || !strings.Contains(*episode.MixcloudError, "mixcloud 503") {
		t.Fatalf("error = %v", episode.MixcloudError)
	}
}

func TestPublishMixcloudRequiresArchivedWithAudio(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show
	actor := authz.Actor{ID: owner, Role: enums.UserRoleAdmin}

	cases := []struct {
		name    string
		episode *models.Episode
	}{
		{"not archived", &models.Episode{ID: uuid.New(), ShowID: show.ID, Status: enums.EpisodeStatusPublished, Audio: &dbtypes.Asset{Key: "k", URL: "u"}}},
		{"no audio", &models.Episode{ID: uuid.New(), ShowID: show.ID, Status: enums.EpisodeStatusArchived}},
		{"already uploaded", &models.Episode{ID: uuid.New(), ShowID: show.ID, Status: enums.EpisodeStatusArchived, Audio: &dbtypes.Asset{Key: "k", URL: "u"}, MixcloudStatus: enums.MixcloudStatusUploaded}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubEpisodesRepo()
			repo.byID[tc.episode.ID] = tc.episode
			svc := newTestService(t, repo, shows, newStubStore(), nil)

			_, err := svc.PublishMixcloud(context.Background(), actor, tc.episode.ID)
			if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state conflict, got %v", err)
			}
		})
	}
}

func TestUpdateValidatesExternalLinks(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	repo := newStubEpisodesRepo()
	shows := newStubShowsRepo()
	show := approvedShow(owner)
	shows.byID[show.ID] = show

	episode := &models.Episode{ID: uuid.New(), ShowID: show.ID, Title: "Ep"}
	repo.byID[episode.ID] = episode

	svc := newTestService(t, repo, shows, newStubStore(), nil)
	actor := authz.Actor{ID: owner, Role: enums.UserRoleArtist}

	bad := "https://example.com/not-mixcloud"
	_, err := svc.Update(context.Background(), actor, episode.ID, UpdateInput{MixcloudURL: &bad})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	good := "https://www.mixcloud.com/rb/ep/"
	updated, err := svc.Update(context.Background(), actor, episode.ID, UpdateInput{MixcloudURL: &good})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.MixcloudURL == nil || *updated.MixcloudURL != good {
		t.Fatalf("mixcloud url = %v", updated.MixcloudURL)
	}
	if updated.UpdatedBy == nil || *updated.UpdatedBy != owner {
		t.Fatalf("updated by = %v", updated.UpdatedBy)
	}
}
