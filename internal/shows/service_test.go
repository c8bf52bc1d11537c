package shows

import (
	"context"
	"fmt"
	"testing"

	"github.com/Rhaonthemoon/radio-bug/internal/authz"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	dbtypes "github.com/Rhaonthemoon/radio-bug/pkg/db/types"
	"github.com/Rhaonthemoon/radio-bug/pkg/email"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubShowsRepo struct {
	byID     map[uuid.UUID]*models.Show
	bySlug   map[string]*models.Show
	listed   []models.Show
	created  *models.Show
	saved    *models.Show
	deleted  uuid.UUID
	listErr  error
	saveErr  error
	lastFilt ListFilter
}

func newStubShowsRepo() *stubShowsRepo {
	return &stubShowsRepo{
		byID:   map[uuid.UUID]*models.Show{},
		bySlug: map[string]*models.Show{},
	}
}

func (s *stubShowsRepo) Create(ctx context.Context, show *models.Show) (*models.Show, error) {
	if show.ID == uuid.Nil {
		show.ID = uuid.New()
	}
	s.created = show
	s.byID[show.ID] = show
	s.bySlug[show.Slug] = show
	return show, nil
}

func (s *stubShowsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	if sh, ok := s.byID[id]; ok {
		return sh, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubShowsRepo) FindBySlug(ctx context.Context, slug string) (*models.Show, error) {
	if sh, ok := s.bySlug[slug]; ok {
		return sh, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubShowsRepo) List(ctx context.Context, filter ListFilter) ([]models.Show, error) {
	s.lastFilt = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listed, nil
}

func (s *stubShowsRepo) Save(ctx context.Context, show *models.Show) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = show
	return nil
}

func (s *stubShowsRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleted = id
	delete(s.byID, id)
	return nil
}

type stubUsers struct {
	byID map[uuid.UUID]*models.User
}

func (s *stubUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubStore struct {
	deleted   []string
	deleteErr error
}

func (s *stubStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type stubSender struct {
	sent    []email.Message
	sendErr error
}

func (s *stubSender) Send(ctx context.Context, msg email.Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestService(t *testing.T, repo *stubShowsRepo, users *stubUsers, store *stubStore, sender *stubSender) Service {
	t.Helper()
	if users == nil {
		users = &stubUsers{byID: map[uuid.UUID]*models.User{}}
	}
	svc, err := NewService(repo, users, store, sender, "https://radiobug.example", nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func strPtr(v string) *string { return &v }

func TestRequestForcesPendingInactive(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	artistID := uuid.New()
	featured := true
	active := enums.ShowStatusActive
	show, err := svc.Request(context.Background(), artistID, Input{
		Title:      strPtr("Midnight Static"),
		ArtistName: strPtr("DJ Static"),
		Status:     &active,
		Featured:   &featured,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if show.RequestStatus != enums.ShowRequestStatusPending {
		t.Fatalf("request status = %s", show.RequestStatus)
	}
	if show.Status != enums.ShowStatusInactive {
		t.Fatalf("status = %s", show.Status)
	}
	if show.Featured {
		t.Fatal("featured must be forced false on artist requests")
	}
	if show.Slug != "midnight-static" {
		t.Fatalf("slug = %s", show.Slug)
	}
	if show.CreatedBy != artistID {
		t.Fatalf("created by = %s", show.CreatedBy)
	}
}

func TestRequestSlugCollisionGetsSuffix(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	repo.bySlug["midnight-static"] = &models.Show{ID: uuid.New(), Slug: "midnight-static"}

	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	show, err := svc.Request(context.Background(), uuid.New(), Input{
		Title:      strPtr("Midnight Static"),
		ArtistName: strPtr("DJ Static"),
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if show.Slug != "midnight-static-2" {
		t.Fatalf("slug = %s", show.Slug)
	}
}

func TestApproveTransitionsAndNotifies(t *testing.T) {
	t.Parallel()

	artistID := uuid.New()
	repo := newStubShowsRepo()
	show := &models.Show{
		ID:            uuid.New(),
		Title:         "Midnight Static",
		RequestStatus: enums.ShowRequestStatusPending,
		Status:        enums.ShowStatusInactive,
		CreatedBy:     artistID,
	}
	repo.byID[show.ID] = show

	users := &stubUsers{byID: map[uuid.UUID]*models.User{
		artistID: {ID: artistID, Email: "dj@example.com", Name: "DJ Static"},
	}}
	sender := &stubSender{}
	svc := newTestService(t, repo, users, &stubStore{}, sender)

	updated, err := svc.Approve(context.Background(), show.ID, strPtr("great demo"))
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.RequestStatus != enums.ShowRequestStatusApproved {
		t.Fatalf("request status = %s", updated.RequestStatus)
	}
	if updated.Status != enums.ShowStatusActive {
		t.Fatalf("status = %s", updated.Status)
	}
	if len(sender.sent) != 1 || sender.sent[0].Template != email.TemplateShowApproved {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestApproveEmailFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	artistID := uuid.New()
	repo := newStubShowsRepo()
	show := &models.Show{
		ID:            uuid.New(),
		RequestStatus: enums.ShowRequestStatusPending,
		CreatedBy:     artistID,
	}
	repo.byID[show.ID] = show

	users := &stubUsers{byID: map[uuid.UUID]*models.User{
		artistID: {ID: artistID, Email: "dj@example.com"},
	}}
	svc := newTestService(t, repo, users, &stubStore{}, &stubSender{sendErr: fmt.Errorf("smtp down")})

	updated, err := svc.Approve(context.Background(), show.ID, nil)
	if err != nil {
		t.Fatalf("Approve should succeed despite email failure: %v", err)
	}
	if updated.RequestStatus != enums.ShowRequestStatusApproved {
		t.Fatalf("request status = %s", updated.RequestStatus)
	}
}

func TestRejectRequiresAdminNotes(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	show := &models.Show{ID: uuid.New(), RequestStatus: enums.ShowRequestStatusPending}
	repo.byID[show.ID] = show

	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	_, err := svc.Reject(context.Background(), show.ID, "   ")
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if show.RequestStatus != enums.ShowRequestStatusPending {
		t.Fatal("rejection without notes must not transition the show")
	}
}

func TestRejectRecordsNotesAndNotifies(t *testing.T) {
	t.Parallel()

	artistID := uuid.New()
	repo := newStubShowsRepo()
	show := &models.Show{ID: uuid.New(), Title: "Late Drift", RequestStatus: enums.ShowRequestStatusPending, CreatedBy: artistID}
	repo.byID[show.ID] = show

	users := &stubUsers{byID: map[uuid.UUID]*models.User{
		artistID: {ID: artistID, Email: "dj@example.com", Name: "DJ"},
	}}
	sender := &stubSender{}
	svc := newTestService(t, repo, users, &stubStore{}, sender)

	updated, err := svc.Reject(context.Background(), show.ID, "audio quality too low")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if updated.RequestStatus != enums.ShowRequestStatusRejected {
		t.Fatalf("request status = %s", updated.RequestStatus)
	}
	if updated.AdminNotes == nil || *updated.AdminNotes != "audio quality too low" {
		t.Fatalf("admin notes = %v", updated.AdminNotes)
	}
	if len(sender.sent) != 1 || sender.sent[0].Template != email.TemplateShowRejected {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestApproveIsOneWay(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	show := &models.Show{ID: uuid.New(), RequestStatus: enums.ShowRequestStatusRejected}
	repo.byID[show.ID] = show

	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	_, err := svc.Approve(context.Background(), show.ID, nil)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListScopesArtistToOwnShows(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	artist := authz.Actor{ID: uuid.New(), Role: enums.UserRoleArtist}
	if _, err := svc.List(context.Background(), artist, ListFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilt.CreatedBy == nil || *repo.lastFilt.CreatedBy != artist.ID {
		t.Fatalf("filter not scoped: %+v", repo.lastFilt)
	}

	admin := authz.Actor{ID: uuid.New(), Role: enums.UserRoleAdmin}
	if _, err := svc.List(context.Background(), admin, ListFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.lastFilt.CreatedBy != nil {
		t.Fatal("admin listing must not be owner scoped")
	}
}

func TestGetByIDForbiddenForOtherArtist(t *testing.T) {
	t.Parallel()

	repo := newStubShowsRepo()
	show := &models.Show{ID: uuid.New(), CreatedBy: uuid.New()}
	repo.byID[show.ID] = show

	svc := newTestService(t, repo, nil, &stubStore{}, &stubSender{})

	_, err := svc.GetByID(context.Background(), authz.Actor{ID: uuid.New(), Role: enums.UserRoleArtist}, show.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestDeleteRemovesPromoAudioObject(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	repo := newStubShowsRepo()
	show := &models.Show{
		ID:         uuid.New(),
		CreatedBy:  ownerID,
		PromoAudio: &dbtypes.Asset{Key: "shows/abc_1.mp3"},
	}
	repo.byID[show.ID] = show

	store := &stubStore{}
	svc := newTestService(t, repo, nil, store, &stubSender{})

	if err := svc.Delete(context.Background(), authz.Actor{ID: ownerID, Role: enums.UserRoleAdmin}, show.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if repo.deleted != show.ID {
		t.Fatal("show not deleted")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "shows/abc_1.mp3" {
		t.Fatalf("store deletions = %v", store.deleted)
	}
}

func TestDeleteSucceedsWhenObjectCleanupFails(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	repo := newStubShowsRepo()
	show := &models.Show{
		ID:         uuid.New(),
		CreatedBy:  ownerID,
		PromoAudio: &dbtypes.Asset{Key: "shows/abc_1.mp3"},
	}
	repo.byID[show.ID] = show

	store := &stubStore{deleteErr: fmt.Errorf("storage down")}
	svc := newTestService(t, repo, nil, store, &stubSender{})

	if err := svc.Delete(context.Background(), authz.Actor{ID: ownerID, Role: enums.UserRoleAdmin}, show.ID); err != nil {
		t.Fatalf("Delete must not fail on cleanup errors: %v", err)
	}
}
