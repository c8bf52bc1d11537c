package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	pkgauth "github.com/Rhaonthemoon/radio-bug/pkg/auth"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/email"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUsersRepo struct {
	byEmail        map[string]*models.User
	byID           map[uuid.UUID]*models.User
	byVerifyToken  map[string]*models.User
	byResetToken   map[string]*models.User
	created        *models.User
	saved          *models.User
	createErr      error
	saveErr        error
	findByEmailErr error
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{
		byEmail:       map[string]*models.User{},
		byID:          map[uuid.UUID]*models.User{},
		byVerifyToken: map[string]*models.User{},
		byResetToken:  map[string]*models.User{},
	}
}

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.created = user
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.findByEmailErr != nil {
		return nil, s.findByEmailErr
	}
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	if u, ok := s.byVerifyToken[token]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if u, ok := s.byResetToken[token]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) Save(ctx context.Context, user *models.User) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = user
	return nil
}

type stubSessions struct {
	generated  []string
	revoked    []string
	rotatedOld string
	rotateErr  error
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotatedOld = oldAccessID
	return "new-access-id", "new-refresh-token", nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	if s.err != nil {
		return false, 0, s.err
	}
	return s.allowed, 1, nil
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

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "radio-bug-test",
		ExpirationMinutes:      60,
		RefreshTokenTTLMinutes: 120,
	}
}

func newTestService(t *testing.T, repo *stubUsersRepo, sessions *stubSessions, limiter *stubLimiter, sender *stubSender) Service {
	t.Helper()
	svc, err := NewService(repo, sessions, limiter, sender,
		testJWTConfig(), config.PasswordConfig{}, config.AuthRateLimitConfig{
			LoginWindow:        time.Minute,
			LoginEmailLimit:    5,
			LoginIPLimit:       20,
			RegisterWindow:     5 * time.Minute,
			RegisterEmailLimit: 3,
			RegisterIPLimit:    20,
		}, "https://radiobug.example", nil, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRegisterCreatesArtistWithVerificationToken(t *testing.T) {
	t.Parallel()

	repo := newStubUsersRepo()
	sender := &stubSender{}
	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, sender)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "New.Artist@Example.com",
		Password: "hunter22pass",
		Name:     "New Artist",
		IP:       "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.Email != "new.artist@example.com" {
		t.Fatalf("email not normalized: %s", user.Email)
	}
	if user.Role != enums.UserRoleArtist {
		t.Fatalf("role = %s", user.Role)
	}
	if user.EmailVerified {
		t.Fatal("new user must not be verified")
	}
	if user.VerificationToken == nil || len(*user.VerificationToken) != 64 {
		t.Fatalf("verification token = %v", user.VerificationToken)
	}
	if user.VerificationTokenExpires == nil || !user.VerificationTokenExpires.After(time.Now()) {
		t.Fatal("verification token expiry missing or past")
	}
	if len(sender.sent) != 1 || sender.sent[0].Template != email.TemplateVerification {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	repo := newStubUsersRepo()
	existing := &models.User{ID: uuid.New(), Email: "taken@example.com"}
	repo.byEmail[existing.Email] = existing

	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, &stubSender{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		Password: "hunter22pass",
		Name:     "Dup",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterEmailDeliveryFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	repo := newStubUsersRepo()
	sender := &stubSender{sendErr: fmt.Errorf("smtp down")}
	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, sender)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@example.com",
		Password: "hunter22pass",
		Name:     "A",
	})
	if err != nil {
		t.Fatalf("Register should succeed despite email failure: %v", err)
	}
	if repo.created == nil || repo.created.ID != user.ID {
		t.Fatal("user not persisted")
	}
}

func TestLoginRateLimited(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newStubUsersRepo(), &stubSessions{}, &stubLimiter{allowed: false}, &stubSender{})

	_, err := svc.Login(context.Background(), LoginInput{Email: "x@example.com", Password: "whatever1", IP: "198.51.100.2"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func TestLoginRejectsUnverifiedUser(t *testing.T) {
	t.Parallel()

	hash, err := security.HashPassword("correct-password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	repo := newStubUsersRepo()
	user := &models.User{
		ID:           uuid.New(),
		Email:        "pending@example.com",
		PasswordHash: hash,
		Role:         enums.UserRoleArtist,
		AuthProvider: enums.AuthProviderLocal,
	}
	repo.byEmail[user.Email] = user

	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, &stubSender{})

	_, err = svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "correct-password"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestLoginIssuesTokensAndUpdatesLastLogin(t *testing.T) {
	t.Parallel()

	hash, err := security.HashPassword("correct-password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	repo := newStubUsersRepo()
	user := &models.User{
		ID:            uuid.New(),
		Email:         "dj@example.com",
		PasswordHash:  hash,
		Role:          enums.UserRoleArtist,
		AuthProvider:  enums.AuthProviderLocal,
		EmailVerified: true,
	}
	repo.byEmail[user.Email] = user

	sessions := &stubSessions{}
	svc := newTestService(t, repo, sessions, &stubLimiter{allowed: true}, &stubSender{})

	res, err := svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "correct-password"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("missing token pair")
	}
	if len(sessions.generated) != 1 {
		t.Fatalf("sessions generated = %d", len(sessions.generated))
	}
	if repo.saved == nil || repo.saved.LastLoginAt == nil {
		t.Fatal("last login not persisted")
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	t.Parallel()

	hash, err := security.HashPassword("correct-password", config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	repo := newStubUsersRepo()
	user := &models.User{
		ID:            uuid.New(),
		Email:         "dj@example.com",
		PasswordHash:  hash,
		AuthProvider:  enums.AuthProviderLocal,
		EmailVerified: true,
	}
	repo.byEmail[user.Email] = user

	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, &stubSender{})

	_, err = svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "wrong-password"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifyEmailHappyPath(t *testing.T) {
	t.Parallel()

	token := "abc123token"
	expires := time.Now().Add(time.Hour)

	repo := newStubUsersRepo()
	user := &models.User{
		ID:                       uuid.New(),
		Email:                    "verify@example.com",
		Name:                     "V",
		Role:                     enums.UserRoleArtist,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	}
	repo.byVerifyToken[token] = user
	repo.byID[user.ID] = user

	sender := &stubSender{}
	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, sender)

	res, err := svc.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !res.User.EmailVerified {
		t.Fatal("user not marked verified")
	}
	if res.User.VerificationToken != nil {
		t.Fatal("verification token not cleared")
	}
	if res.AccessToken == "" {
		t.Fatal("missing access token")
	}
	if len(sender.sent) != 1 || sender.sent[0].Template != email.TemplateWelcome {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	t.Parallel()

	token := "expired-token"
	expires := time.Now().Add(-time.Hour)

	repo := newStubUsersRepo()
	repo.byVerifyToken[token] = &models.User{
		ID:                       uuid.New(),
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	}

	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, &stubSender{})

	_, err := svc.VerifyEmail(context.Background(), token)
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestForgotPasswordUnknownEmailStillSucceeds(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	svc := newTestService(t, newStubUsersRepo(), &stubSessions{}, &stubLimiter{allowed: true}, sender)

	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no email should be sent for unknown account")
	}
}

func TestResetPasswordClearsTokenAndNotifies(t *testing.T) {
	t.Parallel()

	token := "reset-me"
	expires := time.Now().Add(30 * time.Minute)

	repo := newStubUsersRepo()
	user := &models.User{
		ID:                        uuid.New(),
		Email:                     "dj@example.com",
		Name:                      "DJ",
		ResetPasswordToken:        &token,
		ResetPasswordTokenExpires: &expires,
	}
	repo.byResetToken[token] = user

	sender := &stubSender{}
	svc := newTestService(t, repo, &stubSessions{}, &stubLimiter{allowed: true}, sender)

	if err := svc.ResetPassword(context.Background(), token, "brand-new-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if user.ResetPasswordToken != nil {
		t.Fatal("reset token not cleared")
	}
	ok, err := security.VerifyPassword("brand-new-password", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new password not stored: ok=%v err=%v", ok, err)
	}
	if len(sender.sent) != 1 || sender.sent[0].Template != email.TemplatePasswordChanged {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	repo := newStubUsersRepo()
	user := &models.User{ID: uuid.New(), Email: "dj@example.com", Role: enums.UserRoleArtist}
	repo.byID[user.ID] = user

	sessions := &stubSessions{}
	svc := newTestService(t, repo, sessions, &stubLimiter{allowed: true}, &stubSender{})

	// Mint an access token tied to a known jti the same way the service does.
	accessToken, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-access-id",
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	res, err := svc.Refresh(context.Background(), accessToken, "stored-refresh")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sessions.rotatedOld != "old-access-id" {
		t.Fatalf("rotated old = %s", sessions.rotatedOld)
	}
	if res.RefreshToken != "new-refresh-token" {
		t.Fatalf("refresh = %s", res.RefreshToken)
	}
}
