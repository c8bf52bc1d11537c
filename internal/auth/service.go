package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgauth "github.com/Rhaonthemoon/radio-bug/pkg/auth"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/db/models"
	"github.com/Rhaonthemoon/radio-bug/pkg/email"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	pkgerrors "github.com/Rhaonthemoon/radio-bug/pkg/errors"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/Rhaonthemoon/radio-bug/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 8

	verificationTokenBytes = 32
	verificationTokenTTL   = 24 * time.Hour
	resetTokenTTL          = time.Hour
)

type usersRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type mailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// Service exposes authentication and account lifecycle semantics.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) (*Result, error)
	ResendVerification(ctx context.Context, emailAddr string) error
	Login(ctx context.Context, input LoginInput) (*Result, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Result, error)
	ForgotPassword(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type service struct {
	users    usersRepository
	sessions sessionManager
	limiter  rateLimiter
	sender   mailSender

	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	limitCfg    config.AuthRateLimitConfig
	frontendURL string

	metrics *metrics.MediaMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the auth service backed by the provided collaborators.
func NewService(users usersRepository, sessions sessionManager, limiter rateLimiter, sender mailSender, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig, limitCfg config.AuthRateLimitConfig, frontendURL string, mediaMetrics *metrics.MediaMetrics, logg *logger.Logger) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:       users,
		sessions:    sessions,
		limiter:     limiter,
		sender:      sender,
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		limitCfg:    limitCfg,
		frontendURL: frontendURL,
		metrics:     mediaMetrics,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// RegisterInput models the registration payload.
type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	ArtistName *string
	Bio        *string
	IP         string
}

// LoginInput models the login payload.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// Result bundles the authenticated user with a fresh token pair.
type Result struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if err := s.allowAuthAttempt(ctx, "register", emailAddr, input.IP, s.limitCfg.RegisterWindow, s.limitCfg.RegisterEmailLimit, s.limitCfg.RegisterIPLimit); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, emailAddr); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up existing user")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	token, err := security.GenerateToken(verificationTokenBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint verification token")
	}
	expires := s.now().Add(verificationTokenTTL)

	user := &models.User{
		Email:                    emailAddr,
		PasswordHash:             hash,
		Name:                     name,
		ArtistName:               input.ArtistName,
		Bio:                      input.Bio,
		Role:                     enums.UserRoleArtist,
		AuthProvider:             enums.AuthProviderLocal,
		VerificationToken:        &token,
		VerificationTokenExpires: &expires,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist user")
	}

	s.sendMail(ctx, email.VerificationMessage(user.Email, user.Name, s.frontendURL, token))
	return user, nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "verification token is required")
	}

	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired verification token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up verification token")
	}

	if !user.HasValidVerificationToken(token, s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired verification token")
	}

	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationTokenExpires = nil
	if err := s.users.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist verified user")
	}

	s.sendMail(ctx, email.WelcomeMessage(user.Email, user.Name, s.frontendURL))
	return s.issueTokens(ctx, user)
}

func (s *service) ResendVerification(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}
	if user.EmailVerified {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "email already verified")
	}

	token, err := security.GenerateToken(verificationTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint verification token")
	}
	expires := s.now().Add(verificationTokenTTL)
	user.VerificationToken = &token
	user.VerificationTokenExpires = &expires

	if err := s.users.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist verification token")
	}

	// Sending is the whole point here, so a delivery failure is surfaced.
	msg := email.VerificationMessage(user.Email, user.Name, s.frontendURL, token)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncEmailFailure(msg.Template)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification email")
	}
	s.metrics.IncEmailSent(msg.Template)
	return nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*Result, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" || input.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	if err := s.allowAuthAttempt(ctx, "login", emailAddr, input.IP, s.limitCfg.LoginWindow, s.limitCfg.LoginEmailLimit, s.limitCfg.LoginIPLimit); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}

	if user.AuthProvider != enums.AuthProviderLocal {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account uses google sign-in")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	if !user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email not verified")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist last login")
	}

	return s.issueTokens(ctx, user)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Result, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access and refresh tokens are required")
	}

	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	userID := claims.UserID

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &Result{User: user, AccessToken: token, RefreshToken: newRefresh}, nil
}

func (s *service) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	// Always answer success so the endpoint cannot be used to probe accounts.
	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Error(ctx, "forgot password lookup failed", err)
		}
		return nil
	}
	if user.AuthProvider != enums.AuthProviderLocal {
		return nil
	}

	token, err := security.GenerateToken(verificationTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint reset token")
	}
	expires := s.now().Add(resetTokenTTL)
	user.ResetPasswordToken = &token
	user.ResetPasswordTokenExpires = &expires

	if err := s.users.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reset token")
	}

	s.sendMail(ctx, email.PasswordResetMessage(user.Email, user.Name, s.frontendURL, token))
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(newPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up reset token")
	}

	if !user.HasValidResetToken(token, s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user.PasswordHash = hash
	user.ResetPasswordToken = nil
	user.ResetPasswordTokenExpires = nil
	if err := s.users.Save(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist new password")
	}

	s.sendMail(ctx, email.PasswordChangedMessage(user.Email, user.Name))
	return nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up user")
	}
	return user, nil
}

func (s *service) issueTokens(ctx context.Context, user *models.User) (*Result, error) {
	accessID := uuid.NewString()

	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &Result{User: user, AccessToken: token, RefreshToken: refresh}, nil
}

// allowAuthAttempt applies a fixed window per email and per IP.
func (s *service) allowAuthAttempt(ctx context.Context, action, emailAddr, ip string, window time.Duration, emailLimit, ipLimit int) error {
	scopes := []struct {
		scope string
		limit int
	}{
		{fmt.Sprintf("%s:email:%s", action, emailAddr), emailLimit},
	}
	if ip != "" {
		scopes = append(scopes, struct {
			scope string
			limit int
		}{fmt.Sprintf("%s:ip:%s", action, ip), ipLimit})
	}

	for _, sc := range scopes {
		if sc.limit <= 0 {
			continue
		}
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, sc.scope, int64(sc.limit), window)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check rate limit")
		}
		if !allowed {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later")
		}
	}
	return nil
}

// sendMail delivers a notification without failing the caller's operation.
func (s *service) sendMail(ctx context.Context, msg email.Message) {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.IncEmailFailure(msg.Template)
		s.logg.Error(ctx, fmt.Sprintf("sending %s email", msg.Template), err)
		return
	}
	s.metrics.IncEmailSent(msg.Template)
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
