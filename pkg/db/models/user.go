package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string             `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string             `gorm:"column:password_hash;not null;default:''"`
	Name         string             `gorm:"column:name;not null"`
	ArtistName   *string            `gorm:"column:artist_name"`
	Bio          *string            `gorm:"column:bio"`
	Role         enums.UserRole     `gorm:"column:role;type:text;not null;default:'artist'"`
	AuthProvider enums.AuthProvider `gorm:"column:auth_provider;type:text;not null;default:'local'"`
	GoogleID     *string            `gorm:"column:google_id;uniqueIndex"`
	AvatarURL    *string            `gorm:"column:avatar_url"`

	EmailVerified             bool       `gorm:"column:email_verified;not null;default:false"`
	VerificationToken         *string    `gorm:"column:verification_token"`
	VerificationTokenExpires  *time.Time `gorm:"column:verification_token_expires"`
	ResetPasswordToken        *string    `gorm:"column:reset_password_token"`
	ResetPasswordTokenExpires *time.Time `gorm:"column:reset_password_token_expires"`

	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasValidVerificationToken reports whether the stored token matches and is unexpired.
func (u *User) HasValidVerificationToken(token string, now time.Time) bool {
	if u.VerificationToken == nil || *u.VerificationToken == "" || *u.VerificationToken != token {
		return false
	}
	return u.VerificationTokenExpires != nil && u.VerificationTokenExpires.After(now)
}

// HasValidResetToken reports whether the stored reset token matches and is unexpired.
func (u *User) HasValidResetToken(token string, now time.Time) bool {
	if u.ResetPasswordToken == nil || *u.ResetPasswordToken == "" || *u.ResetPasswordToken != token {
		return false
	}
	return u.ResetPasswordTokenExpires != nil && u.ResetPasswordTokenExpires.After(now)
}
