package email

import (
	"fmt"
	"html"
	"strings"
)

// Template names used for logging and metrics labels.
const (
	TemplateVerification    = "verification"
	TemplateWelcome         = "welcome"
	TemplatePasswordReset   = "password_reset"
	TemplatePasswordChanged = "password_changed"
	TemplateShowApproved    = "show_approved"
	TemplateShowRejected    = "show_rejected"
)

// VerificationMessage builds the email-verification message.
func VerificationMessage(to, name, frontendURL, token string) Message {
	link := joinURL(frontendURL, "/verify-email") + "?token=" + token
	body := fmt.Sprintf(`
		<h2>Welcome to Radio Bug, %s!</h2>
		<p>Confirm your email address to activate your account.</p>
		<p><a href="%s">Verify my email</a></p>
		<p>The link expires in 24 hours. If you did not create an account, ignore this message.</p>`,
		html.EscapeString(name), link)

	return Message{
		To:       to,
		ToName:   name,
		Subject:  "Verify your Radio Bug account",
		HTML:     body,
		Template: TemplateVerification,
	}
}

// WelcomeMessage builds the post-verification welcome message.
func WelcomeMessage(to, name, frontendURL string) Message {
	body := fmt.Sprintf(`
		<h2>You're in, %s!</h2>
		<p>Your email is verified and your artist account is ready.</p>
		<p>Request a show from your dashboard to get on the air.</p>
		<p><a href="%s">Open Radio Bug</a></p>`,
		html.EscapeString(name), joinURL(frontendURL, "/dashboard"))

	return Message{
		To:       to,
		ToName:   name,
		Subject:  "Welcome to Radio Bug",
		HTML:     body,
		Template: TemplateWelcome,
	}
}

// PasswordResetMessage builds the reset-link message.
func PasswordResetMessage(to, name, frontendURL, token string) Message {
	link := joinURL(frontendURL, "/reset-password") + "?token=" + token
	body := fmt.Sprintf(`
		<h2>Password reset requested</h2>
		<p>Hi %s, use the link below to choose a new password.</p>
		<p><a href="%s">Reset my password</a></p>
		<p>The link expires in 1 hour. If you did not request this, ignore this message.</p>`,
		html.EscapeString(name), link)

	return Message{
		To:       to,
		ToName:   name,
		Subject:  "Reset your Radio Bug password",
		HTML:     body,
		Template: TemplatePasswordReset,
	}
}

// PasswordChangedMessage confirms a completed password reset.
func PasswordChangedMessage(to, name string) Message {
	body := fmt.Sprintf(`
		<h2>Password changed</h2>
		<p>Hi %s, your Radio Bug password was just changed.</p>
		<p>If this wasn't you, reset your password immediately and contact us.</p>`,
		html.EscapeString(name))

	return Message{
		To:       to,
		ToName:   name,
		Subject:  "Your Radio Bug password was changed",
		HTML:     body,
		Template: TemplatePasswordChanged,
	}
}

// ShowApprovedMessage notifies an artist their show request was approved.
func ShowApprovedMessage(to, name, showTitle, adminNotes string) Message {
	notes := ""
	if strings.TrimSpace(adminNotes) != "" {
		notes = fmt.Sprintf("<p>Notes from the team: %s</p>", html.EscapeString(adminNotes))
	}
	body := fmt.Sprintf(`
		<h2>Your show is approved!</h2>
		<p>Hi %s, "%s" has been approved and is now active.</p>
		%s
		<p>You can start uploading episodes from your dashboard.</p>`,
		html.EscapeString(name), html.EscapeString(showTitle), notes)

	return Message{
		To:       to,
		ToName:   name,
		Subject:  fmt.Sprintf("Show approved: %s", showTitle),
		HTML:     body,
		Template: TemplateShowApproved,
	}
}

// ShowRejectedMessage notifies an artist their show request was rejected.
func ShowRejectedMessage(to, name, showTitle, adminNotes string) Message {
	body := fmt.Sprintf(`
		<h2>About your show request</h2>
		<p>Hi %s, we can't approve "%s" right now.</p>
		<p>Reason: %s</p>
		<p>You're welcome to update the request and submit again.</p>`,
		html.EscapeString(name), html.EscapeString(showTitle), html.EscapeString(adminNotes))

	return Message{
		To:       to,
		ToName:   name,
		Subject:  fmt.Sprintf("Show request update: %s", showTitle),
		HTML:     body,
		Template: TemplateShowRejected,
	}
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}
