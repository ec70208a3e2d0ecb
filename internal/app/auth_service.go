package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/model"
	"contractrisk/internal/pkg/jwtutil"
	"contractrisk/internal/session"
)

// ResendCooldown is how long a reset OTP must age before another can be requested.
const ResendCooldown = 60 * time.Second

const generatedPasswordLength = 14

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

type AuthService struct {
	events eventEmitter
	logger *slog.Logger
	now    func() time.Time
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// OAuthDraft prefills the form that finishes a Google sign-up.
type OAuthDraft struct {
	Email     string
	Name      string
	Username  string
	Password  string
	TempToken string
}

type OAuthInput struct {
	Email     string
	Username  string
	Password  string
	TempToken string
}

func NewAuthService(publisher EventPublisher, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		events: newEventEmitter(publisher, logger),
		logger: logger,
		now:    time.Now,
	}
}

// StartLogin checks the password and remembers who is waiting for an OTP.
func (s *AuthService) StartLogin(ctx context.Context, sess *session.Session, api *apiclient.Client, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return invalid("username", "Username is required.")
	}
	if password == "" {
		return invalid("password", "Password is required.")
	}
	if _, err := api.Login(ctx, username, password); err != nil {
		return err
	}
	sess.SetPendingLogin(username)
	return nil
}

// VerifyLogin trades the OTP for a credential and stores it in the session.
func (s *AuthService) VerifyLogin(ctx context.Context, sess *session.Session, api *apiclient.Client, otp string) error {
	username := sess.PendingLogin()
	if username == "" {
		return ErrNoPendingLogin
	}
	if err := validateOTP(otp); err != nil {
		return err
	}
	token, err := api.VerifyLogin(ctx, username, strings.TrimSpace(otp))
	if err != nil {
		return err
	}
	sess.SetToken(token)
	s.events.emit(ctx, sess.ID(), model.SessionEventLogin, subjectOf(token, username))
	return nil
}

func (s *AuthService) CancelLogin(sess *session.Session) {
	sess.SetPendingLogin("")
}

func (s *AuthService) Register(ctx context.Context, api *apiclient.Client, input RegisterInput) error {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if username == "" {
		return invalid("username", "Username is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "Enter a valid email address.")
	}
	if err := validateNewPassword(input.Password, input.ConfirmPassword); err != nil {
		return err
	}
	return api.Register(ctx, username, email, input.Password)
}

// OAuthDraft builds the completion form from the identity-provider redirect.
func (s *AuthService) OAuthDraft(email, name, tempToken string) (*OAuthDraft, error) {
	email = strings.TrimSpace(email)
	tempToken = strings.TrimSpace(tempToken)
	if email == "" || tempToken == "" {
		return nil, invalid("temp_token", "Invalid registration session.")
	}
	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	return &OAuthDraft{
		Email:     email,
		Name:      name,
		Username:  username,
		Password:  password,
		TempToken: tempToken,
	}, nil
}

func (s *AuthService) CompleteOAuth(ctx context.Context, sess *session.Session, api *apiclient.Client, input OAuthInput) error {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.TempToken) == "" {
		return invalid("temp_token", "Invalid registration session.")
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return invalid("username", "Username is required.")
	}
	if len(input.Password) < minPasswordLength {
		return invalid("password", "Password must be at least 8 characters.")
	}
	token, err := api.CompleteOAuth(ctx, strings.TrimSpace(input.Email), username, input.Password, strings.TrimSpace(input.TempToken))
	if err != nil {
		return err
	}
	sess.SetToken(token)
	s.events.emit(ctx, sess.ID(), model.SessionEventLogin, subjectOf(token, username))
	return nil
}

// Logout tells the backend when it can, then forgets the credential regardless.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session, api *apiclient.Client) {
	token := sess.Token()
	if token == "" {
		return
	}
	if err := api.Logout(ctx); err != nil {
		s.logger.Info("backend logout failed", "session_id", sess.ID(), "error", err)
	}
	sess.Clear()
	s.events.emit(ctx, sess.ID(), model.SessionEventLogout, subjectOf(token, ""))
}

// ResendIn reports how long until another reset OTP may be requested.
func (s *AuthService) ResendIn(flow *session.ResetFlow) time.Duration {
	if flow == nil || flow.SentAt.IsZero() {
		return 0
	}
	left := ResendCooldown - s.now().Sub(flow.SentAt)
	if left < 0 {
		return 0
	}
	return left
}

func (s *AuthService) SendResetOTP(ctx context.Context, sess *session.Session, api *apiclient.Client, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("email", "Enter a valid email address.")
	}
	if flow := sess.Reset(); flow != nil && flow.Email == email {
		if left := s.ResendIn(flow); left > 0 {
			secs := int((left + time.Second - 1) / time.Second)
			return invalid("email", fmt.Sprintf("Please wait %d seconds before requesting another OTP.", secs))
		}
	}
	if err := api.SendResetOTP(ctx, email); err != nil {
		return err
	}
	sess.SetReset(&session.ResetFlow{Email: email, SentAt: s.now()})
	return nil
}

func (s *AuthService) VerifyResetOTP(ctx context.Context, sess *session.Session, api *apiclient.Client, otp string) error {
	flow := sess.Reset()
	if flow == nil {
		return ErrNoResetFlow
	}
	if err := validateOTP(otp); err != nil {
		return err
	}
	otp = strings.TrimSpace(otp)
	if err := api.VerifyResetOTP(ctx, flow.Email, otp); err != nil {
		return err
	}
	flow.OTP = otp
	flow.Verified = true
	sess.SetReset(flow)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, sess *session.Session, api *apiclient.Client, password, confirm string) error {
	flow := sess.Reset()
	if flow == nil || !flow.Verified {
		return ErrNoResetFlow
	}
	if err := validateNewPassword(password, confirm); err != nil {
		return err
	}
	if err := api.ResetPassword(ctx, flow.Email, flow.OTP, password); err != nil {
		return err
	}
	sess.SetReset(nil)
	return nil
}

// DeleteAccount removes the account and signs the browser out.
func (s *AuthService) DeleteAccount(ctx context.Context, sess *session.Session, api *apiclient.Client, password string) error {
	if password == "" {
		return invalid("password", "Enter your password to confirm.")
	}
	token := sess.Token()
	if err := api.DeleteAccount(ctx, password); err != nil {
		return err
	}
	sess.Clear()
	s.events.emit(ctx, sess.ID(), model.SessionEventAccountDeleted, subjectOf(token, ""))
	return nil
}

// GeneratePassword returns a random password for accounts created through Google.
func GeneratePassword() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, generatedPasswordLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password failed: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

func subjectOf(token, fallback string) string {
	if claims, err := jwtutil.Peek(token); err == nil && claims.Subject != "" {
		return claims.Subject
	}
	return fallback
}

// SessionExpired records that the backend stopped accepting the session's credential.
func (s *AuthService) SessionExpired(ctx context.Context, sessionID string) {
	s.events.emit(ctx, sessionID, model.SessionEventExpired, "")
}
